package hook

import (
	"context"
	"fmt"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
)

// TengoExecutor handles the execution of Tengo scripts.
type TengoExecutor struct {
	scripts map[Type]string
	mutex   sync.RWMutex
}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		scripts: make(map[Type]string),
	}
}

// Execute runs the script for hookType. The script sees trainer_id,
// trainer_name, trainer_version and install_path plus every custom variable,
// and fails the hook by declaring err as a non-empty string or error.
func (e *TengoExecutor) Execute(ctx context.Context, hookType Type, hctx Context) error {
	e.mutex.RLock()
	script, exists := e.scripts[hookType]
	e.mutex.RUnlock()
	if !exists {
		return nil
	}

	op := "hook " + string(hookType)
	instance := tengo.NewScript([]byte(script))
	instance.SetImports(stdlib.GetModuleMap("fmt", "os", "text", "times", "json"))

	vars := map[string]interface{}{
		"trainer_id":      hctx.TrainerID,
		"trainer_name":    hctx.TrainerName,
		"trainer_version": hctx.TrainerVersion,
		"install_path":    hctx.InstallPath,
	}
	for k, v := range hctx.Vars {
		vars[k] = v
	}
	for k, v := range vars {
		if err := instance.Add(k, v); err != nil {
			return &errors.Error{Kind: errors.Execution, Op: op, Detail: fmt.Sprintf("add variable %q", k), Err: err}
		}
	}

	compiled, err := instance.RunContext(ctx)
	if err != nil {
		return &errors.Error{Kind: errors.Execution, Op: op, Detail: err.Error(), Err: errors.ErrHookExecution}
	}

	if errVar := compiled.Get("err"); errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return &errors.Error{Kind: errors.Execution, Op: op, Detail: v.Error(), Err: errors.ErrHookScript}
		case string:
			if v != "" {
				return &errors.Error{Kind: errors.Execution, Op: op, Detail: v, Err: errors.ErrHookScript}
			}
		}
	}
	return nil
}

// AddScript adds or updates a script for the specified hook type.
func (e *TengoExecutor) AddScript(hookType Type, script string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[hookType] = script
}

// RemoveScript removes the script for the specified hook type.
func (e *TengoExecutor) RemoveScript(hookType Type) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.scripts, hookType)
}

// HasScript checks if a script exists for the specified hook type.
func (e *TengoExecutor) HasScript(hookType Type) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, exists := e.scripts[hookType]
	return exists
}
