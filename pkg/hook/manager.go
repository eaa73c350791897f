package hook

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
)

// ScriptExtension is the file extension of hook scripts.
const ScriptExtension = ".tengo"

// Manager is the default Runner backed by a TengoExecutor.
type Manager struct {
	executor *TengoExecutor
}

var _ Runner = (*Manager)(nil)

// NewManager creates an empty hook manager.
func NewManager() *Manager {
	return &Manager{executor: NewTengoExecutor()}
}

// Execute runs the specified hook type with the given context.
func (m *Manager) Execute(ctx context.Context, hookType Type, hctx Context) error {
	if !m.HasHook(hookType) {
		return nil
	}
	logger.Debug("Running hook", logger.Fields{"type": string(hookType), "trainer": hctx.TrainerID})
	return m.executor.Execute(ctx, hookType, hctx)
}

// AddHook registers a hook, replacing any previous one of the same type.
func (m *Manager) AddHook(h Hook) error {
	if h.Type == "" {
		return errors.New(errors.Validation, "hook type cannot be empty")
	}
	m.executor.AddScript(h.Type, h.Content)
	return nil
}

// RemoveHook removes a hook of the specified type.
func (m *Manager) RemoveHook(hookType Type) error {
	if hookType == "" {
		return errors.New(errors.Validation, "hook type cannot be empty")
	}
	m.executor.RemoveScript(hookType)
	return nil
}

// HasHook checks if a hook of the specified type exists.
func (m *Manager) HasHook(hookType Type) bool {
	return m.executor.HasScript(hookType)
}

// LoadFile registers the script at path for hookType.
func (m *Manager) LoadFile(hookType Type, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &errors.Error{Kind: errors.IO, Op: "load hook " + path, Err: errors.Wrap(errors.ErrHookLoad, err.Error())}
	}
	return m.AddHook(Hook{Type: hookType, Content: string(content)})
}

// LoadDir registers every <type>.tengo script in dir. A missing directory is
// not an error and unknown hook names are skipped.
func (m *Manager) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.E(errors.IO, "read hooks directory "+dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ScriptExtension {
			continue
		}
		hookType := Type(strings.TrimSuffix(entry.Name(), ScriptExtension))
		switch hookType {
		case PostInstall, PostRemove:
		default:
			continue
		}
		if err := m.LoadFile(hookType, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Template returns a starter script for hookType.
func Template(hookType Type) string {
	switch hookType {
	case PostInstall:
		return `// Post-install hook
// Runs after a trainer was installed.
// Available variables:
// - trainer_id, trainer_name, trainer_version: string
// - install_path: string - directory the trainer was installed into
// Declare err := "message" to report a failure.

fmt := import("fmt")
fmt.println("installed " + trainer_name + " into " + install_path)
`
	case PostRemove:
		return `// Post-remove hook
// Runs after a trainer directory was deleted.
// Available variables: same as post-install.
`
	default:
		return "// Unknown hook type: " + string(hookType)
	}
}
