// Package hook runs user supplied tengo scripts around trainer installs.
package hook

import "context"

// Type represents the lifecycle point a hook runs at.
type Type string

// Supported hook types.
const (
	PostInstall Type = "post-install"
	PostRemove  Type = "post-remove"
)

// Hook represents a hook script with its type and content.
type Hook struct {
	Type    Type
	Content string
}

// Context contains information passed to hooks.
type Context struct {
	TrainerID      string
	TrainerName    string
	TrainerVersion string
	InstallPath    string
	Vars           map[string]interface{}
}

// Runner executes hooks.
type Runner interface {
	// Execute runs the hook registered for hookType. A missing hook is not an error.
	Execute(ctx context.Context, hookType Type, hctx Context) error

	// HasHook reports whether a hook is registered for hookType.
	HasHook(hookType Type) bool
}
