package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath  = fmt.Errorf("config file path cannot be empty")
	ErrConfigParse      = fmt.Errorf("failed to parse config")
	ErrConfigValidation = fmt.Errorf("invalid configuration")
	ErrConfigEncode     = fmt.Errorf("failed to encode config")
	ErrConfigDirectory  = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate = fmt.Errorf("failed to create config file")
	ErrUnknownConfigKey = fmt.Errorf("unknown configuration key")

	// Download errors.
	ErrDownloadFailed = fmt.Errorf("download failed")
	ErrEmptyPayload   = fmt.Errorf("downloaded payload is empty")
	ErrTransferActive = fmt.Errorf("transfer already active")

	// Archive errors.
	ErrArchiveFormat = fmt.Errorf("unsupported or corrupt archive")

	// Store errors.
	ErrStoreClosed = fmt.Errorf("store is closed")
	ErrInvalidKey  = fmt.Errorf("invalid storage key")

	// Lookup errors.
	ErrTrainerNotFound    = fmt.Errorf("trainer not found")
	ErrExecutableNotFound = fmt.Errorf("executable not found")

	// Validation errors.
	ErrValidation = fmt.Errorf("validation failed")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
