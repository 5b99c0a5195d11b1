package errors

import (
	"errors"
	"fmt"
)

// ConfigError represents an error encountered while loading or parsing a
// session file or applying engine options.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that a session document failed schema or
// structural validation.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// TaskNotFoundError indicates that a trial's plugin type has no registered task.
type TaskNotFoundError struct {
	PluginType string
}

func NewTaskNotFoundError(pluginType string) *TaskNotFoundError {
	return &TaskNotFoundError{PluginType: pluginType}
}
func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("trial task not found: %s", e.PluginType)
}

// IsTaskNotFound reports whether err is, or wraps, a TaskNotFoundError.
func IsTaskNotFound(err error) bool {
	var nf *TaskNotFoundError
	return errors.As(err, &nf)
}

// TrialError reports that the host stopped waiting for a trial. The trial
// itself never fails; this only happens when the caller's context ends first.
type TrialError struct {
	PluginType string
	TrialID    string
	Cause      error
}

func NewTrialError(pluginType, trialID string, cause error) *TrialError {
	return &TrialError{PluginType: pluginType, TrialID: trialID, Cause: cause}
}
func (e *TrialError) Error() string {
	if e.TrialID == "" {
		return fmt.Sprintf("trial (%s) failed: %v", e.PluginType, e.Cause)
	}
	return fmt.Sprintf("trial '%s' (%s) failed: %v", e.TrialID, e.PluginType, e.Cause)
}
func (e *TrialError) Unwrap() error { return e.Cause }
