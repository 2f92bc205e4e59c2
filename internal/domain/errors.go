package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrTerminalState      = errors.New("content request already terminal")
	ErrProgressRegression = errors.New("invalid progress transition")
	ErrInvalidPrompt      = errors.New("invalid prompt")
	ErrInvalidScript      = errors.New("invalid script")
	ErrProviderFailure    = errors.New("provider failure")
)

// ValidationError reports malformed creation input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StepFailure wraps the error that stopped an orchestration run at Step.
type StepFailure struct {
	Step string
	Err  error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepFailure) Unwrap() error { return e.Err }
