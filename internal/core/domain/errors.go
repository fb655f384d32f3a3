package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotConfigured = errors.New("not configured")
	ErrTemporary     = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

type DispatchErrorKind string

const (
	DispatchInvalidBackend     DispatchErrorKind = "invalid_backend"
	DispatchBackendUnavailable DispatchErrorKind = "backend_unavailable"
	DispatchModelNotFound      DispatchErrorKind = "model_not_found"
)

// DispatchError is returned by generation dispatch when the request cannot be
// routed to a backend. Its message is rendered to the end user verbatim.
type DispatchError struct {
	Kind    DispatchErrorKind
	Backend string
	Model   string
	Host    string
}

func (e *DispatchError) Error() string {
	if e == nil {
		return "dispatch error"
	}
	switch e.Kind {
	case DispatchInvalidBackend:
		return fmt.Sprintf("Invalid model type '%s'", e.Backend)
	case DispatchBackendUnavailable:
		if e.Host != "" {
			return fmt.Sprintf("Ollama is not connected at %s. Unable to fetch models.", e.Host)
		}
		return "Ollama is not connected. Unable to fetch models."
	case DispatchModelNotFound:
		return fmt.Sprintf("Model '%s' not found in available Ollama models.", e.Model)
	default:
		return string(e.Kind)
	}
}

func AsDispatchError(err error) (*DispatchError, bool) {
	var dispatchErr *DispatchError
	if errors.As(err, &dispatchErr) {
		return dispatchErr, true
	}
	return nil, false
}
