package model

import "fmt"

// ErrorKind is the taxonomy spec.md §7 requires every failure to be
// classified into, independent of which AWS service produced it.
type ErrorKind string

const (
	ErrConfig             ErrorKind = "ConfigError"
	ErrAuth               ErrorKind = "AuthError"
	ErrTransient          ErrorKind = "TransientError"
	ErrDependencyViolation ErrorKind = "DependencyViolation"
	ErrNotFound           ErrorKind = "NotFoundError"
	ErrValidation         ErrorKind = "ValidationError"
	ErrTimeout            ErrorKind = "TimeoutError"
	ErrProtectedSkip      ErrorKind = "ProtectedSkip"
)

// EngineError wraps an underlying error with the taxonomy code and the
// ResourceRef it was raised against, following the teacher's
// fmt.Errorf("...: %w", err) wrapping idiom (internal/aws/client.go) with one
// classification field layered on top per SPEC_FULL §7.
type EngineError struct {
	Kind ErrorKind
	Ref  ResourceRef
	Op   string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Ref.ID != "" {
		return fmt.Sprintf("%s: %s %s/%s: %v", e.Op, e.Kind, e.Ref.Kind, e.Ref.ID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Retryable reports whether the executor should retry the Step that
// produced this error (spec.md §4.6's retry policy applies only to
// TransientError and TimeoutError).
func (e *EngineError) Retryable() bool {
	return e.Kind == ErrTransient || e.Kind == ErrTimeout
}

func NewEngineError(kind ErrorKind, ref ResourceRef, op string, err error) *EngineError {
	return &EngineError{Kind: kind, Ref: ref, Op: op, Err: err}
}
