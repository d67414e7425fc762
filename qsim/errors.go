package qsim

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrValidation reports a malformed program, detected while it is built.
	ErrValidation = errors.New("invalid circuit")
	// ErrDomain reports an execution-time impossibility, such as a
	// measurement whose retained probability mass is zero.
	ErrDomain = errors.New("simulation domain error")
	// ErrConfig reports invalid run parameters.
	ErrConfig = errors.New("invalid run configuration")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

func domainErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDomain, fmt.Sprintf(format, args...))
}

// ShotError aborts a run. It records which shot failed and the counts
// accumulated by the shots that completed before the abort.
type ShotError struct {
	Shot    int
	Partial Counts
	Err     error
}

func (e *ShotError) Error() string {
	return fmt.Sprintf("shot %d: %v", e.Shot, e.Err)
}

func (e *ShotError) Unwrap() error {
	return e.Err
}
