package perm

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("perm: invalid input")
	ErrNotFound     = errors.New("perm: not found")
	ErrConflict     = errors.New("perm: resource conflict")

	// ErrForbidden marks mutations against a protected scope, currently only
	// the home organization whose permissions are fixed in code.
	ErrForbidden = errors.New("perm: protected scope")

	// ErrInvalidState marks operations whose preconditions are unmet, such as
	// applying organization defaults when no set has been stored yet.
	ErrInvalidState = errors.New("perm: invalid state")
)

func errInvalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
