package service

import (
	"errors"
	"fmt"

	"github.com/replaysMike/Binner-sub003/internal/bom/repository"
)

// Error kinds returned by the services. Handlers map them to HTTP statuses
// with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

func notFound(what string, id interface{}) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// lookup turns a repository miss into ErrNotFound and wraps anything else.
func lookup(err error, what string, id interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(what, id)
	}
	return fmt.Errorf("find %s %v: %w", what, id, err)
}
