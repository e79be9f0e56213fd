package service

import (
	"errors"
	"fmt"

	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/store"
)

var (
	// ErrNotFound indicates the referenced content id does not exist.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidTransition indicates the requested status change is not allowed
	// from the record's current status.
	ErrInvalidTransition = errors.New("workflow: transition not allowed")
	// ErrInvalidArgument indicates caller input that must be corrected.
	ErrInvalidArgument = errors.New("workflow: invalid argument")
	// ErrUnknownProject indicates a project id with no configured database.
	ErrUnknownProject = errors.New("project not found")
)

// TransitionError names the current and requested state of a refused change.
type TransitionError struct {
	ID   string
	From models.ContentStatus
	To   models.ContentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("workflow: cannot move content %s from %s to %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
