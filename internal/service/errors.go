package service

import (
	"errors"
	"fmt"

	"github.com/newsdesk/internal/permission"
)

var (
	// ErrNotFound reports that the addressed article or approval request
	// does not exist (or is hard-deleted).
	ErrNotFound = errors.New("not found")
	// ErrConflict reports that the article moved since the caller last
	// read it. The caller must re-fetch and retry; the core never retries.
	ErrConflict = errors.New("conflict")
	// ErrExpired reports a decision on an approval request past its
	// deadline. Treated like NotFound by callers: no longer actionable.
	ErrExpired = errors.New("approval request expired")
)

// ValidationError is a local input or guard violation, mapped to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PermissionError names only the minimum role and topic the caller lacks.
// It never mentions which grants the principal actually holds.
type PermissionError struct {
	Required permission.RoleLevel
	Topic    string
}

func (e *PermissionError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("requires %s role on at least one topic", e.Required)
	}
	return fmt.Sprintf("requires %s role on topic %q", e.Required, e.Topic)
}

// TransitionError reports an event that is not legal from the article's
// current status. It is part of the Conflict taxonomy: the state the caller
// acted on is not the state the article is in.
type TransitionError struct {
	From  string
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from status %q", e.Event, e.From)
}

// Is lets errors.Is(err, ErrConflict) match illegal transitions.
func (e *TransitionError) Is(target error) bool {
	return target == ErrConflict
}

// BuildError wraps a publication-artifact build failure after the builder
// exhausted its retries. The triggering transition is rolled back.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("publication resource build failed: %v", e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
