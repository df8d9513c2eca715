package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrMissingGroupName   = fmt.Errorf("group name is required")
	ErrMissingMemberName  = fmt.Errorf("member name is required")
	ErrNoGroupJoined      = fmt.Errorf("connection has not joined a group")
	ErrAlreadyJoined      = fmt.Errorf("connection already joined a group")
	ErrStorageUnavailable = fmt.Errorf("registry snapshot unavailable")
	ErrStorageCorrupt     = fmt.Errorf("registry snapshot corrupt")
)

// ValidationError reports the first malformed field of an update
// payload. It is user input, not a system fault.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MapToHTTPStatus translates domain failures into transport statuses.
// Anything unrecognized is a server fault.
func MapToHTTPStatus(err error) int {
	var validation ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.As(err, &validation),
		stderrors.Is(err, ErrMissingGroupName),
		stderrors.Is(err, ErrMissingMemberName),
		stderrors.Is(err, ErrNoGroupJoined),
		stderrors.Is(err, ErrAlreadyJoined):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
