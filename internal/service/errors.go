package service

import (
	"errors"
	"fmt"
)

// Query failure kinds. Every error returned by Predictor.Predict is a
// *QueryError whose Kind is one of these.
var (
	ErrNoMatch     = errors.New("no match found for the entered team names")
	ErrUnseenLabel = errors.New("unseen team label")
	ErrData        = errors.New("data error")
)

// QueryError reports why a prediction could not be produced.
type QueryError struct {
	Kind  error
	Cause error
}

func (e *QueryError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *QueryError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Code is the stable identifier sent to API clients.
func (e *QueryError) Code() string {
	switch e.Kind {
	case ErrNoMatch:
		return "no_match"
	case ErrUnseenLabel:
		return "unseen_label"
	default:
		return "data_error"
	}
}

func queryError(kind, cause error) *QueryError {
	return &QueryError{Kind: kind, Cause: cause}
}
