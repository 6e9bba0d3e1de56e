package calculator

import (
	"errors"
	"fmt"
)

// ErrorKind classifies calculator failures
type ErrorKind string

const (
	// ParseFailure means the input is not a valid expression
	ParseFailure ErrorKind = "parse_failure"

	// PlotFailure means the expression could not be sampled or drawn
	PlotFailure ErrorKind = "plot_failure"
)

// Error is a failure reported to the user. Description is the text shown
// in the error banner.
type Error struct {
	Kind        ErrorKind
	Description string
	Err         error
}

func (e *Error) Error() string {
	return e.Description
}

func (e *Error) Unwrap() error {
	return e.Err
}

func failure(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Description: err.Error(), Err: err}
}

func panicFailure(kind ErrorKind, rec interface{}) *Error {
	err := fmt.Errorf("internal error: %v", rec)
	return failure(kind, err)
}

// KindOf returns the kind of a calculator error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
