package errors

import (
	stderrors "errors"
	"fmt"
)

// ClassifiedError is a categorized failure with an optional cause. It is
// created through ErrorBuilder and never mutated afterwards.
type ClassifiedError struct {
	category ErrorCategory
	message  string
	cause    error
	context  ErrorContext
}

func (e *ClassifiedError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("[%s] %s", e.category, e.message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.category, e.message, e.cause)
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory { return e.category }
func (e *ClassifiedError) Message() string         { return e.message }
func (e *ClassifiedError) Cause() error            { return e.cause }

// Context returns a copy of the structured fields.
func (e *ClassifiedError) Context() ErrorContext {
	out := make(ErrorContext, len(e.context))
	for k, v := range e.context {
		out[k] = v
	}
	return out
}

// AsClassified finds the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// GetCategory returns the category of the first ClassifiedError in err's
// chain, or "" when there is none.
func GetCategory(err error) ErrorCategory {
	if classified, ok := AsClassified(err); ok {
		return classified.Category()
	}
	return ""
}
