package errors

import (
	stderrors "errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type ErrorType string

const (
	ErrTypeSourceFetch   ErrorType = "SOURCE_FETCH"
	ErrTypeNoPostings    ErrorType = "NO_POSTINGS"
	ErrTypePersistence   ErrorType = "PERSISTENCE"
	ErrTypeConflict      ErrorType = "CONFLICT"
	ErrTypeInvalidConfig ErrorType = "INVALID_CONFIG"
	ErrTypeInternal      ErrorType = "INTERNAL"
)

type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func SourceFetch(message string, err error) *DomainError {
	return New(ErrTypeSourceFetch, message, err)
}

func NoPostings(message string) *DomainError {
	return New(ErrTypeNoPostings, message, nil)
}

func Persistence(message string, err error) *DomainError {
	return New(ErrTypePersistence, message, err)
}

func Conflict(message string, err error) *DomainError {
	return New(ErrTypeConflict, message, err)
}

func InvalidConfig(message string, err error) *DomainError {
	return New(ErrTypeInvalidConfig, message, err)
}

func Internal(message string, err error) *DomainError {
	return New(ErrTypeInternal, message, err)
}

// TypeOf reports the ErrorType of the first DomainError in err's chain,
// or ErrTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Type
	}
	return ErrTypeInternal
}

// StackOf returns the stack recorded by the first DomainError in err's chain.
func StackOf(err error) []byte {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.StackTrace()
	}
	return nil
}

func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}
