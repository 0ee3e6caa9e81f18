package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented is returned for methods a channel does not serve.
	ErrNotImplemented = errors.New("not implemented")
	// ErrUnknownChannel is returned for channel names nobody serves.
	ErrUnknownChannel = errors.New("unknown channel")
)

// Error codes reported to callers.
const (
	CodeNotImplemented = "NOT_IMPLEMENTED"
	CodeUnknownChannel = "UNKNOWN_CHANNEL"
	CodeBadArguments   = "BAD_ARGUMENTS"
	CodeInternal       = "INTERNAL"
)

// ArgumentError reports arguments that do not match the method.
type ArgumentError struct {
	Method string
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Method, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// Code maps err to the code reported to callers.
func Code(err error) string {
	var argErr *ArgumentError
	switch {
	case errors.Is(err, ErrNotImplemented):
		return CodeNotImplemented
	case errors.Is(err, ErrUnknownChannel):
		return CodeUnknownChannel
	case errors.As(err, &argErr):
		return CodeBadArguments
	default:
		return CodeInternal
	}
}
