package api

import (
	"errors"
	"fmt"
)

// ErrNetwork matches every error returned by Client through errors.Is.
var ErrNetwork = errors.New("network error")

// TransportError means the exchange never completed: dial failures,
// broken connections, cancelled contexts.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: transport: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Is(target error) bool {
	return target == ErrNetwork
}

// StatusError is a completed exchange with a non-2xx status.
type StatusError struct {
	Op   string
	Code int
	Body string // truncated
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
}
func (e *StatusError) Is(target error) bool { return target == ErrNetwork }

// DecodeError is a 2xx response whose body was not the expected JSON.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string        { return fmt.Sprintf("%s: decode: %v", e.Op, e.Err) }
func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrNetwork }
