package shopapi

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindProtocol    Kind = "protocol"
	KindApplication Kind = "application"
)

var (
	// ErrNetwork the request never produced a readable response.
	ErrNetwork = errors.New("network failure")
	// ErrProtocol the response did not have the expected shape.
	ErrProtocol = errors.New("protocol violation")
	// ErrApplication the backend answered with success=false.
	ErrApplication = errors.New("application failure")
)

// Error is returned by every Client method.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	if e.Status != 0 {
		s += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		s += fmt.Sprintf(": %v", e.Err)
	}
	return s
}

// UserMessage returns the text suitable for showing to the user.
func (e *Error) UserMessage() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	out := []error{e.sentinel()}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindNetwork:
		return ErrNetwork
	case KindProtocol:
		return ErrProtocol
	default:
		return ErrApplication
	}
}

func networkError(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Message: "backend unreachable", Err: err}
}

func protocolError(op string, status int, format string, args ...interface{}) error {
	return &Error{Kind: KindProtocol, Op: op, Status: status, Message: fmt.Sprintf(format, args...)}
}

func applicationError(op string, status int, message string) error {
	if message == "" {
		message = op + " failed"
	}
	return &Error{Kind: KindApplication, Op: op, Status: status, Message: message}
}

// UserMessage extracts a displayable message from any error, falling back
// to fallback when err is not a backend error.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindApplication && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
