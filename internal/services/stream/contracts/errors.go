package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// StreamErrorType categorizes stream failure modes
type StreamErrorType int

const (
	// Expected outcome - not logged as an error
	ClientDisconnect StreamErrorType = iota

	// Failure outcomes - logged as errors
	ContentNotConsumed
	ProtocolViolation
	InternalError
)

// StreamError provides structured error handling for the stream layer
type StreamError struct {
	Type     StreamErrorType
	Message  string
	Cause    error
	StreamID string
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// IsExpected returns true if this error type is a normal way for an exchange
// to end (the client went away).
func (e *StreamError) IsExpected() bool {
	return e.Type == ClientDisconnect
}

// Protocol-usage sentinels. These surface through Send callbacks and Push
// returns rather than through content.
var (
	ErrPushNotSupported = errors.New("push not supported on this stream")
	ErrStreamUpgraded   = errors.New("stream upgraded: HTTP operations no longer valid")
	ErrStreamCompleted  = errors.New("stream already completed")
)

// Error constructors

func NewClientDisconnectError(streamID string, cause error) *StreamError {
	return &StreamError{
		Type:     ClientDisconnect,
		Message:  "client disconnected",
		Cause:    cause,
		StreamID: streamID,
	}
}

func NewContentNotConsumedError(streamID string) *StreamError {
	return &StreamError{
		Type:     ContentNotConsumed,
		Message:  "content not consumed",
		StreamID: streamID,
	}
}

func NewProtocolViolationError(streamID, message string) *StreamError {
	return &StreamError{
		Type:     ProtocolViolation,
		Message:  message,
		StreamID: streamID,
	}
}

func NewInternalError(streamID, message string, cause error) *StreamError {
	return &StreamError{
		Type:     InternalError,
		Message:  message,
		Cause:    cause,
		StreamID: streamID,
	}
}

// Helper functions

// IsClientDisconnect checks if error is a client disconnect
func IsClientDisconnect(err error) bool {
	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return streamErr.Type == ClientDisconnect
	}
	return false
}

// IsContentNotConsumed checks if error is a drain failure
func IsContentNotConsumed(err error) bool {
	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return streamErr.Type == ContentNotConsumed
	}
	return false
}

// IsExpectedError checks if error is expected (not a real error)
func IsExpectedError(err error) bool {
	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return streamErr.IsExpected()
	}
	return false
}

// IsConnectionClosed checks if error indicates closed connection
func IsConnectionClosed(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection closed") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "use of closed network connection")
}
