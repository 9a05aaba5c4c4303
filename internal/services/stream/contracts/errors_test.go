package contracts

import (
	"errors"
	"strings"
	"testing"
)

func TestIsConnectionClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"reset", errors.New("read tcp: connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed conn", errors.New("use of closed network connection"), true},
		{"explicit close", errors.New("connection closed"), true},
		{"timeout", errors.New("i/o timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConnectionClosed(tt.err); got != tt.want {
				t.Errorf("IsConnectionClosed(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClientDisconnectIsExpected(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := NewClientDisconnectError("s1", cause)

	if !IsClientDisconnect(err) {
		t.Error("IsClientDisconnect() = false for a disconnect error")
	}
	if !IsExpectedError(err) {
		t.Error("IsExpectedError() = false for a disconnect error")
	}
	if !errors.Is(err, cause) {
		t.Error("disconnect error does not unwrap to its cause")
	}
}

func TestFailureTypesAreNotExpected(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  *StreamError
	}{
		{"content not consumed", NewContentNotConsumedError("s1")},
		{"protocol violation", NewProtocolViolationError("s1", "send after last")},
		{"internal", NewInternalError("s1", "write failed", cause)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsExpectedError(tt.err) {
				t.Errorf("IsExpectedError(%v) = true, want false", tt.err)
			}
			if IsClientDisconnect(tt.err) {
				t.Errorf("IsClientDisconnect(%v) = true, want false", tt.err)
			}
		})
	}

	if msg := NewContentNotConsumedError("s1").Error(); !strings.Contains(msg, "content not consumed") {
		t.Errorf("message = %q, want it to name the unconsumed content", msg)
	}
}
