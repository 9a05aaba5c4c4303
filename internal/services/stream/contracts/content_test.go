package contracts

import (
	"errors"
	"testing"

	"github.com/strandhttp/strand/internal/utils"
)

func TestChunkReleaseIsIdempotent(t *testing.T) {
	buf := utils.Get()
	buf.B = append(buf.B[:0], "payload"...)
	c := NewChunk(buf, false)

	if got := string(c.Bytes()); got != "payload" {
		t.Fatalf("Bytes() = %q, want %q", got, "payload")
	}

	c.Release()
	if c.Bytes() != nil {
		t.Errorf("Bytes() after Release = %v, want nil", c.Bytes())
	}

	// Second release must not panic or double-free the buffer.
	c.Release()
}

func TestSentinelReleaseIsNoop(t *testing.T) {
	cause := errors.New("reset")

	tests := []struct {
		name    string
		content *Content
		kind    ContentKind
	}{
		{"eof", EOF(), KindEOF},
		{"error", NewErrorContent(cause), KindError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.content.Release()
			tt.content.Release()

			if tt.content.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", tt.content.Kind(), tt.kind)
			}
			if !tt.content.IsLast() {
				t.Error("IsLast() = false, want true for terminal sentinel")
			}
			if !tt.content.Terminal() {
				t.Error("Terminal() = false, want true")
			}
			if tt.content.Bytes() != nil {
				t.Errorf("Bytes() = %v, want nil", tt.content.Bytes())
			}
		})
	}

	if err := NewErrorContent(cause).Err(); !errors.Is(err, cause) {
		t.Errorf("Err() = %v, want %v", err, cause)
	}
	if err := EOF().Err(); err != nil {
		t.Errorf("EOF().Err() = %v, want nil", err)
	}
}

func TestEOFIsShared(t *testing.T) {
	if EOF() != EOF() {
		t.Error("EOF() returned distinct instances")
	}
}

func TestLastChunk(t *testing.T) {
	buf := utils.Get()
	buf.B = append(buf.B[:0], "tail"...)
	c := NewChunk(buf, true)
	defer c.Release()

	if !c.IsLast() {
		t.Error("IsLast() = false for last chunk")
	}
	if c.Terminal() {
		t.Error("Terminal() = true for chunk content")
	}
}
