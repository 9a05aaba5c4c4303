package contracts

import (
	"sync/atomic"

	"github.com/strandhttp/strand/internal/utils"

	"github.com/valyala/bytebufferpool"
)

// ContentKind tags the three variants of exchange-body content.
type ContentKind int

const (
	// KindChunk carries body bytes; the final chunk has IsLast set.
	KindChunk ContentKind = iota
	// KindEOF marks clean end of input. Persistent: once read, every later
	// read returns it again.
	KindEOF
	// KindError marks failed end of input. Persistent like KindEOF.
	KindError
)

// Content is one unit of exchange-body data or a terminal sentinel. Chunk
// payloads are drawn from the shared buffer pool and must be released by the
// reader; sentinels make Release a no-op so a single drain loop can release
// unconditionally.
type Content struct {
	kind     ContentKind
	buf      *bytebufferpool.ByteBuffer
	last     bool
	cause    error
	released atomic.Bool
}

// Shared EOF instance. Streams replay it on every read past end of input.
var eofContent = &Content{kind: KindEOF, last: true}

// NewChunk wraps a pooled buffer as body content. The reader owns buf until
// it calls Release.
func NewChunk(buf *bytebufferpool.ByteBuffer, last bool) *Content {
	return &Content{kind: KindChunk, buf: buf, last: last}
}

// EOF returns the shared end-of-input sentinel.
func EOF() *Content {
	return eofContent
}

// NewErrorContent wraps a transport or protocol failure as content, so read
// loops see errors as ordinary return values instead of a second code path.
func NewErrorContent(cause error) *Content {
	return &Content{kind: KindError, last: true, cause: cause}
}

// Kind reports which variant this content is.
func (c *Content) Kind() ContentKind {
	return c.kind
}

// Bytes returns the chunk payload, nil for sentinels or after Release.
func (c *Content) Bytes() []byte {
	if c.kind != KindChunk || c.released.Load() {
		return nil
	}
	return c.buf.B
}

// IsLast reports whether no further body content follows. True for the final
// chunk and for both terminal sentinels.
func (c *Content) IsLast() bool {
	return c.last
}

// Terminal reports whether this content is a persistent sentinel.
func (c *Content) Terminal() bool {
	return c.kind != KindChunk
}

// Err returns the failure cause, non-nil only for KindError.
func (c *Content) Err() error {
	return c.cause
}

// Release returns the chunk's backing buffer to the pool. Idempotent, and a
// no-op for sentinels. The payload must not be touched after Release: the
// buffer may back another stream's chunk immediately.
func (c *Content) Release() {
	if c.kind != KindChunk {
		return
	}
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	buf := c.buf
	c.buf = nil
	utils.Put(buf)
}
