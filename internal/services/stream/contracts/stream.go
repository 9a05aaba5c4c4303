package contracts

import (
	"net"

	"github.com/strandhttp/strand/internal/models"
)

// Callback receives the outcome of an asynchronous operation exactly once.
type Callback interface {
	Succeeded()
	Failed(err error)
}

// CallbackFunc adapts plain functions to Callback. Nil fields are ignored.
type CallbackFunc struct {
	OnSuccess func()
	OnFailure func(error)
}

func (cb CallbackFunc) Succeeded() {
	if cb.OnSuccess != nil {
		cb.OnSuccess()
	}
}

func (cb CallbackFunc) Failed(err error) {
	if cb.OnFailure != nil {
		cb.OnFailure(err)
	}
}

// NopCallback discards the outcome.
var NopCallback Callback = CallbackFunc{}

// ConnHandler takes ownership of the raw network connection after a stream
// leaves HTTP framing.
type ConnHandler func(conn net.Conn)

// DemandObserver is implemented by streams whose demand notifications can be
// pointed at a consumer-chosen target. Consumers register their wakeup
// before calling DemandContent.
type DemandObserver interface {
	OnDemand(fn func())
}

// Stream is the handle for one request/response exchange on a connection:
// demand-driven read of request content on one side, metadata-based response
// writes on the other.
//
// Reads never block. ReadContent returns nil when nothing is available; the
// caller then registers interest with DemandContent and waits for the
// engine's notification instead of polling. Once a terminal sentinel (EOF or
// Error) has been returned it is returned again on every later read, so code
// that lost track of stream state can still observe the outcome safely.
//
// The Stream is also the exchange's completion sink: the handler reports the
// outcome through the embedded Callback, and the terminal transition happens
// exactly once. Completing a stream twice is a programming error.
type Stream interface {
	Callback

	// ID returns the exchange's identity, unique within its connection.
	ID() string

	// ReadContent returns the next content, or nil when none is available
	// yet. Callers must not busy-poll on nil; use DemandContent.
	ReadContent() *Content

	// DemandContent registers one-shot interest in content becoming
	// available. If content is already available the notification fires
	// immediately; a demand is never silently dropped.
	DemandContent()

	// Send writes response metadata (first call) and body chunks; last
	// marks the end of the response body. The write completes
	// asynchronously through cb, never by blocking the caller. No Send is
	// valid after last=true.
	Send(meta *models.ResponseMetadata, last bool, cb Callback, chunks ...[]byte)

	// IsPushSupported reports whether the underlying protocol can push.
	// Check before calling Push.
	IsPushSupported() bool

	// Push initiates a server push for req. On streams without push
	// support it returns ErrPushNotSupported and initiates nothing.
	Push(req *models.RequestMetadata) error

	// Upgrade hands the underlying connection to next and ends HTTP-level
	// stream semantics: later reads return an Error sentinel and later
	// sends fail their callback with ErrStreamUpgraded.
	Upgrade(next ConnHandler) error

	// IsComplete reports whether the terminal state has been reached.
	IsComplete() bool
}

// ConsumeAll reads and releases remaining request content so no unread bytes
// are left to corrupt framing for later exchanges on the connection. It
// returns nil once the last content has been consumed, and the failure
// reason otherwise.
//
// Draining is deliberately non-blocking: a nil read fails immediately with a
// content-not-consumed error rather than waiting a demand cycle. Callers use
// it only when content is ready or about to be; on a non-nil result they
// fail the stream instead of completing it.
func ConsumeAll(s Stream) error {
	for {
		// Reading again is always safe here: EOF and Error content is
		// persistently returned.
		content := s.ReadContent()

		if content == nil {
			return NewContentNotConsumedError(s.ID())
		}

		// Release unconditionally; a no-op for EOF and Error content.
		content.Release()

		if content.Kind() == KindError {
			return content.Err()
		}

		if content.IsLast() {
			return nil
		}
	}
}
