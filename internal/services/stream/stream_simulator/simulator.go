package stream_simulator

import (
	"net"
	"sync"

	"github.com/strandhttp/strand/internal/models"
	"github.com/strandhttp/strand/internal/services/stream/contracts"
	"github.com/strandhttp/strand/internal/utils"
)

// SentResponse records one Send call made against a simulated stream.
type SentResponse struct {
	Meta   *models.ResponseMetadata
	Last   bool
	Chunks [][]byte
}

// Stream is a scripted contracts.Stream: tests and local development enqueue
// content on the producer side and observe every handler-side call. It keeps
// the same demand and sentinel-persistence rules as the real engine streams.
type Stream struct {
	mu sync.Mutex

	id       string
	queue    []*contracts.Content
	terminal *contracts.Content

	demand   bool
	onDemand func()

	pushSupported bool
	pushed        []*models.RequestMetadata

	sends      []SentResponse
	sendClosed bool

	upgraded    bool
	upgradeConn net.Conn

	complete        bool
	failure         error
	completions     int
	doubleCompleted bool
}

// NewStream creates an empty simulated stream.
func NewStream(id string) *Stream {
	return &Stream{id: id}
}

// SetPushSupported toggles the push capability reported by the stream.
func (s *Stream) SetPushSupported(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushSupported = ok
}

// OnDemand sets the notification target fired when demanded content becomes
// available.
func (s *Stream) OnDemand(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDemand = fn
}

// SetConn sets the raw connection handed over on Upgrade.
func (s *Stream) SetConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upgradeConn = conn
}

// Offer enqueues prebuilt content, firing a pending demand notification.
// Useful when a test needs to keep its own reference to the content.
func (s *Stream) Offer(c *contracts.Content) {
	s.offer(c)
}

// OfferChunk copies data into a pooled buffer and enqueues it as body
// content, firing a pending demand notification.
func (s *Stream) OfferChunk(data []byte, last bool) {
	buf := utils.Get()
	buf.B = append(buf.B[:0], data...)
	s.offer(contracts.NewChunk(buf, last))
}

// OfferEOF enqueues the end-of-input sentinel.
func (s *Stream) OfferEOF() {
	s.offer(contracts.EOF())
}

// OfferError enqueues a failed-end sentinel with the given cause.
func (s *Stream) OfferError(cause error) {
	s.offer(contracts.NewErrorContent(cause))
}

func (s *Stream) offer(c *contracts.Content) {
	s.mu.Lock()
	if c.Terminal() {
		s.terminal = c
	} else {
		s.queue = append(s.queue, c)
	}
	notify := s.takeDemandLocked()
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// takeDemandLocked consumes an armed demand and returns its notification
// target, nil when no demand is pending.
func (s *Stream) takeDemandLocked() func() {
	if !s.demand {
		return nil
	}
	s.demand = false
	return s.onDemand
}

func (s *Stream) ID() string {
	return s.id
}

func (s *Stream) ReadContent() *contracts.Content {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		return c
	}
	// Terminal sentinels persist across reads.
	return s.terminal
}

func (s *Stream) DemandContent() {
	s.mu.Lock()
	available := len(s.queue) > 0 || s.terminal != nil
	var notify func()
	if available {
		notify = s.onDemand
	} else {
		s.demand = true
	}
	s.mu.Unlock()

	// Demand against already-available content notifies immediately; it is
	// never silently dropped.
	if notify != nil {
		notify()
	}
}

func (s *Stream) Send(meta *models.ResponseMetadata, last bool, cb contracts.Callback, chunks ...[]byte) {
	if cb == nil {
		cb = contracts.NopCallback
	}

	s.mu.Lock()
	switch {
	case s.upgraded:
		s.mu.Unlock()
		cb.Failed(contracts.ErrStreamUpgraded)
		return
	case s.complete:
		s.mu.Unlock()
		cb.Failed(contracts.ErrStreamCompleted)
		return
	case s.sendClosed:
		s.mu.Unlock()
		cb.Failed(contracts.NewProtocolViolationError(s.id, "send after last response content"))
		return
	}

	copied := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		copied[i] = append([]byte(nil), chunk...)
	}
	s.sends = append(s.sends, SentResponse{Meta: meta, Last: last, Chunks: copied})
	if last {
		s.sendClosed = true
	}
	s.mu.Unlock()

	cb.Succeeded()
}

func (s *Stream) IsPushSupported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushSupported
}

func (s *Stream) Push(req *models.RequestMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pushSupported {
		return contracts.ErrPushNotSupported
	}
	s.pushed = append(s.pushed, req)
	return nil
}

func (s *Stream) Upgrade(next contracts.ConnHandler) error {
	s.mu.Lock()
	if s.upgraded {
		s.mu.Unlock()
		return contracts.ErrStreamUpgraded
	}
	s.upgraded = true
	// HTTP-level reads are over; later reads observe the upgrade as an
	// error sentinel.
	s.terminal = contracts.NewErrorContent(contracts.ErrStreamUpgraded)
	s.queue = nil
	conn := s.upgradeConn
	s.mu.Unlock()

	if next != nil {
		next(conn)
	}
	return nil
}

func (s *Stream) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

func (s *Stream) Succeeded() {
	s.completeWith(nil)
}

func (s *Stream) Failed(err error) {
	s.completeWith(err)
}

func (s *Stream) completeWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions++
	if s.completions > 1 {
		// Double completion is a programming error; keep the first outcome
		// and leave the evidence for tests.
		s.doubleCompleted = true
		return
	}
	s.complete = true
	s.failure = err
}

// Observers for tests.

// Sends returns every Send recorded so far.
func (s *Stream) Sends() []SentResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentResponse(nil), s.sends...)
}

// Pushed returns every pushed request.
func (s *Stream) Pushed() []*models.RequestMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.RequestMetadata(nil), s.pushed...)
}

// Failure returns the completion failure, nil after success.
func (s *Stream) Failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Completions returns how many times the stream was completed.
func (s *Stream) Completions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completions
}

// DoubleCompleted reports whether the stream was completed more than once.
func (s *Stream) DoubleCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doubleCompleted
}

// Upgraded reports whether Upgrade was called.
func (s *Stream) Upgraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upgraded
}
