package engine

import (
	"io"
	"net"
	"sync"

	"github.com/strandhttp/strand/internal/models"
	"github.com/strandhttp/strand/internal/services/stream/contracts"
	"github.com/strandhttp/strand/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"
)

// readChunkSize is how much body is pulled from the transport per chunk.
const readChunkSize = 32 * 1024

// Stream is the engine-side implementation of contracts.Stream for one
// HTTP/1 exchange. The body pump goroutine is the producer side; the handler
// task is the consumer side. All shared state sits behind one mutex, with a
// condition variable throttling the pump to the content window.
type Stream struct {
	id  string
	ctx *fasthttp.RequestCtx

	mu     sync.Mutex
	space  *sync.Cond
	window int

	queue    []*contracts.Content
	terminal *contracts.Content

	demand   bool
	onDemand func()

	// discard drops pumped chunks instead of queueing them; flipped when
	// the exchange is being torn down and nobody will read the queue.
	discard      bool
	aborted      bool
	readTerminal bool

	upgraded    bool
	respStarted bool
	respClosed  bool

	complete    bool
	failure     error
	completions int
	onDouble    func(id string)

	pumpDone chan struct{}
}

func newStream(id string, ctx *fasthttp.RequestCtx, window int, onDouble func(id string)) *Stream {
	if window <= 0 {
		window = 1
	}
	s := &Stream{
		id:       id,
		ctx:      ctx,
		window:   window,
		onDouble: onDouble,
		pumpDone: make(chan struct{}),
	}
	s.space = sync.NewCond(&s.mu)
	return s
}

// pump reads the request body into pooled chunks, honoring the content
// window: it only reads ahead while the queue has room, which is what turns
// handler consumption pace into transport backpressure.
func (s *Stream) pump(body io.Reader) {
	defer close(s.pumpDone)

	for {
		s.mu.Lock()
		for len(s.queue) >= s.window && !s.aborted && !s.discard {
			s.space.Wait()
		}
		if s.aborted {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		buf := utils.Get()
		if cap(buf.B) < readChunkSize {
			buf.B = make([]byte, readChunkSize)
		} else {
			buf.B = buf.B[:readChunkSize]
		}

		n, err := body.Read(buf.B)
		buf.B = buf.B[:n]

		if n > 0 {
			s.offer(contracts.NewChunk(buf, false))
		} else {
			utils.Put(buf)
		}

		if err == io.EOF {
			s.offer(contracts.EOF())
			return
		}
		if err != nil {
			// Transport failures become content, not faults: the read
			// path stays uniform for the consumer. A torn connection is
			// an expected ending, so classify it before it travels.
			if contracts.IsConnectionClosed(err) {
				err = contracts.NewClientDisconnectError(s.id, err)
			}
			s.offer(contracts.NewErrorContent(err))
			return
		}
	}
}

func (s *Stream) offer(c *contracts.Content) {
	s.mu.Lock()
	if s.discard && !c.Terminal() {
		s.mu.Unlock()
		c.Release()
		return
	}
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

func (s *Stream) takeDemandLocked() func() {
	if !s.demand {
		return nil
	}
	s.demand = false
	return s.onDemand
}

// beginDiscard flips the pump into read-and-drop mode and releases anything
// already queued. The terminal sentinel is kept so a following drain still
// observes the outcome.
func (s *Stream) beginDiscard() {
	s.mu.Lock()
	s.discard = true
	for _, c := range s.queue {
		c.Release()
	}
	s.queue = nil
	s.space.Broadcast()
	s.mu.Unlock()
}

// abort stops the pump without reading the body to its end. Used on upgrade,
// where the remaining bytes belong to the next protocol.
func (s *Stream) abort() {
	s.mu.Lock()
	s.aborted = true
	for _, c := range s.queue {
		c.Release()
	}
	s.queue = nil
	s.space.Broadcast()
	s.mu.Unlock()
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
		s.space.Signal()
		return c
	}
	if s.terminal != nil {
		s.readTerminal = true
		return s.terminal
	}
	return nil
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

	if notify != nil {
		notify()
	}
}

// OnDemand sets the target for demand notifications. The handler runtime
// registers its wakeup here before demanding.
func (s *Stream) OnDemand(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDemand = fn
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
	case s.respClosed:
		s.mu.Unlock()
		cb.Failed(contracts.NewProtocolViolationError(s.id, "send after last response content"))
		return
	}
	first := !s.respStarted
	s.respStarted = true
	if last {
		s.respClosed = true
	}
	s.mu.Unlock()

	if first && meta != nil {
		s.ctx.SetStatusCode(meta.Status)
		for k, v := range meta.Headers {
			s.ctx.Response.Header.Set(k, v)
		}
	}
	for _, chunk := range chunks {
		s.ctx.Response.AppendBody(chunk)
	}
	cb.Succeeded()
}

// IsPushSupported is always false on HTTP/1 exchanges.
func (s *Stream) IsPushSupported() bool {
	return false
}

func (s *Stream) Push(req *models.RequestMetadata) error {
	return contracts.ErrPushNotSupported
}

func (s *Stream) Upgrade(next contracts.ConnHandler) error {
	s.mu.Lock()
	if s.upgraded {
		s.mu.Unlock()
		return contracts.ErrStreamUpgraded
	}
	// One transition: unread body bytes now belong to the next protocol,
	// the pump stops, and HTTP-level reads observe the upgrade sentinel.
	// No read can land between the handoff and the sentinel.
	s.upgraded = true
	s.aborted = true
	for _, c := range s.queue {
		c.Release()
	}
	s.queue = nil
	s.terminal = contracts.NewErrorContent(contracts.ErrStreamUpgraded)
	s.space.Broadcast()
	s.mu.Unlock()

	// The hijack handler runs after the buffered response (e.g. the 101)
	// has been written out.
	s.ctx.Hijack(func(conn net.Conn) {
		next(conn)
	})
	return nil
}

func (s *Stream) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// Upgraded reports whether the exchange left HTTP framing.
func (s *Stream) Upgraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upgraded
}

// Failure returns the completion failure, nil after success or before
// completion.
func (s *Stream) Failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

func (s *Stream) sawTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readTerminal
}

func (s *Stream) Succeeded() {
	s.completeWith(nil)
}

func (s *Stream) Failed(err error) {
	s.completeWith(err)
}

func (s *Stream) completeWith(err error) {
	s.mu.Lock()
	s.completions++
	if s.completions > 1 {
		s.mu.Unlock()
		// Exactly-once violated by the caller; keep the first outcome and
		// make the bug loud.
		fiberlog.Errorf("[%s] stream completed twice", s.id)
		if s.onDouble != nil {
			s.onDouble(s.id)
		}
		return
	}
	s.complete = true
	s.failure = err
	s.mu.Unlock()
}
