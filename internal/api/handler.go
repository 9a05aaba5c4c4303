package api

import (
	"context"
	"strings"

	"github.com/strandhttp/strand/internal/services/stream/contracts"
	"github.com/strandhttp/strand/internal/services/stream/engine"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Mux dispatches exchanges to handlers by request target prefix. Longest
// registered prefix wins; unmatched targets get a 404.
type Mux struct {
	routes []route
}

type route struct {
	prefix  string
	handler engine.Handler
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{}
}

// Handle registers h for targets starting with prefix.
func (m *Mux) Handle(prefix string, h engine.Handler) {
	m.routes = append(m.routes, route{prefix: prefix, handler: h})
}

// HandleFunc registers a function handler for targets starting with prefix.
func (m *Mux) HandleFunc(prefix string, h func(ctx context.Context, s contracts.Stream)) {
	m.Handle(prefix, engine.HandlerFunc(h))
}

// Serve implements engine.Handler.
func (m *Mux) Serve(ctx context.Context, s contracts.Stream) {
	target := ""
	if req := engine.RequestFrom(ctx); req != nil {
		target = req.Target
	}

	var best *route
	for i := range m.routes {
		r := &m.routes[i]
		if strings.HasPrefix(target, r.prefix) && (best == nil || len(r.prefix) > len(best.prefix)) {
			best = r
		}
	}
	if best == nil {
		fiberlog.Debugf("[%s] no handler for %q", s.ID(), target)
		NotFound{}.Serve(ctx, s)
		return
	}
	best.handler.Serve(ctx, s)
}

// NextContent blocks until s yields content, waking on demand notifications.
// A cancelled context surfaces as an Error content, keeping the caller's
// read loop uniform. The stream must implement contracts.DemandObserver for
// the wakeup to be delivered.
func NextContent(ctx context.Context, s contracts.Stream) *contracts.Content {
	for {
		if c := s.ReadContent(); c != nil {
			return c
		}

		wake := make(chan struct{}, 1)
		if o, ok := s.(contracts.DemandObserver); ok {
			o.OnDemand(func() {
				select {
				case wake <- struct{}{}:
				default:
				}
			})
		}
		s.DemandContent()

		select {
		case <-wake:
		case <-ctx.Done():
			return contracts.NewErrorContent(ctx.Err())
		}
	}
}
