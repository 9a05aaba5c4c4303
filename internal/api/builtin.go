package api

import (
	"context"

	"github.com/strandhttp/strand/internal/models"
	"github.com/strandhttp/strand/internal/services/stream/contracts"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// sendAwait issues a Send and blocks the handler task until the write's
// completion callback fires.
func sendAwait(s contracts.Stream, meta *models.ResponseMetadata, last bool, chunks ...[]byte) error {
	done := make(chan error, 1)
	s.Send(meta, last, contracts.CallbackFunc{
		OnSuccess: func() { done <- nil },
		OnFailure: func(err error) { done <- err },
	}, chunks...)
	return <-done
}

// Echo streams the request body straight back to the client, chunk by chunk,
// releasing each chunk once it has been written.
type Echo struct{}

func (Echo) Serve(ctx context.Context, s contracts.Stream) {
	meta := &models.ResponseMetadata{
		Status:  200,
		Headers: map[string]string{"Content-Type": "application/octet-stream"},
	}

	first := true
	for {
		c := NextContent(ctx, s)

		if c.Kind() == contracts.KindError {
			c.Release()
			if contracts.IsClientDisconnect(c.Err()) {
				fiberlog.Debugf("[%s] echo aborted: client disconnected", s.ID())
			} else {
				fiberlog.Warnf("[%s] echo aborted: %v", s.ID(), c.Err())
			}
			s.Failed(c.Err())
			return
		}

		var m *models.ResponseMetadata
		if first {
			m = meta
			first = false
		}

		if c.Kind() == contracts.KindEOF {
			if err := sendAwait(s, m, true); err != nil {
				s.Failed(contracts.NewInternalError(s.ID(), "response write failed", err))
				return
			}
			s.Succeeded()
			return
		}

		last := c.IsLast()
		err := sendAwait(s, m, last, c.Bytes())
		c.Release()
		if err != nil {
			s.Failed(contracts.NewInternalError(s.ID(), "response write failed", err))
			return
		}
		if last {
			s.Succeeded()
			return
		}
	}
}

// Discard reads the request body to its end, releases everything, and
// replies 204.
type Discard struct{}

func (Discard) Serve(ctx context.Context, s contracts.Stream) {
	for {
		c := NextContent(ctx, s)
		c.Release()

		if c.Kind() == contracts.KindError {
			s.Failed(c.Err())
			return
		}
		if c.IsLast() {
			break
		}
	}

	if err := sendAwait(s, &models.ResponseMetadata{Status: 204}, true); err != nil {
		s.Failed(err)
		return
	}
	s.Succeeded()
}

// Status replies with a fixed status and body without touching the request
// content; the engine's drain finishes the exchange's input side.
type Status struct {
	Code int
	Body string
}

func (h Status) Serve(ctx context.Context, s contracts.Stream) {
	meta := &models.ResponseMetadata{
		Status:  h.Code,
		Headers: map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
	if err := sendAwait(s, meta, true, []byte(h.Body)); err != nil {
		s.Failed(err)
		return
	}
	s.Succeeded()
}

// NotFound is the mux fallback.
type NotFound struct{}

func (NotFound) Serve(ctx context.Context, s contracts.Stream) {
	Status{Code: 404, Body: "not found"}.Serve(ctx, s)
}
