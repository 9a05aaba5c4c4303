package engine

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/strandhttp/strand/internal/models"
	"github.com/strandhttp/strand/internal/services/stream/contracts"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"
)

// Handler processes one exchange through its Stream. It must either read the
// request content to its terminal sentinel or leave the rest to the engine's
// drain, and report the outcome through the stream's completion callback —
// or return without completing, in which case the engine completes for it.
type Handler interface {
	Serve(ctx context.Context, s contracts.Stream)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, s contracts.Stream)

func (f HandlerFunc) Serve(ctx context.Context, s contracts.Stream) {
	f(ctx, s)
}

// Engine is the connection-engine side of the stream contract: it accepts
// HTTP/1 connections through fasthttp, turns every request into a Stream,
// pumps body content on demand, and guarantees each exchange reaches a clean
// terminal state before its connection is reused.
type Engine struct {
	handler Handler
	window  int
	server  *fasthttp.Server

	streams           atomic.Int64
	doubleCompletions atomic.Int64
}

// New builds an engine serving h with the given server configuration.
func New(cfg *models.ServerConfig, h Handler) *Engine {
	e := &Engine{
		handler: h,
		window:  cfg.ContentWindow,
	}
	e.server = &fasthttp.Server{
		Handler:                      e.handleRequest,
		Name:                         "strand",
		StreamRequestBody:            true,
		DisablePreParseMultipartForm: true,
		ReadBufferSize:               cfg.ReadBufferSize,
		MaxRequestBodySize:           cfg.MaxBodySize,
	}
	return e
}

// ListenAndServe blocks serving on addr until Shutdown.
func (e *Engine) ListenAndServe(addr string) error {
	fiberlog.Infof("engine listening on %s", addr)
	return e.server.ListenAndServe(addr)
}

// Serve blocks serving on an existing listener. Used by tests with in-memory
// listeners.
func (e *Engine) Serve(ln net.Listener) error {
	return e.server.Serve(ln)
}

// Shutdown drains the server gracefully.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.server.ShutdownWithContext(ctx)
}

// ActiveStreams reports how many exchanges are in flight.
func (e *Engine) ActiveStreams() int64 {
	return e.streams.Load()
}

// DoubleCompletions reports how many exchanges were completed more than
// once. Anything above zero is a handler bug.
func (e *Engine) DoubleCompletions() int64 {
	return e.doubleCompletions.Load()
}

func (e *Engine) handleRequest(ctx *fasthttp.RequestCtx) {
	id := fmt.Sprintf("%d-%d", ctx.ConnID(), ctx.ConnRequestNum())
	s := newStream(id, ctx, e.window, func(id string) {
		e.doubleCompletions.Add(1)
	})

	e.streams.Add(1)
	defer e.streams.Add(-1)

	start := time.Now()
	fiberlog.Debugf("[%s] stream opened: %s %s", id, ctx.Method(), ctx.Path())

	if body := ctx.RequestBodyStream(); body != nil && ctx.Request.Header.ContentLength() != 0 {
		go s.pump(body)
	} else {
		// No body: the exchange starts at end of input.
		s.offer(contracts.EOF())
		close(s.pumpDone)
	}

	// RequestCtx implements context.Context; its Done channel fires on
	// client disconnect and server shutdown.
	e.handler.Serve(WithRequest(ctx, requestMetadata(ctx)), s)

	e.finish(s)

	fiberlog.Debugf("[%s] stream closed in %v", id, time.Since(start))
}

// finish brings the exchange to its terminal state after the handler has
// returned, draining unread content so trailing bytes cannot corrupt framing
// for the next exchange on the connection.
func (e *Engine) finish(s *Stream) {
	if s.Upgraded() {
		// The raw connection belongs to the next protocol now; nothing
		// left to drain at the HTTP level.
		if !s.IsComplete() {
			s.Succeeded()
		}
		return
	}

	var drainErr error
	if !s.sawTerminal() {
		// Let the pump read the rest of the body in discard mode, so the
		// drain below finds content ready instead of failing on a gap.
		s.beginDiscard()
		<-s.pumpDone
		drainErr = contracts.ConsumeAll(s)
	}

	if !s.IsComplete() {
		// The handler never reported an outcome; the drain result decides.
		if drainErr != nil {
			s.Failed(drainErr)
		} else {
			s.Succeeded()
		}
	} else if drainErr != nil && s.Failure() == nil {
		// Handler claimed success but content could not be consumed:
		// the exchange still ends abnormally.
		fiberlog.Warnf("[%s] drain failed after handler success: %v", s.id, drainErr)
		s.ctx.SetConnectionClose()
		return
	}

	if err := s.Failure(); err != nil {
		if contracts.IsExpectedError(err) {
			// The client is gone; nothing to answer, nobody to reuse the
			// connection for.
			fiberlog.Debugf("[%s] stream ended: %v", s.id, err)
			s.ctx.SetConnectionClose()
			return
		}
		fiberlog.Errorf("[%s] stream failed: %v", s.id, err)
		if !s.respStarted {
			s.ctx.Error("internal server error", fasthttp.StatusInternalServerError)
		}
		// Abnormal termination: never reuse the connection.
		s.ctx.SetConnectionClose()
	}
}
