package strand

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/strandhttp/strand/internal/api"
	"github.com/strandhttp/strand/internal/config"
	"github.com/strandhttp/strand/internal/services/stream/engine"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// Server ties the stream engine, the handler mux and the ops surface into
// one runnable unit.
type Server struct {
	config *config.Config
	mux    *api.Mux
	engine *engine.Engine
	opsApp *fiber.App
}

// NewServer creates a new Server instance with the given configuration.
// The cfg parameter is required and must not be nil.
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() to create config")
	}
	return &Server{
		config: cfg,
		mux:    api.NewMux(),
	}
}

// Handle registers h for request targets starting with prefix.
func (s *Server) Handle(prefix string, h engine.Handler) {
	s.mux.Handle(prefix, h)
}

// Run starts the engine (and the ops app when enabled) and blocks until a
// shutdown signal or a server error.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(s.config)

	s.engine = engine.New(&s.config.Server, s.mux)

	listenAddr := ":" + s.config.Server.Port

	fmt.Printf("strand starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", s.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.engine.ListenAndServe(listenAddr); err != nil {
			return fmt.Errorf("engine error: %w", err)
		}
		return nil
	})

	if s.config.Ops.Enabled {
		s.opsApp = api.NewOpsApp(s.engine)
		opsAddr := ":" + s.config.Ops.Port
		g.Go(func() error {
			fiberlog.Infof("ops surface listening on %s", opsAddr)
			if err := s.opsApp.Listen(opsAddr); err != nil {
				return fmt.Errorf("ops server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		fiberlog.Info("Server shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.engine.Shutdown(shutdownCtx); err != nil {
			fiberlog.Errorf("Engine shutdown error: %v", err)
		}
		if s.opsApp != nil {
			if err := s.opsApp.ShutdownWithTimeout(shutdownTimeout); err != nil {
				fiberlog.Errorf("Ops shutdown error: %v", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fiberlog.Info("Server shutdown completed successfully")
	return nil
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info", "":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}
}
