// Package server wires the live card grid into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gabrielmiguelok/cardgrid/client"
	"github.com/gabrielmiguelok/cardgrid/internal/config"
	"github.com/gabrielmiguelok/cardgrid/internal/gridview"
	"github.com/gabrielmiguelok/cardgrid/internal/watch"
	"github.com/gabrielmiguelok/cardgrid/pkg/content"
	"github.com/gabrielmiguelok/cardgrid/pkg/dom"
	"github.com/gabrielmiguelok/cardgrid/pkg/health"
	"github.com/gabrielmiguelok/cardgrid/pkg/limits"
	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
	"github.com/gabrielmiguelok/cardgrid/pkg/metrics"
	"github.com/gabrielmiguelok/cardgrid/pkg/page"
	"github.com/gabrielmiguelok/cardgrid/pkg/protocol"
	"github.com/gabrielmiguelok/cardgrid/pkg/pubsub"
	"github.com/gabrielmiguelok/cardgrid/pkg/retry"
	"github.com/gabrielmiguelok/cardgrid/pkg/router"
	"github.com/gabrielmiguelok/cardgrid/pkg/shutdown"
	"github.com/gabrielmiguelok/cardgrid/pkg/textutil"
	"github.com/gabrielmiguelok/cardgrid/pkg/transport"
)

// AssetPrefix is where the embedded client assets are served.
const AssetPrefix = "/_live/"

// Server serves the card grid page and its live sessions.
type Server struct {
	cfg     *config.Config
	logger  logging.Logger
	version string

	loader  *page.Loader
	ps      *pubsub.MemoryPubSub
	live    *router.Router
	limiter *limits.SessionLimiter
	metrics *metrics.Metrics
	health  *health.Checker
	watcher *watch.Watcher

	router     chi.Router
	httpServer *http.Server
	shutdown   *shutdown.Handler
}

// NewLoader builds the page loader described by cfg. extra options are
// applied after the ones derived from cfg.
func NewLoader(cfg *config.Config, logger logging.Logger, extra ...page.Option) *page.Loader {
	var opts []content.SourceOption
	if cfg.Content.Retries > 0 {
		rc := retry.DefaultConfig()
		rc.MaxRetries = cfg.Content.Retries
		rc.OnRetry = func(attempt int, err error, delay time.Duration) {
			logger.Warn("retrying content fetch",
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Err(err),
			)
		}
		opts = append(opts, content.WithRetry(rc))
	}

	pageOpts := append([]page.Option{
		page.WithLogger(logger),
		page.WithCleaner(textutil.NewCleaner(cfg.Page.Separators)),
		page.WithBreakpoint(cfg.Page.Breakpoint),
	}, extra...)

	return page.NewLoader(
		content.NewSource(cfg.Content.Source, cfg.Content.Timeout, opts...),
		pageOpts...,
	)
}

// ReadShell reads and checks a page template. An empty path selects the
// built-in template and returns nil.
func ReadShell(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shell %s: %w", path, err)
	}
	if _, err := dom.ParsePageBytes(data); err != nil {
		return nil, fmt.Errorf("parsing shell %s: %w", path, err)
	}
	return data, nil
}

// New creates a server with all dependencies.
func New(cfg *config.Config, logger logging.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}

	shell, err := ReadShell(cfg.Page.Shell)
	if err != nil {
		return nil, err
	}

	codec, err := protocol.Lookup(cfg.Server.Codec)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		version: version,
		loader:  NewLoader(cfg, logger, page.WithMetrics(m)),
		ps:      pubsub.NewMemoryPubSub(pubsub.WithLogger(logger)),
		limiter: limits.NewSessionLimiter(cfg.Server.MaxSessions, cfg.Server.MaxSessionsPerIP),
		metrics: m,
		health:  health.NewChecker(version),
		shutdown: shutdown.NewHandler(&shutdown.Config{
			Timeout: cfg.Timeouts().GracefulShutdown,
			Signals: shutdown.DefaultConfig().Signals,
			Logger:  logger,
		}),
	}

	s.live = router.New(
		router.WithCodec(codec),
		router.WithPubSub(s.ps),
		router.WithLogger(logger),
		router.WithTimeouts(cfg.Timeouts()),
		router.WithSessionLimit(s.limiter),
		router.WithEventRate(cfg.Server.EventRate, cfg.Server.EventBurst),
		router.WithMetrics(m),
		router.WithWebSocketConfig(&transport.WebSocketConfig{
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			InsecureDevMode: cfg.Server.InsecureDev,
		}),
	)
	s.live.Live(cfg.Server.Path, gridview.Factory(s.loader,
		gridview.WithShell(shell),
		gridview.WithLogger(logger),
	))

	s.health.AddCriticalCheck("content", health.ContentSourceCheck(s.loader.Source()), cfg.Content.Timeout)
	s.health.AddCheck("sessions", health.SessionCapacityCheck(s.live.Sessions().Count, cfg.Server.MaxSessions), time.Second)

	if cfg.Server.Watch {
		file, ok := s.loader.Source().(content.FileSource)
		if !ok {
			logger.Warn("watch ignored for non-file content source",
				logging.String("source", s.loader.Source().Location()))
		} else {
			w, err := watch.New(file.Path, s.ps,
				watch.WithDebounce(cfg.Server.WatchDebounce),
				watch.WithLogger(logger),
			)
			if err != nil {
				s.ps.Close()
				return nil, err
			}
			s.watcher = w
		}
	}

	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
	if len(s.cfg.Server.AllowedOrigins) > 0 {
		corsOpts.AllowedOrigins = s.cfg.Server.AllowedOrigins
	}
	if s.cfg.Server.InsecureDev {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Method(http.MethodGet, "/healthz", s.health.LivenessHandler())
	r.Method(http.MethodGet, "/readyz", s.health.ReadinessHandler())
	if s.cfg.Server.Metrics {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Handle(AssetPrefix+"*", http.StripPrefix(AssetPrefix, client.Handler()))
	r.Method(http.MethodGet, s.cfg.Server.Path, s.live)

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Live returns the live router.
func (s *Server) Live() *router.Router { return s.live }

// Metrics returns the server metrics.
func (s *Server) Metrics() *metrics.Metrics { return s.metrics }

// PubSub returns the content-change bus.
func (s *Server) PubSub() pubsub.PubSub { return s.ps }

// Watching reports whether the content file is watched.
func (s *Server) Watching() bool { return s.watcher != nil }

// Run listens on the configured address and serves until ctx is done or a
// termination signal arrives, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bg, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.live.Sweep(bg)
	if s.watcher != nil {
		go func() {
			if err := s.watcher.Run(bg); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, watch.ErrClosed) {
				s.logger.Error("content watcher stopped", logging.Err(err))
			}
		}()
	}

	s.registerHooks(cancel)

	waitCtx, stop := context.WithCancel(ctx)
	defer stop()

	failed := make(chan error, 1)
	go func() {
		s.logger.Info("cardgrid listening",
			logging.String("addr", ln.Addr().String()),
			logging.String("source", s.loader.Source().Location()),
			logging.Bool("watch", s.watcher != nil),
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
			stop()
		}
	}()

	err := s.shutdown.Wait(waitCtx)
	select {
	case serveErr := <-failed:
		return errors.Join(fmt.Errorf("serving: %w", serveErr), err)
	default:
		return err
	}
}

func (s *Server) registerHooks(stopBackground context.CancelFunc) {
	s.shutdown.RegisterFunc("http", shutdown.PriorityHTTP, func(ctx context.Context) error {
		return s.httpServer.Shutdown(ctx)
	})
	s.shutdown.RegisterFunc("live sessions", shutdown.PriorityLive, func(ctx context.Context) error {
		stopBackground()
		return s.live.Shutdown(ctx)
	})
	if s.watcher != nil {
		s.shutdown.Register(shutdown.CloserHook("watcher", shutdown.PriorityWatcher, s.watcher))
	}
	s.shutdown.Register(shutdown.CloserHook("pubsub", shutdown.PriorityPubSub, s.ps))
}

// Shutdown stops the server started by Run.
func (s *Server) Shutdown() error {
	return s.shutdown.Shutdown()
}
