package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/middleware/ratelimit"
	"budgetdash/internal/middleware/security"
	"budgetdash/internal/middleware/trace"
	"budgetdash/internal/services"
	appweb "budgetdash/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DashboardAPI is the session-scoped dashboard the handlers drive.
type DashboardAPI interface {
	CreateSession(ctx context.Context) (services.Dashboard, error)
	Get(ctx context.Context, id string) (services.Dashboard, error)
	Apply(ctx context.Context, id string, ev core.Event) (services.Dashboard, error)
	YearsAvailable() []core.Year
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Options configures the server. Zero values select defaults.
type Options struct {
	Logger    *log.Logger
	RateLimit ratelimit.Config
	// Checks run on /readyz in addition to the dataset check.
	Checks map[string]ReadinessCheck
	// RequestTimeout bounds every handler. Defaults to 15s.
	RequestTimeout time.Duration
}

type Server struct {
	http.Server
	router    *chi.Mux
	templates *template.Template
	dashboard DashboardAPI
	checks    map[string]ReadinessCheck
	logger    *log.Logger
	base      *log.Logger

	clientIP *security.ClientIPResolver
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, dashboard DashboardAPI, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		router:    chi.NewRouter(),
		dashboard: dashboard,
		checks:    opts.Checks,
		logger:    logger,
		base:      opts.Logger,
		clientIP:  security.NewClientIPResolver(),
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.clientIP.ClientIP)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.setupMiddleware(opts.RequestTimeout)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(timeout time.Duration) {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.tracer.Middleware)
	s.router.Use(log.Middleware(s.base))
	s.router.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	}))
	s.router.Use(log.ComponentMiddleware(log.ComponentHTTP))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(timeout))
	s.router.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
}

func (s *Server) setupRoutes() {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		s.router.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	s.router.Get("/", s.handleDashboard)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Get("/metrics", s.handleMetrics)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/years", s.handleYears)
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.clientIP.ClientIP, s.handleRateLimited))
			r.Post("/sessions", s.handleCreateSession)
			r.Post("/sessions/{sessionID}/events", s.handleApplyEvent)
		})
		r.Get("/sessions/{sessionID}", s.handleGetSession)
	})
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
