package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"incassi/internal/auth"
	"incassi/internal/core"
	"incassi/internal/export"
	"incassi/internal/log"
	"incassi/internal/middleware/ratelimit"
	"incassi/internal/middleware/security"
	"incassi/internal/middleware/trace"
	"incassi/internal/services"
	appweb "incassi/web"
)

// LedgerService is the part of services.LedgerService the handlers use.
type LedgerService interface {
	View(ctx context.Context, ownerID string, c services.Criteria, now time.Time) (services.LedgerView, error)
	Create(ctx context.Context, ownerID string, in services.NewReceipt) (core.Receipt, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// Authenticator checks and creates accounts.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (auth.User, error)
	Login(ctx context.Context, email, password string) (auth.User, error)
}

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server. Ledger, Auth, Sessions, Exporter and Logger are
// required.
type Options struct {
	Addr     string
	Ledger   LedgerService
	Auth     Authenticator
	Sessions *auth.SessionManager
	Exporter *export.Exporter
	DB       Pinger
	Logger   *log.Logger

	// Location is the time zone "today" is computed in. Defaults to UTC.
	Location *time.Location
	Language language.Tag
	Now      func() time.Time

	RateLimitPerMinute int
	TrustedProxies     []string
}

type appMetrics struct {
	receiptsCreated int64
	receiptsDeleted int64
	exports         int64
	uptime          time.Time
}

type Server struct {
	http.Server
	templates *template.Template

	ledger   LedgerService
	auth     Authenticator
	sessions *auth.SessionManager
	exporter *export.Exporter
	db       Pinger
	logger   *log.Logger

	loc  *time.Location
	lang language.Tag
	now  func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and configures routes, returning a
// ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Ledger == nil || opts.Auth == nil || opts.Sessions == nil || opts.Exporter == nil || opts.Logger == nil {
		return nil, errors.New("http server: missing dependency")
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector, err := security.NewDetector(logger, opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}
	rlConfig.Methods = []string{http.MethodPost}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		templates:        t,
		ledger:           opts.Ledger,
		auth:             opts.Auth,
		sessions:         opts.Sessions,
		exporter:         opts.Exporter,
		db:               opts.DB,
		logger:           logger,
		loc:              opts.Location,
		lang:             opts.Language,
		now:              opts.Now,
		rateLimiter:      ratelimit.NewLimiter(rlConfig),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		appMetrics:       appMetrics{uptime: time.Now()},
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.lang == language.Und {
		s.lang = language.Italian
	}

	s.Handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.securityDetector.Middleware)
	r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(s.sessions.RedirectIfAuthenticated("/"))
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/signup", s.handleSignupPage)
		r.Post("/signup", s.handleSignup)
	})
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(s.sessions.RequireSession("/login"))
		r.Get("/", s.handleIndex)
		r.Route("/ui", func(r chi.Router) {
			r.Get("/ledger", s.handleLedger)
			r.Get("/chart", s.handleChart)
		})
		r.Get("/export", s.handleExport)
		r.Route("/incassi", func(r chi.Router) {
			r.Post("/", s.handleCreateReceipt)
			r.Post("/{id}/delete", s.handleDeleteReceipt)
		})
	})

	return r
}

// localNow is the clock in the configured time zone. "Today" is its calendar day.
func (s *Server) localNow() time.Time {
	return s.now().In(s.loc)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Troppe richieste, riprova tra poco").Write(w)
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) countCreated()  { atomic.AddInt64(&s.appMetrics.receiptsCreated, 1) }
func (s *Server) countDeleted()  { atomic.AddInt64(&s.appMetrics.receiptsDeleted, 1) }
func (s *Server) countExported() { atomic.AddInt64(&s.appMetrics.exports, 1) }
