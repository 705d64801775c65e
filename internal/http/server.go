package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/identity"
	"spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	appweb "spendwise/web"
)

// Ledger is the set of operations the HTTP surface exposes.
type Ledger interface {
	Ready(ctx context.Context) error
	ProvisionUser(ctx context.Context, who identity.Resolver) (core.User, error)
	BulkDeleteTransactions(ctx context.Context, who identity.Resolver, ids []string) core.Result[core.DeleteSummary]
	UpdateDefaultAccount(ctx context.Context, who identity.Resolver, accountID string) core.Result[core.Account]
	GetAccountWithTransactions(ctx context.Context, who identity.Resolver, accountID string) (*core.AccountDetail, error)
	ListAccounts(ctx context.Context, who identity.Resolver) ([]core.Account, error)
	CreateAccount(ctx context.Context, who identity.Resolver, in core.AccountInput) core.Result[core.Account]
	CreateTransaction(ctx context.Context, who identity.Resolver, in core.TransactionInput) core.Result[core.Transaction]
	UpdateTransaction(ctx context.Context, who identity.Resolver, id string, in core.TransactionInput) core.Result[core.Transaction]
	GetTransaction(ctx context.Context, who identity.Resolver, id string) (*core.Transaction, error)
	GetDashboard(ctx context.Context, who identity.Resolver) (core.Dashboard, error)
}

type Server struct {
	http.Server
	ledger    Ledger
	who       identity.Resolver
	verifier  identity.Verifier
	templates *template.Template
	logger    *log.Logger
	started   time.Time

	dashboards *cache.ViewCache[core.Dashboard]
	details    *cache.ViewCache[*core.AccountDetail]

	clientIP    *security.ClientIP
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server) error

// WithVerifier accepts session tokens checked by v. Without it every
// request is anonymous unless WithResolver says otherwise.
func WithVerifier(v identity.Verifier) Option {
	return func(s *Server) error { s.verifier = v; return nil }
}

// WithResolver replaces the request context resolver, for tests and tools.
func WithResolver(r identity.Resolver) Option {
	return func(s *Server) error { s.who = r; return nil }
}

// WithViewCaches serves pages through the given caches. Whoever mutates
// the ledger must invalidate them.
func WithViewCaches(dashboards *cache.ViewCache[core.Dashboard], details *cache.ViewCache[*core.AccountDetail]) Option {
	return func(s *Server) error {
		s.dashboards, s.details = dashboards, details
		return nil
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) error { s.logger = l.WithComponent(log.ComponentHTTP); return nil }
}

// WithRateLimit bounds mutating requests per client address.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) error { s.rateLimiter = ratelimit.NewLimiter(cfg); return nil }
}

// WithTrustedProxies adds CIDRs allowed to set forwarding headers.
func WithTrustedProxies(cidrs ...string) Option {
	return func(s *Server) error {
		c, err := security.NewClientIP(cidrs...)
		if err != nil {
			return err
		}
		s.clientIP = c
		return nil
	}
}

// NewServer configures routes and templates, returning a ready-to-run
// server. The rate limiter cleanup starts here and stops on Shutdown.
func NewServer(addr string, l Ledger, opts ...Option) (*Server, error) {
	s := &Server{
		ledger:  l,
		who:     identity.Context,
		logger:  log.Discard(),
		started: time.Now(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.clientIP == nil {
		c, err := security.NewClientIP()
		if err != nil {
			return nil, err
		}
		s.clientIP = c
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	s.rateLimiter.Start()
	s.tracer = trace.NewMiddleware(s.logger, s.clientIP.Extract)

	t, err := parseTemplates()
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.Use(s.tracer.Middleware, security.Headers(security.DefaultHeadersConfig()))
	if s.verifier != nil {
		r.Use(identity.Middleware(s.verifier, s.logger.WithComponent(log.ComponentIdentity)))
	}
	r.Use(s.rateLimiter.Middleware(s.clientIP.Extract, nil))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssets(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/", http.RedirectHandler("/dashboard", http.StatusSeeOther)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(security.NoStore)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodPost)
	api.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", s.handleCreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}", s.handleGetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/default", s.handleSetDefault).Methods(http.MethodPut, http.MethodPost)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/bulk-delete", s.handleBulkDelete).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut, http.MethodPost)

	// A subrouter that matches nothing resets mux's method mismatch, so the
	// page group only sees paths outside /api.
	pages := r.MatcherFunc(func(req *http.Request, _ *mux.RouteMatch) bool {
		return !strings.HasPrefix(req.URL.Path, "/api/")
	}).Subrouter()
	pages.Use(security.NoStore)
	pages.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	pages.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	pages.HandleFunc("/account/{id}", s.handleAccountPage).Methods(http.MethodGet)
	pages.HandleFunc("/ui/account/{id}/transactions", s.handleAccountTransactions).Methods(http.MethodGet)
	pages.HandleFunc("/transaction/create", s.handleTransactionForm).Methods(http.MethodGet)

	return r
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"selected": func(a, b string) template.HTMLAttr {
			if a == b {
				return "selected"
			}
			return ""
		},
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the templates and the ledger store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.ledger.Ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(ctx, "Ledger store not ready", log.FieldError, err)
		checks["store"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if s.dashboards != nil && s.details != nil {
		checks["cache"] = map[string]any{
			"dashboards": s.dashboards.Stats(),
			"accounts":   s.details.Stats(),
		}
	}
	traced := s.tracer.GetMetrics()
	checks["requests"] = map[string]any{
		"total":         traced.TotalRequests,
		"server_errors": traced.ServerErrors,
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"rejected":       s.rateLimiter.Rejected(),
	}

	NewHTMXResponse().Status(code).BodyJSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
