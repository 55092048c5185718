package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gastos/internal/ledger"
	applog "gastos/internal/log"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
)

// Pinger reports whether the storage behind the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	store    *ledger.Store
	backend  Pinger
	logger   *applog.Logger
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIP

	shutdownOnce sync.Once
}

type Option func(*serverOptions)

type serverOptions struct {
	rateLimit ratelimit.Config
	headers   security.HeadersConfig
}

// WithRateLimit overrides the per-client write limit.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(o *serverOptions) { o.rateLimit = cfg }
}

// WithHeaders overrides the security headers.
func WithHeaders(cfg security.HeadersConfig) Option {
	return func(o *serverOptions) { o.headers = cfg }
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server serving the JSON API over store. backend may be nil, in which
// case /readyz only checks that the server is up.
func NewServer(addr string, store *ledger.Store, backend Pinger, logger *applog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	o := serverOptions{
		rateLimit: ratelimit.DefaultConfig(),
		headers:   security.DefaultHeadersConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger = logger.WithComponent(applog.ComponentHTTP)
	clientIP := security.NewClientIP()
	s := &Server{
		store:    store,
		backend:  backend,
		logger:   logger,
		tracer:   trace.NewMiddleware(clientIP.Extract, logger),
		limiter:  ratelimit.NewLimiter(o.rateLimit),
		clientIP: clientIP,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/session", s.handleSignIn)
	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("DELETE /api/session", s.handleSignOut)

	mux.Handle("GET /api/expenses", s.requireUser(s.handleListExpenses))
	mux.Handle("POST /api/expenses", s.requireUser(s.handleCreateExpense))
	mux.Handle("PUT /api/expenses/{id}", s.requireUser(s.handleUpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}", s.requireUser(s.handleDeleteExpense))

	mux.Handle("GET /api/incomes", s.requireUser(s.handleListIncomes))
	mux.Handle("GET /api/incomes/by-month", s.requireUser(s.handleIncomeHistory))
	mux.Handle("POST /api/incomes", s.requireUser(s.handleCreateIncome))
	mux.Handle("PUT /api/incomes/{id}", s.requireUser(s.handleUpdateIncome))
	mux.Handle("DELETE /api/incomes/{id}", s.requireUser(s.handleDeleteIncome))

	mux.Handle("GET /api/categories", s.requireUser(s.handleListCategories))
	mux.Handle("GET /api/categories/{id}/expenses", s.requireUser(s.handleCategoryExpenses))
	mux.Handle("POST /api/categories", s.requireUser(s.handleCreateCategory))
	mux.Handle("PUT /api/categories/{id}", s.requireUser(s.handleUpdateCategory))
	mux.Handle("DELETE /api/categories/{id}", s.requireUser(s.handleDeleteCategory))

	mux.Handle("GET /api/accounts", s.requireUser(s.handleListAccounts))
	mux.Handle("GET /api/accounts/summary", s.requireUser(s.handleAccountSummaries))
	mux.Handle("POST /api/accounts", s.requireUser(s.handleCreateAccount))
	mux.Handle("PUT /api/accounts/{id}", s.requireUser(s.handleUpdateAccount))
	mux.Handle("POST /api/accounts/{id}/default", s.requireUser(s.handleSetDefaultAccount))
	mux.Handle("DELETE /api/accounts/{id}", s.requireUser(s.handleDeleteAccount))

	mux.Handle("POST /api/transfers", s.requireUser(s.handleTransfer))

	mux.Handle("GET /api/overview", s.requireUser(s.handleOverview))
	mux.Handle("GET /api/projection", s.requireUser(s.handleProjection))

	var h http.Handler = mux
	h = s.limiter.Middleware(clientIP.Extract, s.onRateLimited)(h)
	h = security.NewHeadersMiddleware(o.headers).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// requireUser rejects requests made before anyone signed in.
func (s *Server) requireUser(next http.HandlerFunc) http.Handler {
	tagged := applog.UserMiddleware(s.store.UserID)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store.UserID() == "" {
			UnauthorizedError().Write(w)
			return
		}
		tagged.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
		"client_ip", s.clientIP.Extract(r),
		"method", r.Method,
		"url", r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later").Write(w)
}

// logWriteError logs a failed store call. Storage failures are errors;
// rejected input is only worth a debug line.
func (s *Server) logWriteError(r *http.Request, msg, op string, err error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	fields := applog.NewFields().WithUser(s.store.UserID())

	var perr *ledger.PersistError
	if errors.As(err, &perr) {
		applog.NewStructuredLogger(logger).LogError(ctx, msg, err, op, fields)
		return
	}
	logger.DebugContext(ctx, msg, fields.WithError(err).WithOperation(op).ToSlice()...)
}

// Shutdown gracefully shuts down the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info("HTTP server stopping", applog.FieldOperation, applog.OpShutdown)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.backend.Ping(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, CodeUnavailable, "storage unreachable").Write(w)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.tracer.GetMetrics()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "gastos_http_requests_total %d\n", m.TotalRequests)
	fmt.Fprintf(w, "gastos_http_client_errors_total %d\n", m.ClientErrors)
	fmt.Fprintf(w, "gastos_http_server_errors_total %d\n", m.ServerErrors)
	fmt.Fprintf(w, "gastos_ledger_persist_failures_total %d\n", m.PersistFailures)
	fmt.Fprintf(w, "gastos_http_last_duration_microseconds %d\n", m.LastDuration)
	fmt.Fprintf(w, "gastos_ratelimit_rejected_total %d\n", s.limiter.Rejected())
	fmt.Fprintf(w, "gastos_ratelimit_active_clients %d\n", s.limiter.ActiveClients())
}
