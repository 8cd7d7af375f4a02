package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

// ExpenseService is what the handlers need from the service layer.
type ExpenseService interface {
	CreateFromInput(ctx context.Context, in core.ExpenseInput) (core.ExpenseRecord, error)
	ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
	Summary(ctx context.Context) (services.Snapshot, error)
	Payees(ctx context.Context) ([]string, error)
}

// Options tunes the server. The zero value is usable.
type Options struct {
	// Ready backs /readyz; nil means always ready.
	Ready              func(ctx context.Context) error
	Metrics            *metrics.Metrics
	Logger             *applog.Logger
	CORSOrigins        []string
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	service ExpenseService
	ready   func(ctx context.Context) error
	limiter *ratelimit.Limiter
	logger  *applog.Logger
	started time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc ExpenseService, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	ips, err := security.NewClientIPResolver(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		service: svc,
		ready:   opts.Ready,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		logger:  logger.WithComponent(applog.ComponentHTTP),
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /payees", s.handlePayees)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = s.limiter.Middleware(ips.ExtractClientIP, s.onRateLimited, http.MethodPost)(handler)
	handler = security.NewCORS(opts.CORSOrigins).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(ips.ExtractClientIP, logger, opts.Metrics).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
