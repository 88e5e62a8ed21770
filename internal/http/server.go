package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"sorpes/internal/log"
	"sorpes/internal/middleware/ratelimit"
	"sorpes/internal/middleware/security"
	"sorpes/internal/middleware/trace"
	"sorpes/internal/services"
)

type Server struct {
	http.Server
	tracker  *services.Tracker
	logger   *log.Logger
	ready    func(context.Context) error
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	rateLimit    ratelimit.Config
	shutdownOnce sync.Once
}

type Option func(*Server)

// WithReadiness sets the check behind /readyz, typically a database ping.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) { s.rateLimit = cfg }
}

func NewServer(addr string, tracker *services.Tracker, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		tracker:   tracker,
		logger:    logger.WithComponent(log.ComponentHTTP),
		detector:  security.NewDetector(),
		rateLimit: ratelimit.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = ratelimit.NewLimiter(s.rateLimit)
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// middleware wraps h, outermost first: tracing, probe filtering, security
// headers, then rate limiting of state-changing requests.
func (s *Server) middleware(h http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
	}
	h = s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	return s.tracer.Middleware(h)
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/reset", s.handleReset)

	mux.HandleFunc("GET /api/months", s.handleListMonths)
	mux.HandleFunc("POST /api/months", s.handleCreateMonth)
	mux.HandleFunc("GET /api/months/suggestion", s.handleSuggestMonth)
	mux.HandleFunc("GET /api/months/{month}", s.handleGetMonth)
	mux.HandleFunc("DELETE /api/months/{month}", s.handleDeleteMonth)
	mux.HandleFunc("POST /api/months/{month}/activate", s.handleSwitchMonth)

	mux.HandleFunc("POST /api/months/{month}/expenses/{kind}", s.handleAddExpense)
	mux.HandleFunc("PUT /api/months/{month}/expenses/{kind}/{index}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/months/{month}/expenses/{kind}/{index}", s.handleDeleteExpense)
	mux.HandleFunc("POST /api/months/{month}/expenses/{kind}/{index}/toggle-paid", s.handleTogglePaid)
	mux.HandleFunc("PUT /api/months/{month}/expenses/{kind}/{index}/paid", s.handleSetPaid)

	mux.HandleFunc("POST /api/months/{month}/income/{kind}", s.handleAddIncome)
	mux.HandleFunc("PUT /api/months/{month}/income/{kind}/{index}", s.handleUpdateIncome)
	mux.HandleFunc("DELETE /api/months/{month}/income/{kind}/{index}", s.handleDeleteIncome)

	mux.HandleFunc("POST /api/months/{month}/blocks", s.handleCreateBlock)
	mux.HandleFunc("PUT /api/months/{month}/blocks/{id}", s.handleUpdateBlock)
	mux.HandleFunc("DELETE /api/months/{month}/blocks/{id}", s.handleDeleteBlock)
	mux.HandleFunc("POST /api/months/{month}/blocks/{id}/move", s.handleMoveBlock)
	mux.HandleFunc("GET /api/months/{month}/blocks/{id}/limit", s.handleBlockLimit)
	mux.HandleFunc("POST /api/months/{month}/blocks/{id}/items", s.handleAddBlockItem)
	mux.HandleFunc("PUT /api/months/{month}/blocks/{id}/items/{index}", s.handleUpdateBlockItem)
	mux.HandleFunc("DELETE /api/months/{month}/blocks/{id}/items/{index}", s.handleDeleteBlockItem)

	mux.HandleFunc("GET /api/months/{month}/totals", s.handleTotals)
	mux.HandleFunc("GET /api/months/{month}/owner-split", s.handleOwnerSplit)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)

	mux.HandleFunc("POST /api/owners", s.handleAddOwner)
	mux.HandleFunc("DELETE /api/owners/{id}", s.handleRemoveOwner)

	mux.HandleFunc("GET /api/backup", s.handleExport)
	mux.HandleFunc("POST /api/backup", s.handleImport)
	mux.HandleFunc("GET /api/backup/status", s.handleBackupStatus)
}

// Shutdown stops the rate limiter and drains the HTTP server. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not_ready", "storage unavailable").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]any{
		"status":   "ready",
		"revision": s.tracker.Revision(),
	}).Write(w)
}
