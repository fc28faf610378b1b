// Package http serves the ledger engine as a JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ledgerbi/internal/cache"
	"ledgerbi/internal/ledger"
	"ledgerbi/internal/log"
	"ledgerbi/internal/middleware/ratelimit"
	"ledgerbi/internal/middleware/security"
	"ledgerbi/internal/middleware/trace"
	"ledgerbi/internal/search"
	"ledgerbi/internal/services"
)

// Options configures NewServer. Zero durations and sizes take defaults.
type Options struct {
	Store          ledger.Store
	Index          *search.Index
	Debounce       time.Duration
	SessionTTL     time.Duration
	SessionMax     int
	RateLimit      int
	RequestTimeout time.Duration
	Logger         *log.Logger
}

func (o *Options) defaults() {
	if o.SessionTTL <= 0 {
		o.SessionTTL = 30 * time.Minute
	}
	if o.SessionMax <= 0 {
		o.SessionMax = 1000
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 600
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.ForComponent(log.ComponentHTTP)
	}
	if o.Index == nil {
		o.Index = search.NewIndex(o.Store, nil)
	}
}

type Server struct {
	http.Server

	store      ledger.Store
	index      *search.Index
	stats      *services.StatisticsAggregator
	rollup     *services.SectorRollup
	classifier *services.TransactionClassifier

	sessions *sessionStore
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	logger         *log.Logger
	requestTimeout time.Duration
	shutdownOnce   sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// Call Shutdown to release its background goroutines.
func NewServer(addr string, opts Options) *Server {
	opts.defaults()
	logger := opts.Logger

	s := &Server{
		store:          opts.Store,
		index:          opts.Index,
		stats:          services.NewStatisticsAggregator(opts.Store, logger.WithComponent(log.ComponentStatistics)),
		rollup:         services.NewSectorRollup(opts.Store, logger.WithComponent(log.ComponentRollup)),
		classifier:     services.NewTransactionClassifier(opts.Store, logger.WithComponent(log.ComponentClassifier)),
		sessions:       newSessionStore(opts.Index, opts.Debounce, opts.SessionTTL, opts.SessionMax, logger.WithComponent(log.ComponentSearch)),
		caches:         cache.NewManager(logger.WithComponent(log.ComponentCache)),
		detector:       security.NewDetector(logger),
		logger:         logger,
		requestTimeout: opts.RequestTimeout,
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}, logger)
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger.WithComponent(log.ComponentTrace))

	s.caches.Register(s.sessions.sessions)
	s.caches.StartCleanup(max(min(opts.SessionTTL/2, time.Minute), time.Second))

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeErrorStatus(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/entities", s.handleListEntities)
	mux.HandleFunc("GET /api/entities/{id}", s.handleGetEntity)
	mux.HandleFunc("GET /api/transactions", s.handleRecentTransactions)
	mux.HandleFunc("GET /api/transactions/entity/{id}", s.handleEntityTransactions)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/sectors", s.handleSectors)
	searchLogs := log.ComponentMiddleware(log.ComponentSearch)
	mux.Handle("GET /api/search", searchLogs(limited(http.HandlerFunc(s.handleSearch))))
	mux.Handle("POST /api/search/select", searchLogs(limited(http.HandlerFunc(s.handleSelect))))

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// requestContext bounds a handler's store work by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

// Shutdown stops background work, closes every search session and then
// shuts the HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		closed := s.sessions.closeAll()
		s.logger.Info("HTTP server shutting down",
			log.FieldOperation, log.OpShutdown,
			"sessions_closed", closed)

		if err := s.Server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr = err
		}
	})
	return shutdownErr
}
