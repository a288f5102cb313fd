// Package http exposes the local JSON API consumed by the UI process.
// Identity arrives as the X-User-ID header from the external identity
// provider; authentication itself is out of scope here.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"tally/internal/bus"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/limits"
	applog "tally/internal/log"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/pin"
	"tally/internal/services"
	"tally/pkg/metrics"
)

type Server struct {
	http.Server
	ledger    *services.LedgerService
	pins      *pin.Service
	evaluator *limits.Evaluator
	limitsReg *limits.Registry
	events    *bus.Bus
	collector *metrics.Collector
	logger    *slog.Logger

	txCache    *cache.LRUCache[[]core.Transaction]
	pinLimiter *ratelimit.Limiter
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, ledger *services.LedgerService, pins *pin.Service, evaluator *limits.Evaluator, limitsReg *limits.Registry, events *bus.Bus, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		ledger:    ledger,
		pins:      pins,
		evaluator: evaluator,
		limitsReg: limitsReg,
		events:    events,
		collector: collector,
		logger:    logger,
		txCache:   cache.NewLRUCache[[]core.Transaction](200, 5*time.Minute),
		// PIN verification gets a tight budget against brute force.
		pinLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 10}),
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	ctxLogger := applog.Middleware(&applog.Logger{Logger: logger})
	handler := trace.Middleware(headers.Middleware(ctxLogger(applog.ComponentMiddleware(applog.ComponentHTTP)(mux))))
	s.Server = http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Any mutation invalidates cached read models. The bus is
	// synchronous, so the purge lands before the mutation call returns.
	if events != nil {
		events.Subscribe(bus.EventDataUpdate, s.txCache.Purge)
	}

	sweeper := cache.NewManager()
	sweeper.Register(s.txCache)
	sweeper.StartCleanup(time.Minute)
	s.RegisterOnShutdown(func() {
		sweeper.Stop()
		s.pinLimiter.Stop()
	})

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleHealth)

	mux.HandleFunc("GET /api/accounts", s.requireUser(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.requireUser(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts/{id}", s.requireUser(s.handleGetAccount))
	mux.HandleFunc("PATCH /api/accounts/{id}", s.requireUser(s.handleUpdateAccount))

	mux.HandleFunc("GET /api/transactions", s.requireUser(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireUser(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireUser(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/savings", s.requireUser(s.handleListSavings))
	mux.HandleFunc("POST /api/savings", s.requireUser(s.handleCreateSavings))

	mux.HandleFunc("GET /api/totals", s.requireUser(s.handleTotals))

	mux.HandleFunc("GET /api/categories", s.requireUser(s.handleCategories))

	mux.HandleFunc("GET /api/limits", s.requireUser(s.handleGetLimits))
	mux.HandleFunc("PUT /api/limits", s.requireUser(s.handleSetLimits))
	mux.HandleFunc("GET /api/limits/status", s.requireUser(s.handleLimitStatus))

	verifyLimited := s.pinLimiter.Middleware(
		func(r *http.Request) string { return r.Header.Get(userIDHeader) }, nil)
	mux.HandleFunc("POST /api/pin", s.requireUser(s.handleSetupPin))
	mux.Handle("POST /api/pin/verify", verifyLimited(s.requireUser(s.handleVerifyPin)))
	mux.HandleFunc("DELETE /api/pin", s.requireUser(s.handleRemovePin))
	mux.HandleFunc("GET /api/pin", s.requireUser(s.handlePinState))

	mux.HandleFunc("POST /api/session/background", s.requireUser(s.handleBackground))
	mux.HandleFunc("GET /api/session/lock", s.requireUser(s.handleLockState))

	mux.HandleFunc("POST /api/chat/clear", s.requireUser(s.handleChatClear))

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
