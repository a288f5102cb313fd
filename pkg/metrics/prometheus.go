package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the process metrics registry. All methods are safe on a
// nil receiver so wiring metrics stays optional.
type Collector struct {
	registry         *prometheus.Registry
	ledgerMutations  *prometheus.CounterVec
	limitAlerts      *prometheus.CounterVec
	pinVerifications *prometheus.CounterVec
	accountBalance   *prometheus.GaugeVec
	logger           *slog.Logger
}

func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		ledgerMutations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_mutations_total",
			Help: "Total number of ledger mutations by operation",
		}, []string{"operation"}),
		limitAlerts: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "spending_limit_alerts_total",
			Help: "Total number of surfaced spending limit alerts by severity",
		}, []string{"severity"}),
		pinVerifications: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "pin_verifications_total",
			Help: "Total number of PIN verification attempts by result",
		}, []string{"result"}),
		accountBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "account_balance_cents",
			Help: "Current account balance in cents",
		}, []string{"user_id", "account_id"}),
		logger: logger,
	}
}

func (c *Collector) RecordMutation(operation string) {
	if c == nil {
		return
	}
	c.ledgerMutations.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordLimitAlert(severity string) {
	if c == nil {
		return
	}
	c.limitAlerts.WithLabelValues(severity).Inc()
}

func (c *Collector) RecordPinVerification(ok bool) {
	if c == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	c.pinVerifications.WithLabelValues(result).Inc()
}

func (c *Collector) UpdateAccountBalance(userID, accountID string, balanceCents int64) {
	if c == nil {
		return
	}
	c.accountBalance.WithLabelValues(userID, accountID).Set(float64(balanceCents))
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Server returns an http.Server exposing /metrics on addr. The caller
// owns its lifecycle.
func (c *Collector) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
