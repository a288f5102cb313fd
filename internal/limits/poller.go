package limits

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/bus"
)

// AlertSink receives newly-surfaced alerts, e.g. the AMQP bridge or a
// metrics counter. Sinks must not block.
type AlertSink func(ctx context.Context, userID string, alert *Alert)

// Poller re-evaluates limits on a fixed interval and on every ledger
// mutation event. Torn down with the hosting session via Run's context.
type Poller struct {
	evaluator *Evaluator
	registry  *Registry
	interval  time.Duration
	sinks     []AlertSink
	logger    *slog.Logger
	kick      chan struct{}
}

func NewPoller(evaluator *Evaluator, registry *Registry, interval time.Duration, logger *slog.Logger, sinks ...AlertSink) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		evaluator: evaluator,
		registry:  registry,
		interval:  interval,
		sinks:     sinks,
		logger:    logger,
		kick:      make(chan struct{}, 1),
	}
}

// BindBus subscribes the poller to ledger mutation events and returns the
// unsubscribe function. The bus delivers synchronously, so the handler
// only nudges the poller goroutine instead of evaluating inline.
func (p *Poller) BindBus(b *bus.Bus) func() {
	return b.Subscribe(bus.EventDataUpdate, func() {
		select {
		case p.kick <- struct{}{}:
		default: // a kick is already pending
		}
	})
}

// Run evaluates until ctx is cancelled. Standard interval teardown: the
// ticker stops with the session.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "Limit poller stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			p.evaluateAll(ctx)
		case <-p.kick:
			p.evaluateAll(ctx)
		}
	}
}

func (p *Poller) evaluateAll(ctx context.Context) {
	for _, userID := range p.registry.Users() {
		_, alert := p.evaluator.Evaluate(ctx, userID, p.registry.Get(userID))
		if alert == nil {
			continue
		}
		for _, sink := range p.sinks {
			sink(ctx, userID, alert)
		}
	}
}
