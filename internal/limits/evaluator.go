// Package limits classifies current spend against configured ceilings
// with two-tier severity and without alert flapping.
package limits

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"tally/internal/core"
)

// Classification thresholds, in percent of the configured ceiling.
const (
	nearLimitPercent = 80
	exceededPercent  = 100
)

type Severity string

const (
	SeverityNearLimit Severity = "near_limit"
	SeverityExceeded  Severity = "exceeded"
)

// Config is one configured ceiling: a category name or core.LimitOverall.
// AmountCents == 0 disables the limit.
type Config struct {
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
}

// Status is the read model exposed to the UI for one limit.
type Status struct {
	Type        string  `json:"type"`
	AmountCents int64   `json:"amount_cents"`
	SpentCents  int64   `json:"current_spending_cents"`
	Percentage  float64 `json:"percentage"`
	NearLimit   bool    `json:"is_near_limit"`
	Exceeded    bool    `json:"is_exceeded"`
}

// Snapshot is the full evaluation result for one user.
type Snapshot struct {
	Limits []Status `json:"limits"`
}

// Alert is a newly-surfaced alert transition. Exceeded dominates: when any
// limit is exceeded the near-limit alert is suppressed entirely for that
// pass, so Types under SeverityExceeded lists every exceeded type and
// near-limit types are absent.
type Alert struct {
	Severity Severity
	Types    []string
}

// SpendingSource supplies the current period's per-category spend.
// Satisfied by the balance reconciler.
type SpendingSource interface {
	CategorySpending(ctx context.Context, userID string, year int, month time.Month) map[string]int64
}

// Evaluator classifies spend and deduplicates alerts. It remembers the
// last surfaced alert signature per user and only reports transitions, so
// an alert already on screen is never re-surfaced for the same state.
type Evaluator struct {
	source SpendingSource
	logger *slog.Logger

	mu        sync.Mutex
	lastAlert map[string]string
}

func NewEvaluator(source SpendingSource, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		source:    source,
		logger:    logger,
		lastAlert: make(map[string]string),
	}
}

// Evaluate classifies every configured limit against the current calendar
// month's spend. When invoked before its dependencies are ready it
// no-ops: empty snapshot, no alert, no error.
func (e *Evaluator) Evaluate(ctx context.Context, userID string, configs []Config) (Snapshot, *Alert) {
	if e == nil || e.source == nil || len(configs) == 0 {
		return Snapshot{}, nil
	}

	now := time.Now()
	spend := e.source.CategorySpending(ctx, userID, now.Year(), now.Month())

	var overall int64
	for _, cents := range spend {
		overall += cents
	}

	var (
		snapshot  Snapshot
		nearTypes []string
		overTypes []string
	)
	for _, cfg := range configs {
		status := Status{Type: cfg.Type, AmountCents: cfg.AmountCents}
		if cfg.Type == core.LimitOverall {
			status.SpentCents = overall
		} else {
			status.SpentCents = spend[cfg.Type]
		}

		// amount == 0 disables the limit: always ok, never alerts, and
		// percentage stays undefined (zero).
		if cfg.AmountCents > 0 {
			status.Percentage = float64(status.SpentCents) / float64(cfg.AmountCents) * 100
			status.Exceeded = status.Percentage >= exceededPercent
			status.NearLimit = !status.Exceeded && status.Percentage >= nearLimitPercent
			switch {
			case status.Exceeded:
				overTypes = append(overTypes, cfg.Type)
			case status.NearLimit:
				nearTypes = append(nearTypes, cfg.Type)
			}
		}
		snapshot.Limits = append(snapshot.Limits, status)
	}

	return snapshot, e.surface(ctx, userID, nearTypes, overTypes)
}

// surface applies precedence and deduplication: exceeded suppresses
// near-limit, and a state identical to the one already displayed is not
// surfaced again. Returning to ok clears the remembered state so the next
// breach alerts again.
func (e *Evaluator) surface(ctx context.Context, userID string, nearTypes, overTypes []string) *Alert {
	var alert *Alert
	switch {
	case len(overTypes) > 0:
		alert = &Alert{Severity: SeverityExceeded, Types: overTypes}
	case len(nearTypes) > 0:
		alert = &Alert{Severity: SeverityNearLimit, Types: nearTypes}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if alert == nil {
		delete(e.lastAlert, userID)
		return nil
	}

	sig := signature(alert)
	if e.lastAlert[userID] == sig {
		return nil
	}
	e.lastAlert[userID] = sig

	e.logger.WarnContext(ctx, "Spending limit alert",
		"user_id", userID,
		"severity", alert.Severity,
		"types", alert.Types)
	return alert
}

// Reset forgets the displayed-alert state for a user, e.g. when the alert
// UI is dismissed or the session ends.
func (e *Evaluator) Reset(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lastAlert, userID)
}

func signature(a *Alert) string {
	types := make([]string, len(a.Types))
	copy(types, a.Types)
	sort.Strings(types)
	return string(a.Severity) + "|" + strings.Join(types, ",")
}
