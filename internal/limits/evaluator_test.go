package limits

import (
	"context"
	"testing"
	"time"

	"tally/internal/core"
)

type fakeSpending struct {
	byCat map[string]int64
}

func (f *fakeSpending) CategorySpending(context.Context, string, int, time.Month) map[string]int64 {
	if f.byCat == nil {
		return map[string]int64{}
	}
	return f.byCat
}

func findStatus(t *testing.T, snap Snapshot, typ string) Status {
	t.Helper()
	for _, s := range snap.Limits {
		if s.Type == typ {
			return s
		}
	}
	t.Fatalf("no status for limit type %q in %+v", typ, snap)
	return Status{}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name       string
		spent      int64
		amount     int64
		wantPct    float64
		wantNear   bool
		wantExceed bool
	}{
		{name: "well under", spent: 10000, amount: 100000, wantPct: 10},
		{name: "just under near threshold", spent: 79000, amount: 100000, wantPct: 79},
		{name: "near limit at 85%", spent: 85000, amount: 100000, wantPct: 85, wantNear: true},
		{name: "exactly at limit", spent: 100000, amount: 100000, wantPct: 100, wantExceed: true},
		{name: "over limit", spent: 120000, amount: 100000, wantPct: 120, wantExceed: true},
		{name: "exactly at near threshold", spent: 80000, amount: 100000, wantPct: 80, wantNear: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := NewEvaluator(&fakeSpending{byCat: map[string]int64{"Food": tt.spent}}, nil)
			snap, _ := eval.Evaluate(context.Background(), "u1", []Config{{Type: "Food", AmountCents: tt.amount}})

			st := findStatus(t, snap, "Food")
			if st.Percentage != tt.wantPct {
				t.Errorf("Percentage = %v, want %v", st.Percentage, tt.wantPct)
			}
			if st.NearLimit != tt.wantNear {
				t.Errorf("NearLimit = %v, want %v", st.NearLimit, tt.wantNear)
			}
			if st.Exceeded != tt.wantExceed {
				t.Errorf("Exceeded = %v, want %v", st.Exceeded, tt.wantExceed)
			}
			if st.Exceeded && st.NearLimit {
				t.Error("a limit must not be both exceeded and near-limit")
			}
		})
	}
}

func TestDisabledLimitNeverAlerts(t *testing.T) {
	eval := NewEvaluator(&fakeSpending{byCat: map[string]int64{"Food": 999999}}, nil)
	snap, alert := eval.Evaluate(context.Background(), "u1", []Config{{Type: "Food", AmountCents: 0}})

	st := findStatus(t, snap, "Food")
	if st.NearLimit || st.Exceeded {
		t.Errorf("disabled limit classified: %+v", st)
	}
	if st.Percentage != 0 {
		t.Errorf("disabled limit percentage = %v, want 0 (undefined)", st.Percentage)
	}
	if alert != nil {
		t.Errorf("disabled limit alerted: %+v", alert)
	}
}

func TestOverallLimitSumsAllCategories(t *testing.T) {
	eval := NewEvaluator(&fakeSpending{byCat: map[string]int64{"Food": 60000, "Transport": 30000}}, nil)
	snap, _ := eval.Evaluate(context.Background(), "u1", []Config{{Type: core.LimitOverall, AmountCents: 100000}})

	st := findStatus(t, snap, core.LimitOverall)
	if st.SpentCents != 90000 {
		t.Errorf("overall SpentCents = %d, want 90000", st.SpentCents)
	}
	if !st.NearLimit {
		t.Error("overall at 90% should be near-limit")
	}
}

func TestExceededSuppressesNearLimit(t *testing.T) {
	eval := NewEvaluator(&fakeSpending{byCat: map[string]int64{"Food": 85000, "Transport": 120000}}, nil)
	configs := []Config{
		{Type: "Food", AmountCents: 100000},      // near
		{Type: "Transport", AmountCents: 100000}, // exceeded
	}

	_, alert := eval.Evaluate(context.Background(), "u1", configs)
	if alert == nil {
		t.Fatal("expected an alert")
	}
	if alert.Severity != SeverityExceeded {
		t.Fatalf("Severity = %q, want exceeded (exceeded dominates near-limit)", alert.Severity)
	}
	if len(alert.Types) != 1 || alert.Types[0] != "Transport" {
		t.Fatalf("Types = %v, want [Transport] only", alert.Types)
	}
}

func TestExceededAlertListsEveryExceededType(t *testing.T) {
	eval := NewEvaluator(&fakeSpending{byCat: map[string]int64{"Food": 110000, "Bills": 150000}}, nil)
	configs := []Config{
		{Type: "Food", AmountCents: 100000},
		{Type: "Bills", AmountCents: 100000},
	}

	_, alert := eval.Evaluate(context.Background(), "u1", configs)
	if alert == nil || len(alert.Types) != 2 {
		t.Fatalf("alert = %+v, want both exceeded types", alert)
	}
}

func TestAlertDeduplication(t *testing.T) {
	src := &fakeSpending{byCat: map[string]int64{"Food": 85000}}
	eval := NewEvaluator(src, nil)
	configs := []Config{{Type: "Food", AmountCents: 100000}}
	ctx := context.Background()

	_, first := eval.Evaluate(ctx, "u1", configs)
	if first == nil || first.Severity != SeverityNearLimit {
		t.Fatalf("first evaluation: alert = %+v, want near-limit", first)
	}

	// Same state again: already displayed, must not re-surface.
	if _, again := eval.Evaluate(ctx, "u1", configs); again != nil {
		t.Fatalf("re-evaluation surfaced duplicate alert: %+v", again)
	}

	// Escalation is a new state and must surface.
	src.byCat["Food"] = 120000
	_, escalated := eval.Evaluate(ctx, "u1", configs)
	if escalated == nil || escalated.Severity != SeverityExceeded {
		t.Fatalf("escalation: alert = %+v, want exceeded", escalated)
	}

	// Dropping back to ok clears the state, so a later breach re-alerts.
	src.byCat["Food"] = 10000
	if _, cleared := eval.Evaluate(ctx, "u1", configs); cleared != nil {
		t.Fatalf("ok state surfaced alert: %+v", cleared)
	}
	src.byCat["Food"] = 85000
	if _, rearmed := eval.Evaluate(ctx, "u1", configs); rearmed == nil {
		t.Fatal("alert did not re-arm after returning to ok")
	}
}

func TestDedupIsPerUser(t *testing.T) {
	src := &fakeSpending{byCat: map[string]int64{"Food": 85000}}
	eval := NewEvaluator(src, nil)
	configs := []Config{{Type: "Food", AmountCents: 100000}}
	ctx := context.Background()

	if _, a := eval.Evaluate(ctx, "u1", configs); a == nil {
		t.Fatal("u1 first alert missing")
	}
	if _, a := eval.Evaluate(ctx, "u2", configs); a == nil {
		t.Fatal("u2 alert suppressed by u1 state")
	}
}

func TestEvaluatorNoopsWhenNotReady(t *testing.T) {
	var nilEval *Evaluator
	if snap, alert := nilEval.Evaluate(context.Background(), "u1", []Config{{Type: "Food", AmountCents: 1}}); len(snap.Limits) != 0 || alert != nil {
		t.Fatal("nil evaluator must no-op")
	}

	eval := NewEvaluator(nil, nil)
	if snap, alert := eval.Evaluate(context.Background(), "u1", []Config{{Type: "Food", AmountCents: 1}}); len(snap.Limits) != 0 || alert != nil {
		t.Fatal("evaluator without a source must no-op")
	}
}
