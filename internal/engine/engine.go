// Package engine repairs detected divergence. Each resolution pass
// detects conflicts for one record, dispatches them to the chosen
// strategy, performs the store mutations, and appends the outcome to the
// audit trail.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sylvanix/converge/internal/audit"
	"github.com/sylvanix/converge/internal/diff"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// Engine applies resolution strategies across the fleet.
//
// Thread-safety: every resolution pass runs under a process-wide lock,
// so two concurrent resolutions can never race on the same record.
type Engine struct {
	mu       sync.Mutex
	fleet    *store.Fleet
	tables   *schema.Registry
	detector *diff.Detector
	log      *audit.Log
}

// New creates an engine over the fleet, table registry and audit trail.
func New(fleet *store.Fleet, tables *schema.Registry, detector *diff.Detector, log *audit.Log) *Engine {
	return &Engine{
		fleet:    fleet,
		tables:   tables,
		detector: detector,
		log:      log,
	}
}

// Outcome is the result of one resolution pass over a record.
type Outcome struct {
	Table    string         `json:"table"`
	RecordID string         `json:"record_id"`
	Strategy string         `json:"strategy"`
	Resolved bool           `json:"resolved"`
	Results  []audit.Result `json:"results,omitempty"`
	Report   *diff.Report   `json:"report,omitempty"`
}

// Resolve detects divergence for the record and repairs it under the
// strategy. A clean record resolves trivially with no mutations and no
// audit entry. The returned error is non-nil only when ctx ends
// mid-pass; per-store failures are reported inside the outcome instead.
func (e *Engine) Resolve(ctx context.Context, tab *schema.Table, id any, strat Strategy) (*Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report, err := e.detector.Detect(ctx, tab, id)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Table:    tab.Name,
		RecordID: report.RecordID,
		Strategy: strat.String(),
		Report:   report,
	}
	if !report.HasConflict {
		out.Resolved = true
		return out, nil
	}

	switch strat.kind {
	case strategyDeleteAll:
		out.Results = []audit.Result{e.deleteEverywhere(ctx, tab, report)}
	case strategyManualReview:
		out.Results = e.markForReview(report)
	default:
		out.Results = e.repair(ctx, tab, report, strat)
	}

	out.Resolved = true
	for _, r := range out.Results {
		if r.Action == audit.ActionFailed || r.Action == audit.ActionSkipped {
			out.Resolved = false
			break
		}
	}

	e.log.Append(audit.Entry{
		Table:    tab.Name,
		RecordID: report.RecordID,
		Strategy: strat.String(),
		Results:  out.Results,
	})
	slog.Info("conflict resolution finished",
		"table", tab.Name,
		"id", report.RecordID,
		"strategy", strat.String(),
		"conflicts", len(report.Conflicts),
		"resolved", out.Resolved,
	)
	return out, nil
}

// repair handles the priority strategies: stores missing the record get
// inserts first, then a single record-level pass converges the diverging
// copies onto the strategy's chosen version.
func (e *Engine) repair(ctx context.Context, tab *schema.Table, report *diff.Report, strat Strategy) []audit.Result {
	var results []audit.Result
	for _, c := range report.Conflicts {
		if c.Kind != diff.KindMissingRecord {
			continue
		}
		results = append(results, e.handleMissing(ctx, tab, report, c.Store, strat))
	}
	if len(report.MismatchedIn()) > 0 {
		results = append(results, e.resolveMismatch(ctx, tab, report, strat))
	}
	return results
}

// markForReview records one review marker per conflicted store without
// touching any data.
func (e *Engine) markForReview(report *diff.Report) []audit.Result {
	results := make([]audit.Result, 0, len(report.Conflicts))
	for _, c := range report.Conflicts {
		results = append(results, audit.Result{
			Action: audit.ActionMarkedForReview,
			Store:  c.Store,
			Reason: "manual_review_required",
		})
	}
	return results
}
