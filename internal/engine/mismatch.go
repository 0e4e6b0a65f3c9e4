package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sylvanix/converge/internal/audit"
	"github.com/sylvanix/converge/internal/diff"
	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// resolveMismatch converges every diverging copy onto the version the
// strategy selects. Stores that were missing the record are handled by
// their own missing_record conflicts and skipped here.
func (e *Engine) resolveMismatch(ctx context.Context, tab *schema.Table, report *diff.Report, strat Strategy) audit.Result {
	source, version, failure := e.pickVersion(ctx, tab, report, strat)
	if failure != nil {
		return *failure
	}

	action := audit.ActionUpdatedAllFromSource
	if strat.kind == strategyTimestamp {
		action = audit.ActionUpdatedAllWithNewest
	}
	res := audit.Result{Action: action, SourceStore: source, Reason: strat.String()}

	for _, s := range e.fleet.All() {
		name := s.Name()
		if name == source {
			continue
		}
		if _, present := report.Records[name]; !present {
			continue
		}
		if err := s.Update(ctx, tab, report.ID, version); err != nil {
			if store.IsNotFound(err) {
				// Vanished between detection and repair; the next sweep
				// re-checks.
				res.MissingStores = append(res.MissingStores, name)
				continue
			}
			res.FailedStores = append(res.FailedStores, name)
			res.Err = err.Error()
			continue
		}
		res.UpdatedStores = append(res.UpdatedStores, name)
	}

	res.SuccessCount = len(res.UpdatedStores)
	if len(res.FailedStores) > 0 {
		res.Action = audit.ActionFailed
	}
	return res
}

// pickVersion selects the winning copy for a mismatch repair. Timestamp
// priority picks among the detect-time copies; primary and store
// priority re-read the forced store so a copy inserted earlier in the
// same pass is seen.
func (e *Engine) pickVersion(ctx context.Context, tab *schema.Table, report *diff.Report, strat Strategy) (string, record.Record, *audit.Result) {
	fail := func(msg string) *audit.Result {
		return &audit.Result{Action: audit.ActionFailed, Reason: strat.String(), Err: msg}
	}

	switch strat.kind {
	case strategyPrimary:
		name := e.fleet.Primary().Name()
		if rec, ok := report.Records[name]; ok {
			return name, rec, nil
		}
		rec, err := e.fleet.Primary().Get(ctx, tab, report.ID)
		if err != nil {
			return "", nil, fail("primary store has no copy of the record")
		}
		return name, rec, nil

	case strategyStore:
		s, ok := e.fleet.ByName(strat.store)
		if !ok {
			return "", nil, fail(fmt.Sprintf("store %s is not configured", strat.store))
		}
		rec, err := s.Get(ctx, tab, report.ID)
		if err != nil {
			return "", nil, fail(fmt.Sprintf("store %s has no copy of the record", strat.store))
		}
		return strat.store, rec, nil

	default:
		name := e.newestStore(report)
		return name, report.Records[name], nil
	}
}

// newestStore picks the copy with the greatest updated_at. Ties keep the
// earlier store in fleet order, so the reference beats an equal
// challenger. Unparsable or absent timestamps sort below every real one.
func (e *Engine) newestStore(report *diff.Report) string {
	var winner string
	var winnerTime time.Time
	for _, s := range e.fleet.All() {
		rec, ok := report.Records[s.Name()]
		if !ok {
			continue
		}
		t := record.TimestampOrMin(rec["updated_at"])
		if winner == "" || t.After(winnerTime) {
			winner = s.Name()
			winnerTime = t
		}
	}
	return winner
}
