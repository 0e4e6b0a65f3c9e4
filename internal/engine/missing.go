package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sylvanix/converge/internal/audit"
	"github.com/sylvanix/converge/internal/diff"
	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// handleMissing replicates the record into a store that lacks it:
// dependencies first, then an insert preserving the original key. A
// unique violation on the insert means the target already carries the
// row under another key, so it is updated in place instead.
func (e *Engine) handleMissing(ctx context.Context, tab *schema.Table, report *diff.Report, targetName string, strat Strategy) audit.Result {
	target, ok := e.fleet.ByName(targetName)
	if !ok {
		return audit.Result{
			Action: audit.ActionFailed,
			Store:  targetName,
			Reason: "record_missing",
			Err:    fmt.Sprintf("store %s is not configured", targetName),
		}
	}

	source, rec := e.missingSource(report, strat)
	if rec == nil {
		return audit.Result{
			Action: audit.ActionFailed,
			Store:  targetName,
			Reason: "record_missing",
			Err:    "no usable source copy",
		}
	}

	if err := e.ensureDependencies(ctx, target, tab, rec); err != nil {
		slog.Warn("dependency resolution failed, skipping insert",
			"store", targetName,
			"table", tab.Name,
			"id", report.RecordID,
			"error", err,
		)
		return audit.Result{
			Action: audit.ActionSkipped,
			Store:  targetName,
			Reason: "dependency_failed",
			Err:    err.Error(),
		}
	}

	if err := target.Insert(ctx, tab, rec, true); err != nil {
		if store.IsUniqueViolation(err) {
			return e.updateExisting(ctx, target, tab, rec)
		}
		return audit.Result{
			Action: audit.ActionFailed,
			Store:  targetName,
			Reason: "record_missing",
			Err:    err.Error(),
		}
	}
	return audit.Result{
		Action:       audit.ActionInsertedMissing,
		Store:        targetName,
		SourceStore:  source,
		Reason:       "record_missing",
		SuccessCount: 1,
	}
}

// missingSource selects the copy to replicate per the strategy, falling
// back to the reference and then to any store with a copy.
func (e *Engine) missingSource(report *diff.Report, strat Strategy) (string, record.Record) {
	switch strat.kind {
	case strategyStore:
		if rec, ok := report.Records[strat.store]; ok {
			return strat.store, rec
		}
	case strategyPrimary:
		name := e.fleet.Primary().Name()
		if rec, ok := report.Records[name]; ok {
			return name, rec
		}
	case strategyTimestamp:
		if name := e.newestStore(report); name != "" {
			return name, report.Records[name]
		}
	}
	if rec := report.Reference(); rec != nil {
		return report.ReferenceStore, rec
	}
	for _, s := range e.fleet.All() {
		if rec, ok := report.Records[s.Name()]; ok {
			return s.Name(), rec
		}
	}
	return "", nil
}

// updateExisting repairs a unique-violation insert: the pre-existing row
// is located by natural key and its non-identity fields are overwritten
// from the source copy.
func (e *Engine) updateExisting(ctx context.Context, target *store.Store, tab *schema.Table, source record.Record) audit.Result {
	res := audit.Result{Store: target.Name(), Reason: "unique_constraint_conflict"}

	if tab.NaturalKey == "" {
		res.Action = audit.ActionFailed
		res.Err = fmt.Sprintf("unique violation on %s and no natural key to locate the existing row", tab.Name)
		return res
	}
	keyVal, ok := source[tab.NaturalKey]
	if !ok || keyVal == nil {
		res.Action = audit.ActionFailed
		res.Err = fmt.Sprintf("source copy carries no %s value", tab.NaturalKey)
		return res
	}

	existing, err := target.FindByField(ctx, tab, tab.NaturalKey, keyVal)
	if err != nil {
		res.Action = audit.ActionFailed
		res.Err = err.Error()
		return res
	}
	existingID := record.CanonicalID(existing[tab.PrimaryKey])

	if err := target.Update(ctx, tab, existingID, source.Without(tab.PrimaryKey, tab.NaturalKey)); err != nil {
		res.Action = audit.ActionFailed
		res.Err = err.Error()
		return res
	}
	res.Action = audit.ActionUpdatedExisting
	res.SuccessCount = 1
	return res
}
