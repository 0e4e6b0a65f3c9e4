package manager

import (
	"context"
	"log/slog"

	"github.com/sylvanix/converge/internal/diff"
	"github.com/sylvanix/converge/internal/engine"
	"github.com/sylvanix/converge/internal/notify"
)

// scheduledSweep is the scheduler job: one full divergence sweep with
// the default strategy. Scheduled sweeps notify only when they found
// something; a clean pass stays quiet.
func (m *Manager) scheduledSweep(ctx context.Context) error {
	summary, err := m.sweep(ctx, notify.TriggerScheduled, m.DefaultStrategy())
	if err != nil {
		return err
	}
	if summary.ConflictRecords > 0 {
		m.send(ctx, summary)
	}
	return nil
}

// ManualSync runs one sweep now with the named strategy (empty means
// the default) and always notifies, conflicts or not.
func (m *Manager) ManualSync(ctx context.Context, strategy string) (*notify.SweepSummary, error) {
	strat := m.DefaultStrategy()
	if strategy != "" {
		var err error
		strat, err = engine.ParseStrategy(strategy, m.fleet.Names())
		if err != nil {
			return nil, err
		}
	}
	summary, err := m.sweep(ctx, notify.TriggerManual, strat)
	if err != nil {
		return nil, err
	}
	m.send(ctx, summary)
	return summary, nil
}

// sweep batch-checks every table and resolves each conflicted record
// with the given strategy. Per-record failures land in the summary; the
// returned error is non-nil only when ctx ends mid-sweep.
func (m *Manager) sweep(ctx context.Context, trigger notify.Trigger, strat engine.Strategy) (*notify.SweepSummary, error) {
	started := m.now()
	summary := &notify.SweepSummary{
		Token:    m.newToken(),
		Trigger:  trigger,
		Strategy: strat.String(),
		Started:  started,
	}
	slog.Info("sweep started",
		"token", summary.Token,
		"trigger", trigger,
		"strategy", strat.String(),
	)

	for _, tab := range m.tables.Tables() {
		tr, err := m.detector.BatchCheck(ctx, tab)
		if err != nil {
			return nil, err
		}
		summary.TablesChecked++
		summary.RecordsChecked += tr.TotalRecords
		if len(tr.Conflicts) == 0 {
			continue
		}

		tableOut := notify.TableOutcome{Table: tab.Name}
		for _, rep := range tr.Conflicts {
			out, err := m.engine.Resolve(ctx, tab, rep.ID, strat)
			if err != nil {
				return nil, err
			}
			summary.ConflictRecords++
			if out.Resolved {
				summary.Resolved++
			} else {
				summary.Failed++
			}
			tableOut.Records = append(tableOut.Records, notify.RecordOutcome{
				ID:       rep.RecordID,
				Stores:   conflictStores(rep),
				Resolved: out.Resolved,
			})
		}
		summary.Tables = append(summary.Tables, tableOut)
	}

	summary.Duration = m.now().Sub(started)
	slog.Info("sweep finished",
		"token", summary.Token,
		"tables", summary.TablesChecked,
		"records", summary.RecordsChecked,
		"conflicts", summary.ConflictRecords,
		"resolved", summary.Resolved,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)
	return summary, nil
}

// conflictStores lists the stores a report flagged, in report order.
func conflictStores(rep *diff.Report) []string {
	stores := make([]string, 0, len(rep.Conflicts))
	for _, c := range rep.Conflicts {
		stores = append(stores, c.Store)
	}
	return stores
}

// send delivers a notification. Delivery failures are logged, never
// propagated to the operation that produced the summary.
func (m *Manager) send(ctx context.Context, summary *notify.SweepSummary) {
	if err := m.notifier.Notify(ctx, summary.Subject(), summary.Body()); err != nil {
		slog.Error("notification delivery failed", "token", summary.Token, "error", err)
	}
}
