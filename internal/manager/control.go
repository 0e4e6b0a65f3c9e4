package manager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sylvanix/converge/internal/audit"
	"github.com/sylvanix/converge/internal/config"
	"github.com/sylvanix/converge/internal/diff"
	"github.com/sylvanix/converge/internal/engine"
	"github.com/sylvanix/converge/internal/propagator"
	"github.com/sylvanix/converge/internal/schema"
)

// Config returns a snapshot of the effective configuration. Interval
// and default strategy reflect runtime changes, not just the loaded
// file.
func (m *Manager) Config() config.Config {
	cfg := *m.cfg
	cfg.CheckInterval = config.Duration(m.sched.Interval())
	cfg.DefaultStrategy = m.DefaultStrategy().String()
	return cfg
}

// DefaultStrategy returns the strategy sweeps fall back to.
func (m *Manager) DefaultStrategy() engine.Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultStrategy
}

// SetDefaultStrategy changes the sweep default. Review-only and
// destructive strategies are rejected; they must be requested per
// record.
func (m *Manager) SetDefaultStrategy(name string) error {
	strat, err := engine.ParseStrategy(name, m.fleet.Names())
	if err != nil {
		return err
	}
	if !strat.AllowedAsDefault() {
		return fmt.Errorf("manager: strategy %s cannot be the default", strat)
	}
	m.mu.Lock()
	m.defaultStrategy = strat
	m.mu.Unlock()
	slog.Info("default strategy changed", "strategy", strat.String())
	return nil
}

// SetCheckInterval changes the sweep cadence within the configured
// bounds.
func (m *Manager) SetCheckInterval(d time.Duration) error {
	if d < config.MinCheckInterval || d > config.MaxCheckInterval {
		return fmt.Errorf("manager: check interval %s outside [%s, %s]",
			d, config.MinCheckInterval, config.MaxCheckInterval)
	}
	m.sched.SetInterval(d)
	slog.Info("check interval changed", "interval", d)
	return nil
}

// StartScheduler starts the background sweep loop. Idempotent.
func (m *Manager) StartScheduler() { m.sched.Start() }

// StopScheduler stops the loop without cancelling an in-flight sweep.
func (m *Manager) StopScheduler() { m.sched.Stop() }

// SchedulerRunning reports whether the loop is active.
func (m *Manager) SchedulerRunning() bool { return m.sched.Running() }

func (m *Manager) table(name string) (*schema.Table, error) {
	tab, ok := m.tables.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("manager: unknown table %q", name)
	}
	return tab, nil
}

// CheckRecord runs divergence detection for a single record.
func (m *Manager) CheckRecord(ctx context.Context, table string, id any) (*diff.Report, error) {
	tab, err := m.table(table)
	if err != nil {
		return nil, err
	}
	return m.detector.Detect(ctx, tab, id)
}

// CheckTable checks every record id seen in any store for the table.
func (m *Manager) CheckTable(ctx context.Context, table string) (*diff.TableReport, error) {
	tab, err := m.table(table)
	if err != nil {
		return nil, err
	}
	return m.detector.BatchCheck(ctx, tab)
}

// CheckAll checks every registered table.
func (m *Manager) CheckAll(ctx context.Context) ([]*diff.TableReport, error) {
	reports := make([]*diff.TableReport, 0, m.tables.Len())
	for _, tab := range m.tables.Tables() {
		tr, err := m.detector.BatchCheck(ctx, tab)
		if err != nil {
			return nil, err
		}
		reports = append(reports, tr)
	}
	return reports, nil
}

// Resolve repairs one record under the named strategy; an empty name
// uses the default.
func (m *Manager) Resolve(ctx context.Context, table string, id any, strategy string) (*engine.Outcome, error) {
	tab, err := m.table(table)
	if err != nil {
		return nil, err
	}
	strat := m.DefaultStrategy()
	if strategy != "" {
		strat, err = engine.ParseStrategy(strategy, m.fleet.Names())
		if err != nil {
			return nil, err
		}
	}
	return m.engine.Resolve(ctx, tab, id, strat)
}

// Statistics aggregates the audit trail.
func (m *Manager) Statistics() audit.Stats {
	return m.auditLog.Stats(audit.DefaultRecentWindow)
}

// History returns every audit entry recorded since startup.
func (m *Manager) History() []audit.Entry {
	return m.auditLog.Entries()
}

// StoreStatus is one store's reachability as seen right now.
type StoreStatus struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Primary   bool   `json:"primary"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// StoreStatuses pings every store, primary first.
func (m *Manager) StoreStatuses(ctx context.Context) []StoreStatus {
	pings := m.fleet.Ping(ctx)
	out := make([]StoreStatus, 0, m.fleet.Len())
	for _, s := range m.fleet.All() {
		st := StoreStatus{
			Name:    s.Name(),
			Kind:    s.Kind().String(),
			Primary: s.IsPrimary(),
		}
		if err := pings[s.Name()]; err != nil {
			st.Error = err.Error()
		} else {
			st.Reachable = true
		}
		out = append(out, st)
	}
	return out
}

// RecordChanged queues asynchronous propagation of a primary-store
// mutation to every secondary. It returns before any secondary is
// written.
func (m *Manager) RecordChanged(table string, id any, op propagator.Op) error {
	tab, err := m.table(table)
	if err != nil {
		return err
	}
	m.prop.RecordChanged(tab, id, op)
	return nil
}
