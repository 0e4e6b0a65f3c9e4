// Package manager wires the fleet, table registry, detector, resolution
// engine, change propagator, scheduler and audit trail into one runtime
// handle. The control surface the API layer drives lives entirely on
// this handle; nothing is looked up through globals.
package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sylvanix/converge/internal/audit"
	"github.com/sylvanix/converge/internal/config"
	"github.com/sylvanix/converge/internal/diff"
	"github.com/sylvanix/converge/internal/engine"
	"github.com/sylvanix/converge/internal/notify"
	"github.com/sylvanix/converge/internal/propagator"
	"github.com/sylvanix/converge/internal/scheduler"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// Manager owns every component of the convergence runtime.
type Manager struct {
	cfg      *config.Config
	fleet    *store.Fleet
	tables   *schema.Registry
	detector *diff.Detector
	engine   *engine.Engine
	auditLog *audit.Log
	prop     *propagator.Propagator
	sched    *scheduler.Scheduler
	notifier notify.Notifier

	newToken func() string
	now      func() time.Time

	mu              sync.RWMutex
	defaultStrategy engine.Strategy
}

// Option customizes a Manager.
type Option func(*Manager)

// WithNotifier replaces the default log-backed notification sink.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithClock substitutes the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTokenGenerator substitutes the sweep token source.
func WithTokenGenerator(gen func() string) Option {
	return func(m *Manager) { m.newToken = gen }
}

// Open builds a Manager from configuration: it opens every configured
// store, loads the table descriptors and assembles the runtime. The
// scheduler starts only when the configuration says so.
func Open(cfg *config.Config) (*Manager, error) {
	descs, err := cfg.Descriptors()
	if err != nil {
		return nil, err
	}

	var primary *store.Store
	var secondaries []*store.Store
	opened := make([]*store.Store, 0, len(descs))
	closeOpened := func() {
		for _, s := range opened {
			s.Close()
		}
	}
	for _, d := range descs {
		s, err := store.Open(d)
		if err != nil {
			closeOpened()
			return nil, fmt.Errorf("manager: opening store %s: %w", d.Name, err)
		}
		opened = append(opened, s)
		if d.Primary {
			primary = s
		} else {
			secondaries = append(secondaries, s)
		}
	}
	fleet, err := store.NewFleet(primary, secondaries...)
	if err != nil {
		closeOpened()
		return nil, err
	}

	tables, err := schema.LoadDir(cfg.TablesDir)
	if err != nil {
		fleet.Close()
		return nil, err
	}
	return New(cfg, fleet, tables)
}

// New assembles a Manager over an already-open fleet and registry. The
// Manager takes ownership of the fleet and closes it on Close.
func New(cfg *config.Config, fleet *store.Fleet, tables *schema.Registry, opts ...Option) (*Manager, error) {
	strat, err := engine.ParseStrategy(cfg.DefaultStrategy, fleet.Names())
	if err != nil {
		return nil, fmt.Errorf("manager: %w", err)
	}
	if !strat.AllowedAsDefault() {
		return nil, fmt.Errorf("manager: strategy %s cannot be the default", strat)
	}

	m := &Manager{
		cfg:             cfg,
		fleet:           fleet,
		tables:          tables,
		auditLog:        audit.NewLog(),
		notifier:        notify.LogNotifier{},
		defaultStrategy: strat,
		newToken:        func() string { return uuid.Must(uuid.NewV7()).String() },
		now:             time.Now,
	}
	m.detector = diff.NewDetector(fleet, tables)
	m.engine = engine.New(fleet, tables, m.detector, m.auditLog)
	m.prop = propagator.New(fleet,
		propagator.WithWorkers(cfg.Workers),
		propagator.WithQueueSize(cfg.QueueSize),
	)
	m.sched = scheduler.New(m.scheduledSweep, cfg.CheckInterval.Std())

	for _, opt := range opts {
		opt(m)
	}

	if cfg.AutoStart {
		m.sched.Start()
	}
	return m, nil
}

// Close stops the scheduler, drains the propagator and releases every
// store connection.
func (m *Manager) Close() error {
	m.sched.Stop()
	m.prop.Close()
	return m.fleet.Close()
}
