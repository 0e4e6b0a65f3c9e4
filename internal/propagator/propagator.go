// Package propagator fans primary-store mutations out to the secondary
// stores. Fan-out is asynchronous: the triggering write returns without
// waiting for any secondary, and a bounded worker pool applies the
// changes in the background. No ordering is guaranteed between tasks;
// the periodic divergence sweep repairs whatever propagation misses.
package propagator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// Op is the kind of mutation being propagated.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

const (
	// DefaultWorkers bounds concurrent propagation writes.
	DefaultWorkers = 4
	// DefaultQueueSize bounds buffered tasks before enqueues start
	// dropping.
	DefaultQueueSize = 256
)

type task struct {
	target *store.Store
	tab    *schema.Table
	id     any
	op     Op
}

// Propagator applies primary mutations to every secondary through a
// fixed pool of workers, so a burst of writes cannot spawn unbounded
// goroutines.
type Propagator struct {
	fleet *store.Fleet
	tasks chan task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option adjusts pool sizing.
type Option func(*options)

type options struct {
	workers   int
	queueSize int
}

// WithWorkers sets the number of pool workers.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithQueueSize sets the task buffer capacity.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// New starts the worker pool over the fleet's secondaries.
func New(fleet *store.Fleet, opts ...Option) *Propagator {
	o := options{workers: DefaultWorkers, queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Propagator{
		fleet: fleet,
		tasks: make(chan task, o.queueSize),
	}
	p.wg.Add(o.workers)
	for i := 0; i < o.workers; i++ {
		go p.worker()
	}
	return p
}

// RecordChanged enqueues one propagation task per secondary store and
// returns how many were accepted. The call never blocks: with the
// queue full, tasks are dropped with a warning and the next sweep picks
// the divergence up instead.
func (p *Propagator) RecordChanged(tab *schema.Table, id any, op Op) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}

	id = record.CanonicalID(id)
	enqueued := 0
	for _, s := range p.fleet.Secondaries() {
		select {
		case p.tasks <- task{target: s, tab: tab, id: id, op: op}:
			enqueued++
		default:
			slog.Warn("propagation queue full, dropping task",
				"store", s.Name(),
				"table", tab.Name,
				"id", record.FormatID(id),
				"op", op,
			)
		}
	}
	return enqueued
}

// Close stops accepting tasks and waits for in-flight ones to finish.
func (p *Propagator) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Propagator) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.propagate(t)
	}
}

// propagate applies one task. Tasks run detached from the request that
// triggered them, so they carry a fresh background context rather than
// the caller's.
func (p *Propagator) propagate(t task) {
	ctx := context.Background()

	if t.op == OpDelete {
		err := t.target.Delete(ctx, t.tab, t.id)
		if err != nil && !store.IsNotFound(err) {
			slog.Warn("propagation delete failed",
				"store", t.target.Name(),
				"table", t.tab.Name,
				"id", record.FormatID(t.id),
				"error", err,
			)
		}
		return
	}

	// Read the current primary copy at execution time. A stale payload
	// captured at enqueue time could overwrite a newer write.
	rec, err := p.fleet.Primary().Get(ctx, t.tab, t.id)
	if err != nil {
		if store.IsNotFound(err) {
			// Deleted before this task ran; the delete's own task
			// handles the secondaries.
			return
		}
		slog.Warn("propagation source read failed",
			"table", t.tab.Name,
			"id", record.FormatID(t.id),
			"error", err,
		)
		return
	}

	err = t.target.Update(ctx, t.tab, t.id, rec)
	if store.IsNotFound(err) {
		err = t.target.Insert(ctx, t.tab, rec, true)
	}
	if err != nil {
		slog.Warn("propagation write failed",
			"store", t.target.Name(),
			"table", t.tab.Name,
			"id", record.FormatID(t.id),
			"op", t.op,
			"error", err,
		)
	}
}
