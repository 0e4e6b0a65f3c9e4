// Package audit keeps the in-memory trail of resolution outcomes. Every
// resolution pass appends one entry per record acted on; the trail is
// append-only and queryable for operator statistics.
package audit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Action identifies what a resolution pass did for one record.
type Action string

const (
	ActionUpdatedAllWithNewest Action = "updated_all_with_newest"
	ActionUpdatedAllFromSource Action = "updated_all_from_source"
	ActionInsertedMissing      Action = "inserted_missing"
	ActionUpdatedExisting      Action = "updated_existing"
	ActionDeletedAll           Action = "deleted_all"
	ActionMarkedForReview      Action = "marked_for_review"
	ActionSkipped              Action = "skipped"
	ActionFailed               Action = "failed"
)

// Status summarizes an entry's overall outcome across its results.
type Status string

const (
	StatusResolved      Status = "resolved"
	StatusPartial       Status = "partial"
	StatusFailed        Status = "failed"
	StatusPendingReview Status = "pending_review"
)

// Result is the outcome of one resolution action. Store-level fields are
// populated only where they apply to the action taken.
type Result struct {
	Action        Action   `json:"action"`
	Store         string   `json:"store,omitempty"`
	SourceStore   string   `json:"source_store,omitempty"`
	UpdatedStores []string `json:"updated_stores,omitempty"`
	DeletedStores []string `json:"deleted_stores,omitempty"`
	MissingStores []string `json:"missing_stores,omitempty"`
	FailedStores  []string `json:"failed_stores,omitempty"`
	SuccessCount  int      `json:"success_count,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Err           string   `json:"error,omitempty"`
}

// Resolved reports whether the action repaired the divergence it
// addressed.
func (r Result) Resolved() bool {
	switch r.Action {
	case ActionFailed, ActionSkipped, ActionMarkedForReview:
		return false
	}
	return true
}

// Entry is one audited record resolution. ID, Seq, Time and Status are
// stamped by the log on append.
type Entry struct {
	ID       string    `json:"id"`
	Seq      int64     `json:"seq"`
	Time     time.Time `json:"time"`
	Table    string    `json:"table"`
	RecordID string    `json:"record_id"`
	Strategy string    `json:"strategy"`
	Status   Status    `json:"status"`
	Results  []Result  `json:"results"`
}

// statusOf folds the per-action outcomes into the entry status. Review
// wins over everything: a record waiting on an operator is not settled
// no matter what else happened.
func statusOf(results []Result) Status {
	resolved, unresolved := 0, 0
	for _, r := range results {
		if r.Action == ActionMarkedForReview {
			return StatusPendingReview
		}
		if r.Resolved() {
			resolved++
		} else {
			unresolved++
		}
	}
	switch {
	case unresolved == 0:
		return StatusResolved
	case resolved > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// IDGenerator produces unique entry identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 entry IDs, so trail IDs
// order by creation time.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GeneratorFunc adapts a plain function to IDGenerator.
type GeneratorFunc func() string

func (f GeneratorFunc) Generate() string { return f() }

// Log is the append-only resolution trail.
//
// Thread-safety: all methods are safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry

	idGen IDGenerator
	now   func() time.Time
	seq   atomic.Int64
}

// Option configures a Log.
type Option func(*Log)

// WithIDGenerator overrides the entry ID source, used by tests that need
// deterministic IDs.
func WithIDGenerator(gen IDGenerator) Option {
	return func(l *Log) { l.idGen = gen }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// NewLog creates an empty trail.
func NewLog(opts ...Option) *Log {
	l := &Log{
		idGen: UUIDv7Generator{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stamps the entry with ID, sequence, time and status and stores
// it. The stamped copy is returned.
func (l *Log) Append(e Entry) Entry {
	e.ID = l.idGen.Generate()
	e.Seq = l.seq.Add(1)
	e.Time = l.now().UTC()
	if e.Status == "" {
		e.Status = statusOf(e.Results)
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e
}

// Entries returns a copy of the trail in append order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
