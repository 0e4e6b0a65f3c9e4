// Package diff detects divergence between the stores of a fleet. A
// record is fetched from every store, one store is chosen as reference,
// and the rest are compared against it field by field under the table's
// comparison rules.
package diff

import (
	"github.com/sylvanix/converge/internal/record"
)

// Kind classifies a conflict.
type Kind string

const (
	// KindMissingRecord means the store has no row for the key.
	KindMissingRecord Kind = "missing_record"
	// KindDataMismatch means the row exists but differs from the
	// reference in at least one compared field.
	KindDataMismatch Kind = "data_mismatch"
)

// ReasonNoRecords is reported when no store has the requested record.
const ReasonNoRecords = "no_records_found_in_any_store"

// FieldDiff is one differing field between reference and observed.
type FieldDiff struct {
	Field     string `json:"field"`
	Reference any    `json:"reference"`
	Observed  any    `json:"observed"`
}

// Conflict describes how one store diverges from the reference.
type Conflict struct {
	Kind           Kind        `json:"kind"`
	Store          string      `json:"store"`
	ReferenceStore string      `json:"reference_store"`
	Fields         []FieldDiff `json:"fields,omitempty"`
}

// Report is the detection outcome for one record across the fleet.
type Report struct {
	Table          string                   `json:"table"`
	RecordID       string                   `json:"record_id"`
	HasConflict    bool                     `json:"has_conflict"`
	Reason         string                   `json:"reason,omitempty"`
	ReferenceStore string                   `json:"reference_store,omitempty"`
	Records        map[string]record.Record `json:"records,omitempty"`
	Conflicts      []Conflict               `json:"conflicts,omitempty"`

	// ID is the canonical key value, kept for follow-up operations.
	ID any `json:"-"`
}

// Reference returns the reference store's record, nil when no store had
// the record.
func (r *Report) Reference() record.Record {
	if r.ReferenceStore == "" {
		return nil
	}
	return r.Records[r.ReferenceStore]
}

// MissingFrom lists the stores flagged with a missing_record conflict.
func (r *Report) MissingFrom() []string {
	var out []string
	for _, c := range r.Conflicts {
		if c.Kind == KindMissingRecord {
			out = append(out, c.Store)
		}
	}
	return out
}

// MismatchedIn lists the stores flagged with a data_mismatch conflict.
func (r *Report) MismatchedIn() []string {
	var out []string
	for _, c := range r.Conflicts {
		if c.Kind == KindDataMismatch {
			out = append(out, c.Store)
		}
	}
	return out
}

// TableReport is the outcome of a whole-table check. Conflicts holds
// only the conflicted records; clean records are counted, not listed.
type TableReport struct {
	Table        string    `json:"table"`
	TotalRecords int       `json:"total_records"`
	Conflicts    []*Report `json:"conflicts,omitempty"`
}
