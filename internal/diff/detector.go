package diff

import (
	"context"
	"log/slog"
	"sort"

	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// Detector runs divergence checks across a fleet.
type Detector struct {
	fleet  *store.Fleet
	tables *schema.Registry
}

// NewDetector creates a detector over the fleet and table registry.
func NewDetector(fleet *store.Fleet, tables *schema.Registry) *Detector {
	return &Detector{fleet: fleet, tables: tables}
}

// Detect fetches the record from every store and compares all copies
// against the reference: the first store in fleet order that has one.
// A store that cannot serve the read is treated as having no record.
// The returned error is non-nil only when ctx ends mid-check.
func (d *Detector) Detect(ctx context.Context, tab *schema.Table, id any) (*Report, error) {
	id = record.CanonicalID(id)
	report := &Report{
		Table:    tab.Name,
		ID:       id,
		RecordID: record.FormatID(id),
	}

	records, err := d.fetchAll(ctx, tab, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		report.Reason = ReasonNoRecords
		return report, nil
	}
	report.Records = records

	for _, s := range d.fleet.All() {
		if _, ok := records[s.Name()]; ok {
			report.ReferenceStore = s.Name()
			break
		}
	}
	ref := records[report.ReferenceStore]

	for _, s := range d.fleet.All() {
		name := s.Name()
		if name == report.ReferenceStore {
			continue
		}
		observed, ok := records[name]
		if !ok {
			report.Conflicts = append(report.Conflicts, Conflict{
				Kind:           KindMissingRecord,
				Store:          name,
				ReferenceStore: report.ReferenceStore,
			})
			continue
		}
		if fields := compareRecords(tab, ref, observed); len(fields) > 0 {
			report.Conflicts = append(report.Conflicts, Conflict{
				Kind:           KindDataMismatch,
				Store:          name,
				ReferenceStore: report.ReferenceStore,
				Fields:         fields,
			})
		}
	}
	report.HasConflict = len(report.Conflicts) > 0
	return report, nil
}

// BatchCheck runs Detect over the union of the table's key sets across
// every reachable store.
func (d *Detector) BatchCheck(ctx context.Context, tab *schema.Table) (*TableReport, error) {
	ids, err := d.collectIDs(ctx, tab)
	if err != nil {
		return nil, err
	}
	tr := &TableReport{Table: tab.Name, TotalRecords: len(ids)}
	for _, id := range ids {
		rep, err := d.Detect(ctx, tab, id)
		if err != nil {
			return nil, err
		}
		if rep.HasConflict {
			tr.Conflicts = append(tr.Conflicts, rep)
		}
	}
	return tr, nil
}

// fetchAll collects the record from every store that can serve it.
func (d *Detector) fetchAll(ctx context.Context, tab *schema.Table, id any) (map[string]record.Record, error) {
	records := make(map[string]record.Record, d.fleet.Len())
	for _, s := range d.fleet.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.Get(ctx, tab, id)
		if err != nil {
			if store.IsConnection(err) {
				slog.Debug("store unreachable during detection",
					"store", s.Name(),
					"table", tab.Name,
					"id", record.FormatID(id),
				)
			}
			continue
		}
		records[s.Name()] = rec
	}
	return records, nil
}

// collectIDs unions the key sets of every reachable store. Integer keys
// sort before string keys so sweeps run in a deterministic order.
func (d *Detector) collectIDs(ctx context.Context, tab *schema.Table) ([]any, error) {
	seen := make(map[any]struct{})
	var ints []int64
	var strs []string
	for _, s := range d.fleet.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, err := s.ListIDs(ctx, tab)
		if err != nil {
			slog.Debug("store unreachable during id scan",
				"store", s.Name(),
				"table", tab.Name,
			)
			continue
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			switch v := id.(type) {
			case int64:
				ints = append(ints, v)
			case string:
				strs = append(strs, v)
			default:
				strs = append(strs, record.FormatID(v))
			}
		}
	}
	sort.Slice(ints, func(i, j int) bool { return ints[i] < ints[j] })
	sort.Strings(strs)

	out := make([]any, 0, len(ints)+len(strs))
	for _, v := range ints {
		out = append(out, v)
	}
	for _, v := range strs {
		out = append(out, v)
	}
	return out, nil
}

// compareRecords diffs the observed record against the reference over
// the reference's fields. Volatile fields are skipped; date-classified
// fields compare by calendar date only.
func compareRecords(tab *schema.Table, ref, observed record.Record) []FieldDiff {
	var diffs []FieldDiff
	for _, field := range ref.Fields() {
		if tab.IsVolatile(field) {
			continue
		}
		refVal, obsVal := ref[field], observed[field]
		var same bool
		if tab.IsDateCompared(field) {
			same = record.SameCalendarDate(refVal, obsVal)
		} else {
			same = record.Equal(refVal, obsVal)
		}
		if !same {
			diffs = append(diffs, FieldDiff{Field: field, Reference: refVal, Observed: obsVal})
		}
	}
	return diffs
}
