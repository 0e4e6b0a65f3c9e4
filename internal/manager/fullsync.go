package manager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// syncPageSize bounds how many rows one copy batch reads.
const syncPageSize = 500

// TableSync reports one table's full-sync outcome. Records counts rows
// read from the primary; Failed counts per-secondary writes that did
// not land.
type TableSync struct {
	Table   string `json:"table"`
	Records int    `json:"records"`
	Failed  int    `json:"failed"`
}

// FullSync copies every primary row into every secondary, upserting
// record by record. Tables go in dependency order so referenced rows
// land before their dependents.
func (m *Manager) FullSync(ctx context.Context) ([]TableSync, error) {
	primary := m.fleet.Primary()
	out := make([]TableSync, 0, m.tables.Len())
	for _, tab := range m.tables.TopoOrder() {
		ts := TableSync{Table: tab.Name}
		for offset := 0; ; offset += syncPageSize {
			page, err := primary.Page(ctx, tab, syncPageSize, offset)
			if err != nil {
				return nil, fmt.Errorf("manager: reading %s from primary: %w", tab.Name, err)
			}
			if len(page) == 0 {
				break
			}
			for _, rec := range page {
				ts.Records++
				id := record.CanonicalID(rec[tab.PrimaryKey])
				for _, sec := range m.fleet.Secondaries() {
					if err := upsert(ctx, sec, tab, id, rec); err != nil {
						ts.Failed++
						slog.Warn("full sync write failed",
							"store", sec.Name(),
							"table", tab.Name,
							"id", record.FormatID(id),
							"error", err,
						)
					}
				}
			}
			if len(page) < syncPageSize {
				break
			}
		}
		slog.Info("table synchronized", "table", tab.Name, "records", ts.Records, "failed", ts.Failed)
		out = append(out, ts)
	}
	return out, nil
}

// upsert writes the record under its original key, updating when the
// row exists and inserting when it does not.
func upsert(ctx context.Context, s *store.Store, tab *schema.Table, id any, rec record.Record) error {
	err := s.Update(ctx, tab, id, rec)
	if store.IsNotFound(err) {
		return s.Insert(ctx, tab, rec, true)
	}
	return err
}
