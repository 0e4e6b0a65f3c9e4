package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sylvanix/converge/internal/record"
	"github.com/sylvanix/converge/internal/schema"
	"github.com/sylvanix/converge/internal/store"
)

// DependencyError means a row referenced by a foreign key could not be
// located in any store, so the dependent insert cannot proceed.
type DependencyError struct {
	Table string
	ID    any
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s id %v not found in any store", e.Table, e.ID)
}

// IsDependencyError reports whether err is a DependencyError.
func IsDependencyError(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}

// ensureDependencies verifies every row referenced by the record's
// foreign keys exists in the target store, recursively creating missing
// ones from whichever store has them, primary first. The declared
// dependency graph is validated acyclic at registry construction, so the
// recursion terminates.
func (e *Engine) ensureDependencies(ctx context.Context, target *store.Store, tab *schema.Table, rec record.Record) error {
	for _, dep := range tab.Dependencies {
		fkVal, ok := rec[dep.Field]
		if !ok || fkVal == nil {
			continue
		}
		depTab, ok := e.tables.Lookup(dep.Table)
		if !ok {
			return fmt.Errorf("dependency table %s is not registered", dep.Table)
		}
		id := record.CanonicalID(fkVal)

		if _, err := target.Get(ctx, depTab, id); err == nil {
			continue
		}

		var source record.Record
		for _, s := range e.fleet.All() {
			if s.Name() == target.Name() {
				continue
			}
			if found, err := s.Get(ctx, depTab, id); err == nil {
				source = found
				break
			}
		}
		if source == nil {
			return &DependencyError{Table: dep.Table, ID: id}
		}

		if err := e.ensureDependencies(ctx, target, depTab, source); err != nil {
			return err
		}
		if err := target.Insert(ctx, depTab, source, true); err != nil {
			// A concurrent pass may have satisfied it already.
			if store.IsUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("insert dependency %s: %w", dep.Table, err)
		}
		slog.Debug("dependency satisfied",
			"store", target.Name(),
			"table", depTab.Name,
			"id", record.FormatID(id),
		)
	}
	return nil
}
