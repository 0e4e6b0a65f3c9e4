package store

import (
	"context"
	"errors"
	"fmt"
)

// Fleet is the configured set of stores: exactly one primary plus the
// secondaries in configuration order. Iteration order is primary first;
// reference selection during divergence checks depends on that order
// staying stable.
type Fleet struct {
	primary     *Store
	secondaries []*Store
	byName      map[string]*Store
}

// NewFleet assembles a fleet, checking the primary designation and name
// uniqueness.
func NewFleet(primary *Store, secondaries ...*Store) (*Fleet, error) {
	if primary == nil {
		return nil, errors.New("store: fleet requires a primary")
	}
	if !primary.IsPrimary() {
		return nil, fmt.Errorf("store: %s is not marked primary", primary.Name())
	}
	f := &Fleet{
		primary: primary,
		byName:  map[string]*Store{primary.Name(): primary},
	}
	for _, s := range secondaries {
		if s.IsPrimary() {
			return nil, fmt.Errorf("store: second primary %s", s.Name())
		}
		if _, dup := f.byName[s.Name()]; dup {
			return nil, fmt.Errorf("store: duplicate store name %s", s.Name())
		}
		f.byName[s.Name()] = s
		f.secondaries = append(f.secondaries, s)
	}
	return f, nil
}

func (f *Fleet) Primary() *Store { return f.primary }

// Secondaries returns the secondary stores in configuration order.
func (f *Fleet) Secondaries() []*Store {
	out := make([]*Store, len(f.secondaries))
	copy(out, f.secondaries)
	return out
}

// All returns every store, primary first.
func (f *Fleet) All() []*Store {
	out := make([]*Store, 0, len(f.secondaries)+1)
	out = append(out, f.primary)
	return append(out, f.secondaries...)
}

// ByName looks a store up by its logical name.
func (f *Fleet) ByName(name string) (*Store, bool) {
	s, ok := f.byName[name]
	return s, ok
}

// Names returns every store name, primary first.
func (f *Fleet) Names() []string {
	names := make([]string, 0, f.Len())
	for _, s := range f.All() {
		names = append(names, s.Name())
	}
	return names
}

// Len returns the number of stores.
func (f *Fleet) Len() int { return len(f.secondaries) + 1 }

// Ping probes every store and returns the result keyed by store name.
func (f *Fleet) Ping(ctx context.Context) map[string]error {
	out := make(map[string]error, f.Len())
	for _, s := range f.All() {
		out[s.Name()] = s.Ping(ctx)
	}
	return out
}

// Close releases every store's pool.
func (f *Fleet) Close() error {
	var errs []error
	for _, s := range f.All() {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
