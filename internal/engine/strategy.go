package engine

import (
	"fmt"
	"strings"
)

type strategyKind int

const (
	strategyTimestamp strategyKind = iota
	strategyPrimary
	strategyStore
	strategyManualReview
	strategyDeleteAll
)

// Strategy is one of the closed set of named resolution policies.
// Construct through the factory functions or ParseStrategy; the zero
// value behaves as timestamp priority.
type Strategy struct {
	kind  strategyKind
	store string
}

// TimestampPriority propagates whichever copy carries the greatest
// updated_at.
func TimestampPriority() Strategy { return Strategy{kind: strategyTimestamp} }

// PrimaryPriority propagates the primary store's copy everywhere.
func PrimaryPriority() Strategy { return Strategy{kind: strategyPrimary} }

// StorePriority propagates the named store's copy everywhere else.
func StorePriority(name string) Strategy {
	return Strategy{kind: strategyStore, store: name}
}

// ManualReview records the conflict for an operator and mutates nothing.
func ManualReview() Strategy { return Strategy{kind: strategyManualReview} }

// DeleteAll removes the record from every store that has it.
func DeleteAll() Strategy { return Strategy{kind: strategyDeleteAll} }

const (
	nameTimestampPriority = "timestamp_priority"
	namePrimaryPriority   = "primary_priority"
	nameManualReview      = "manual_review"
	nameDeleteAll         = "delete_all"
	prioritySuffix        = "_priority"
)

// ParseStrategy resolves a strategy name against the configured store
// names. "<store>_priority" is accepted for any configured store name;
// anything else unknown is rejected rather than silently defaulted.
func ParseStrategy(name string, storeNames []string) (Strategy, error) {
	switch name {
	case nameTimestampPriority:
		return TimestampPriority(), nil
	case namePrimaryPriority:
		return PrimaryPriority(), nil
	case nameManualReview:
		return ManualReview(), nil
	case nameDeleteAll:
		return DeleteAll(), nil
	}
	if base, ok := strings.CutSuffix(name, prioritySuffix); ok {
		for _, s := range storeNames {
			if s == base {
				return StorePriority(base), nil
			}
		}
	}
	return Strategy{}, fmt.Errorf("engine: unknown strategy %q", name)
}

func (s Strategy) String() string {
	switch s.kind {
	case strategyTimestamp:
		return nameTimestampPriority
	case strategyPrimary:
		return namePrimaryPriority
	case strategyStore:
		return s.store + prioritySuffix
	case strategyManualReview:
		return nameManualReview
	case strategyDeleteAll:
		return nameDeleteAll
	}
	return "unknown"
}

// StoreName returns the forced store for store-priority strategies.
func (s Strategy) StoreName() (string, bool) {
	return s.store, s.kind == strategyStore
}

// AllowedAsDefault reports whether the strategy may serve as the sweep
// default. Review-only and destructive strategies must be requested
// explicitly per record.
func (s Strategy) AllowedAsDefault() bool {
	return s.kind != strategyManualReview && s.kind != strategyDeleteAll
}

// DefaultStrategy is used when configuration names none.
func DefaultStrategy() Strategy { return TimestampPriority() }
