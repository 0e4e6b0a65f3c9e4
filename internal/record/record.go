// Package record defines the scalar row representation shared by every
// store adapter and the comparison rules applied across stores.
package record

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Record is one row of a logical table: field name to scalar value.
// Values are normalized at the scan boundary so rows read from different
// engines compare cleanly (drivers disagree on integer widths and on
// returning TEXT columns as []byte vs string).
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Fields returns the field names in sorted order.
func (r Record) Fields() []string {
	fields := make([]string, 0, len(r))
	for k := range r {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// NonNull returns a copy with null-valued fields removed. Inserts use it
// so store-side column defaults still apply.
func (r Record) NonNull() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// Without returns a copy with the named fields removed.
func (r Record) Without(fields ...string) Record {
	out := r.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// Normalize maps a driver scan value onto the canonical scalar set:
// []byte to string, every integer width to int64, float32 to float64.
// time.Time, bool, string and nil pass through unchanged.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}

// Normalized returns a copy with every value passed through Normalize.
func (r Record) Normalized() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = Normalize(v)
	}
	return out
}

// CanonicalID reduces a primary-key value to a comparable canonical form
// so the same id read from different drivers hashes identically. Integral
// values become int64; strings that round-trip as base-10 integers unify
// with their integer value (a table's key column is either numeric or an
// opaque string, never a mix).
func CanonicalID(v any) any {
	switch val := Normalize(v).(type) {
	case int64:
		return val
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case string:
		if i, err := strconv.ParseInt(val, 10, 64); err == nil && strconv.FormatInt(i, 10) == val {
			return i
		}
		return val
	default:
		return val
	}
}

// FormatID renders an id for log fields, map keys and audit entries.
func FormatID(v any) string {
	return fmt.Sprint(CanonicalID(v))
}

// Equal reports whether two scalar values are equivalent once driver
// representation differences are stripped. Strings compare after NFC
// normalization (engines may return the same text in different Unicode
// normal forms); integers and floats cross-compare; booleans match the
// 0/1 integers engines without a boolean type store them as; two nulls
// are equal.
func Equal(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	a, b = Normalize(a), Normalize(b)

	switch av := a.(type) {
	case string:
		switch bv := b.(type) {
		case string:
			return norm.NFC.String(av) == norm.NFC.String(bv)
		case time.Time:
			return timeEqualsString(bv, av)
		}
		return false
	case int64:
		switch bv := b.(type) {
		case int64:
			return av == bv
		case float64:
			return float64(av) == bv
		case bool:
			return (av != 0) == bv
		}
		return false
	case float64:
		switch bv := b.(type) {
		case float64:
			return av == bv
		case int64:
			return av == float64(bv)
		}
		return false
	case bool:
		switch bv := b.(type) {
		case bool:
			return av == bv
		case int64:
			return av == (bv != 0)
		}
		return false
	case time.Time:
		switch bv := b.(type) {
		case time.Time:
			return av.Equal(bv)
		case string:
			return timeEqualsString(av, bv)
		}
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// timeEqualsString compares a driver-parsed time.Time against a textual
// timestamp from an engine that returns TEXT columns raw.
func timeEqualsString(t time.Time, s string) bool {
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return false
	}
	return t.Equal(parsed)
}
