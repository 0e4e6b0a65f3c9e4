package record

import (
	"fmt"
	"strings"
	"time"
)

// ParseError reports a value that could not be interpreted as a timestamp.
type ParseError struct {
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable timestamp %q", e.Value)
}

// timestampLayouts covers the textual forms the supported engines emit.
// time.Parse accepts a fractional second even when the layout omits it,
// so the .ffffff variants need no layouts of their own.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

// ParseTimestamp interprets v as a point in time. time.Time values pass
// through; anything else is rendered to text and tried against the known
// layouts.
func ParseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case nil:
		return time.Time{}, &ParseError{Value: "<nil>"}
	}
	s := strings.TrimSpace(fmt.Sprint(Normalize(v)))
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Value: s}
}

// TimestampOrMin parses v, returning the zero time on failure. The zero
// time sorts before every real timestamp, so an unparsable version loses
// any freshness comparison.
func TimestampOrMin(v any) time.Time {
	t, err := ParseTimestamp(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SameCalendarDate compares two values by calendar date only. If either
// side fails to parse, comparison falls back to textual equality of the
// normalized values.
func SameCalendarDate(a, b any) bool {
	at, aerr := ParseTimestamp(a)
	bt, berr := ParseTimestamp(b)
	if aerr != nil || berr != nil {
		return fmt.Sprint(Normalize(a)) == fmt.Sprint(Normalize(b))
	}
	ay, am, ad := at.Date()
	by, bm, bd := bt.Date()
	return ay == by && am == bm && ad == bd
}
