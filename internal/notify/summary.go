package notify

import (
	"fmt"
	"strings"
	"time"
)

// Trigger says what started a sweep.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// RecordOutcome is one conflicted record's fate within a sweep.
type RecordOutcome struct {
	ID       string   `json:"id"`
	Stores   []string `json:"stores,omitempty"`
	Resolved bool     `json:"resolved"`
}

// TableOutcome groups a sweep's conflicted records by table.
type TableOutcome struct {
	Table   string          `json:"table"`
	Records []RecordOutcome `json:"records"`
}

// SweepSummary describes one full divergence sweep. One summary is
// rendered into a single notification, never one per conflict.
type SweepSummary struct {
	Token           string         `json:"token"`
	Trigger         Trigger        `json:"trigger"`
	Strategy        string         `json:"strategy"`
	Started         time.Time      `json:"started"`
	Duration        time.Duration  `json:"duration"`
	TablesChecked   int            `json:"tables_checked"`
	RecordsChecked  int            `json:"records_checked"`
	ConflictRecords int            `json:"conflict_records"`
	Resolved        int            `json:"resolved"`
	Failed          int            `json:"failed"`
	Tables          []TableOutcome `json:"tables,omitempty"`
}

// Subject renders the one-line notification subject.
func (s *SweepSummary) Subject() string {
	if s.ConflictRecords == 0 {
		return fmt.Sprintf("database sync: %s sweep completed, no conflicts", s.Trigger)
	}
	return fmt.Sprintf("database sync: %s sweep found %d conflicted records (%d resolved, %d failed)",
		s.Trigger, s.ConflictRecords, s.Resolved, s.Failed)
}

// Body renders the plain-text notification body. Output is fully
// determined by the summary fields so it can be asserted byte-for-byte.
func (s *SweepSummary) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sweep %s finished.\n\n", s.Token)

	row := func(label string, value any) {
		fmt.Fprintf(&b, "  %-19s %v\n", label+":", value)
	}
	row("trigger", s.Trigger)
	row("strategy", s.Strategy)
	row("started", s.Started.UTC().Format("2006-01-02 15:04:05 MST"))
	row("duration", s.Duration.Round(time.Millisecond))
	row("tables checked", s.TablesChecked)
	row("records checked", s.RecordsChecked)
	row("conflicted records", s.ConflictRecords)
	row("resolved", s.Resolved)
	row("failed", s.Failed)

	for _, t := range s.Tables {
		fmt.Fprintf(&b, "\n%s\n", t.Table)
		for _, r := range t.Records {
			state := "resolved"
			if !r.Resolved {
				state = "FAILED"
			}
			if len(r.Stores) > 0 {
				fmt.Fprintf(&b, "  %s diverged in %s: %s\n", r.ID, strings.Join(r.Stores, ", "), state)
			} else {
				fmt.Fprintf(&b, "  %s: %s\n", r.ID, state)
			}
		}
	}
	return b.String()
}
