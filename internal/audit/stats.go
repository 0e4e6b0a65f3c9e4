package audit

import "time"

// DefaultRecentWindow is the lookback used for the recent-activity
// counter when no window is given.
const DefaultRecentWindow = 24 * time.Hour

// Stats summarizes the resolution trail for operators.
type Stats struct {
	Total      int            `json:"total_resolutions"`
	ByTable    map[string]int `json:"by_table"`
	ByStrategy map[string]int `json:"by_strategy"`
	ByAction   map[string]int `json:"by_action"`
	Recent     int            `json:"recent"`
}

// Stats aggregates the trail. Recent counts entries stamped within the
// window ending at the log's current time; window <= 0 uses
// DefaultRecentWindow.
func (l *Log) Stats(window time.Duration) Stats {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	cutoff := l.now().UTC().Add(-window)

	st := Stats{
		ByTable:    make(map[string]int),
		ByStrategy: make(map[string]int),
		ByAction:   make(map[string]int),
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		st.Total++
		st.ByTable[e.Table]++
		st.ByStrategy[e.Strategy]++
		for _, r := range e.Results {
			st.ByAction[string(r.Action)]++
		}
		if !e.Time.Before(cutoff) {
			st.Recent++
		}
	}
	return st
}
