package audit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() IDGenerator {
	var mu sync.Mutex
	n := 0
	return GeneratorFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("entry-%04d", n)
	})
}

func TestAppend_StampsEntries(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	log := NewLog(
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return fixed }),
	)

	first := log.Append(Entry{
		Table:    "patients",
		RecordID: "7",
		Strategy: "timestamp_priority",
		Results:  []Result{{Action: ActionUpdatedAllWithNewest, SourceStore: "backup"}},
	})
	second := log.Append(Entry{
		Table:    "doctors",
		RecordID: "3",
		Strategy: "primary_priority",
		Results:  []Result{{Action: ActionFailed, Err: "boom"}},
	})

	assert.Equal(t, "entry-0001", first.ID)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, fixed, first.Time)
	assert.Equal(t, StatusResolved, first.Status)

	assert.Equal(t, "entry-0002", second.ID)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, StatusFailed, second.Status)

	require.Equal(t, 2, log.Len())
	entries := log.Entries()
	assert.Equal(t, "patients", entries[0].Table)
	assert.Equal(t, "doctors", entries[1].Table)
}

func TestStatusFolding(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Status
	}{
		{
			name:    "all resolved",
			results: []Result{{Action: ActionInsertedMissing}, {Action: ActionUpdatedExisting}},
			want:    StatusResolved,
		},
		{
			name:    "no results counts as resolved",
			results: nil,
			want:    StatusResolved,
		},
		{
			name:    "review wins over success",
			results: []Result{{Action: ActionUpdatedAllWithNewest}, {Action: ActionMarkedForReview}},
			want:    StatusPendingReview,
		},
		{
			name:    "review wins over failure",
			results: []Result{{Action: ActionFailed}, {Action: ActionMarkedForReview}},
			want:    StatusPendingReview,
		},
		{
			name:    "mixed success and failure",
			results: []Result{{Action: ActionInsertedMissing}, {Action: ActionFailed}},
			want:    StatusPartial,
		},
		{
			name:    "skip alone is failed",
			results: []Result{{Action: ActionSkipped, Reason: "dependency_failed"}},
			want:    StatusFailed,
		},
		{
			name:    "delete is resolved",
			results: []Result{{Action: ActionDeletedAll, SuccessCount: 2}},
			want:    StatusResolved,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewLog()
			got := log.Append(Entry{Table: "patients", RecordID: "1", Results: tt.results})
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestResolved(t *testing.T) {
	assert.True(t, Result{Action: ActionUpdatedAllWithNewest}.Resolved())
	assert.True(t, Result{Action: ActionDeletedAll}.Resolved())
	assert.False(t, Result{Action: ActionFailed}.Resolved())
	assert.False(t, Result{Action: ActionSkipped}.Resolved())
	assert.False(t, Result{Action: ActionMarkedForReview}.Resolved())
}

func TestEntries_ReturnsCopy(t *testing.T) {
	log := NewLog()
	log.Append(Entry{Table: "patients", RecordID: "1"})

	entries := log.Entries()
	entries[0].Table = "mutated"

	assert.Equal(t, "patients", log.Entries()[0].Table)
}

func TestAppend_Concurrent(t *testing.T) {
	log := NewLog()

	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				log.Append(Entry{Table: "patients", RecordID: "1"})
			}
		}()
	}
	wg.Wait()

	require.Equal(t, goroutines*perGoroutine, log.Len())

	seen := make(map[int64]bool)
	for _, e := range log.Entries() {
		assert.False(t, seen[e.Seq], "duplicate seq %d", e.Seq)
		seen[e.Seq] = true
	}
}
