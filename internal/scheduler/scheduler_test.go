package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_StartStop(t *testing.T) {
	var runs atomic.Int64
	s := New(func(context.Context) error {
		runs.Add(1)
		return nil
	}, 10*time.Millisecond)

	assert.False(t, s.Running())
	s.Start()
	assert.True(t, s.Running())

	require.Eventually(t, func() bool { return runs.Load() >= 2 },
		2*time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())

	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "loop kept running after stop")
}

func TestScheduler_RunsImmediatelyOnStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := New(func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, time.Hour)

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not happen on start")
	}
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	started := make(chan struct{}, 8)
	release := make(chan struct{})
	s := New(func(context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	}, time.Millisecond, WithStopTimeout(50*time.Millisecond))

	s.Start()
	s.Start()

	<-started
	select {
	case <-started:
		t.Fatal("second start spawned a second loop")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	s.Stop()
}

func TestScheduler_ErrorSwitchesToBackoff(t *testing.T) {
	runs := make(chan time.Time, 8)
	s := New(func(context.Context) error {
		runs <- time.Now()
		return errors.New("sweep exploded")
	}, time.Millisecond, WithErrorBackoff(150*time.Millisecond))

	s.Start()
	defer s.Stop()

	first := <-runs
	second := <-runs
	assert.GreaterOrEqual(t, second.Sub(first), 100*time.Millisecond,
		"failed run must wait the backoff, not the interval")
}

func TestScheduler_StopIsBounded(t *testing.T) {
	entered := make(chan struct{})
	block := make(chan struct{})
	s := New(func(context.Context) error {
		close(entered)
		<-block
		return nil
	}, time.Millisecond, WithStopTimeout(50*time.Millisecond))

	s.Start()
	<-entered

	begun := time.Now()
	s.Stop()
	assert.Less(t, time.Since(begun), 2*time.Second, "stop must not hang on a stuck run")
	assert.False(t, s.Running())

	close(block)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := New(func(context.Context) error { return nil }, time.Minute)
	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestScheduler_SetInterval(t *testing.T) {
	s := New(func(context.Context) error { return nil }, time.Minute)
	assert.Equal(t, time.Minute, s.Interval())
	s.SetInterval(10 * time.Second)
	assert.Equal(t, 10*time.Second, s.Interval())
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	var runs atomic.Int64
	s := New(func(context.Context) error {
		runs.Add(1)
		return nil
	}, 5*time.Millisecond)

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 1 },
		2*time.Second, time.Millisecond)
	s.Stop()

	mark := runs.Load()
	s.Start()
	require.Eventually(t, func() bool { return runs.Load() > mark },
		2*time.Second, time.Millisecond)
	s.Stop()
}
