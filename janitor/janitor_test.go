package janitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chris-pikul/go-streamkeeper/db"
)

type fakeCleaner struct {
	lock  sync.Mutex
	calls []db.CleanOptions
	err   error
}

func (f *fakeCleaner) CleanQualityCache(opts db.CleanOptions) (int64, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.calls = append(f.calls, opts)
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

func (f *fakeCleaner) count() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.calls)
}

func TestSweepNowBroadcasts(t *testing.T) {
	cleaner := &fakeCleaner{}
	j := New(cleaner, time.Minute)

	var got []Event
	handle := j.AddListener(func(e Event) { got = append(got, e) })

	evt := j.SweepNow()
	require.NoError(t, evt.Err)
	require.Equal(t, int64(3), evt.Removed)
	require.Contains(t, evt.String(), "removed 3 expired")
	require.Len(t, got, 1)
	require.Equal(t, []db.CleanOptions{{}}, cleaner.calls, "sweeps are global and expired-only")

	j.RemoveListener(handle)
	j.SweepNow()
	require.Len(t, got, 1)
}

func TestListenerRemovesItself(t *testing.T) {
	j := New(&fakeCleaner{}, time.Minute)

	calls := 0
	var handle int
	handle = j.AddListener(func(Event) {
		calls++
		j.RemoveListener(handle)
		j.AddListener(func(Event) {})
	})

	done := make(chan struct{})
	go func() {
		j.SweepNow()
		j.SweepNow()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener changing the registry blocked the sweep")
	}
	require.Equal(t, 1, calls)
}

func TestSweepNowReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	j := New(&fakeCleaner{err: boom}, time.Minute)

	evt := j.SweepNow()
	require.Equal(t, boom, evt.Err)
	require.Contains(t, evt.String(), "failed: boom")
}

func TestRunStopsOnCancel(t *testing.T) {
	cleaner := &fakeCleaner{}
	j := New(cleaner, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	require.Eventually(t, func() bool { return cleaner.count() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestRunRejectsInterval(t *testing.T) {
	require.Equal(t, ErrInterval, New(&fakeCleaner{}, 0).Run(context.Background()))
}

func TestSweepRealStore(t *testing.T) {
	s, err := db.Open(filepath.Join(t.TempDir(), "config.db"), db.SchemaVersion)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddChannel("twitch.tv", "a", "http://a", false))
	require.NoError(t, s.AddQualityToCache("twitch.tv", "a", []string{"720p"}))
	require.NoError(t, s.SetConfigValue(db.KeyCacheLifetime, db.IntValue(-1)))

	evt := New(s, time.Minute).SweepNow()
	require.NoError(t, evt.Err)
	require.Equal(t, int64(1), evt.Removed)

	names, err := s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Empty(t, names)
}
