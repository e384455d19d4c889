package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BearBump/PriceBox/internal/cache/rediscache"
	"github.com/BearBump/PriceBox/internal/services/refresher"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

type countingCycler struct {
	runs    atomic.Int64
	release chan struct{}
	err     error
}

func (c *countingCycler) RunCycle(ctx context.Context) (refresher.CycleReport, error) {
	c.runs.Add(1)
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
		}
	}
	return refresher.CycleReport{Listings: 1}, c.err
}

func TestStart_Idempotent(t *testing.T) {
	s := New(&countingCycler{}).WithInterval(time.Hour)
	ok, err := s.Start(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	defer s.Stop()

	ok, err = s.Start(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, s.Stats().Started)
}

func TestRunNow_BeforeStart(t *testing.T) {
	c := &countingCycler{}
	s := New(c)
	require.False(t, s.RunNow())
	require.Zero(t, c.runs.Load())
}

func TestRunNow_RecordsCycle(t *testing.T) {
	c := &countingCycler{err: errors.New("list failed")}
	s := New(c).WithInterval(time.Hour)
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	defer s.Stop()

	require.True(t, s.RunNow())
	require.Eventually(t, func() bool { return s.Stats().Failures == 1 }, 2*time.Second, 10*time.Millisecond)

	st := s.Stats()
	require.Equal(t, int64(1), st.Cycles)
	require.Equal(t, "list failed", st.LastError)
	require.False(t, st.LastRunAt.IsZero())
}

func TestSkipIfStillRunning(t *testing.T) {
	c := &countingCycler{release: make(chan struct{})}
	s := New(c).WithInterval(time.Hour)
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	defer s.Stop()

	s.RunNow()
	require.Eventually(t, func() bool { return c.runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.RunNow()
	s.RunNow()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int64(1), c.runs.Load())

	close(c.release)
	require.Eventually(t, func() bool { return s.Stats().Cycles == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestLeaderLock_OneReplicaRuns(t *testing.T) {
	mr := miniredis.RunT(t)

	l1 := rediscache.NewLocker(mr.Addr())
	l2 := rediscache.NewLocker(mr.Addr())
	defer l1.Close()
	defer l2.Close()

	c1, c2 := &countingCycler{}, &countingCycler{}
	s1 := New(c1).WithInterval(time.Hour).WithLock(l1, "", time.Minute)
	s2 := New(c2).WithInterval(time.Hour).WithLock(l2, "", time.Minute)

	_, err := s1.Start(context.Background())
	require.NoError(t, err)
	_, err = s2.Start(context.Background())
	require.NoError(t, err)
	defer s2.Stop()

	s1.RunNow()
	require.Eventually(t, func() bool { return s1.Stats().Cycles == 1 }, 2*time.Second, 10*time.Millisecond)

	s2.RunNow()
	require.Eventually(t, func() bool { return s2.Stats().Skipped == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, c2.runs.Load())

	// the leader renews on its next cycle
	s1.RunNow()
	require.Eventually(t, func() bool { return s1.Stats().Cycles == 2 }, 2*time.Second, 10*time.Millisecond)

	// stopping releases the key for the other replica
	s1.Stop()
	require.False(t, mr.Exists(DefaultLockKey))

	s2.RunNow()
	require.Eventually(t, func() bool { return c2.runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestLeaderLock_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	l := rediscache.NewLocker(mr.Addr())
	defer l.Close()
	mr.Close()

	c := &countingCycler{}
	s := New(c).WithInterval(time.Hour).WithLock(l, "k", 0)
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	defer s.Stop()

	s.RunNow()
	require.Eventually(t, func() bool { return s.Stats().Skipped == 1 }, 3*time.Second, 10*time.Millisecond)
	require.Zero(t, c.runs.Load())
	require.Equal(t, 2*time.Hour, s.ttl())
}
