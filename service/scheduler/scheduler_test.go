package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naiba/uptime/model"
)

type staticSource []model.Monitor

func (s staticSource) ListActiveMonitors(ctx context.Context) ([]model.Monitor, error) {
	return s, nil
}

type counter struct {
	mu   sync.Mutex
	runs map[uint64]int
}

func (c *counter) get(id uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs[id]
}

func (c *counter) runner(fail func(m model.Monitor) error) Runner {
	return func(ctx context.Context, m model.Monitor) error {
		c.mu.Lock()
		c.runs[m.ID]++
		c.mu.Unlock()
		if fail != nil {
			return fail(m)
		}
		return nil
	}
}

func newMonitor(id uint64, intervalMs int64) *model.Monitor {
	m := &model.Monitor{URL: "https://example.com", Type: model.MonitorTypeHTTP, Interval: intervalMs, IsActive: true}
	m.ID = id
	return m
}

func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	s.cron.Start()
	t.Cleanup(func() { <-s.Stop().Done() })
}

func TestEvery(t *testing.T) {
	now := time.Now()
	e := &every{interval: time.Second, start: now.Add(time.Minute)}
	assert.Equal(t, now.Add(time.Minute), e.Next(now))
	assert.Equal(t, now.Add(time.Second), e.Next(now))

	immediate := &every{interval: time.Second, start: now.Add(-time.Millisecond)}
	assert.Equal(t, now, immediate.Next(now))
	assert.Equal(t, now.Add(time.Second), immediate.Next(now))
}

func TestJobRunsAndReports(t *testing.T) {
	c := &counter{runs: map[uint64]int{}}
	s := New(staticSource{}, c.runner(func(m model.Monitor) error {
		if m.ID == 2 {
			return errors.New("probe exploded")
		}
		return nil
	}), nil, Config{}, zap.NewNop())
	startScheduler(t, s)

	require.NoError(t, s.AddJob(newMonitor(1, 20)))
	require.NoError(t, s.AddJob(newMonitor(2, 20)))
	assert.Eventually(t, func() bool { return c.get(1) >= 3 && c.get(2) >= 3 }, 2*time.Second, 5*time.Millisecond)

	jobs := s.GetJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, uint64(1), jobs[0].MonitorID)
	assert.GreaterOrEqual(t, jobs[0].RunCount, uint64(3))
	assert.Zero(t, jobs[0].FailCount)
	assert.Equal(t, "probe exploded", jobs[1].LastFailReason)

	m := s.GetMetrics()
	assert.Equal(t, 2, m.Jobs)
	require.Len(t, m.JobsWithFailures, 1)
	assert.Equal(t, uint64(2), m.JobsWithFailures[0].MonitorID)
	assert.Equal(t, "https://example.com", m.JobsWithFailures[0].MonitorURL)
	assert.GreaterOrEqual(t, m.TotalRuns, m.TotalFailures)
	assert.Positive(t, m.TotalFailures)
}

func TestPanicIsRecorded(t *testing.T) {
	var runs atomic.Int32
	s := New(staticSource{}, func(ctx context.Context, m model.Monitor) error {
		runs.Add(1)
		panic("nil map")
	}, nil, Config{}, zap.NewNop())
	startScheduler(t, s)

	require.NoError(t, s.AddJob(newMonitor(1, 10)))
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		jobs := s.GetJobs()
		return len(jobs) == 1 && jobs[0].FailCount >= 2 && jobs[0].LastFailReason == "panic: nil map"
	}, time.Second, 5*time.Millisecond)
}

func TestNoOverlap(t *testing.T) {
	var running, maxRunning, runs atomic.Int32
	s := New(staticSource{}, func(ctx context.Context, m model.Monitor) error {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			cur := maxRunning.Load()
			if n <= cur || maxRunning.CompareAndSwap(cur, n) {
				break
			}
		}
		runs.Add(1)
		time.Sleep(150 * time.Millisecond)
		return nil
	}, nil, Config{}, zap.NewNop())
	startScheduler(t, s)

	require.NoError(t, s.AddJob(newMonitor(1, 5)))
	assert.Eventually(t, func() bool {
		jobs := s.GetJobs()
		return len(jobs) == 1 && jobs[0].LockedAt != nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, 1, s.GetMetrics().ActiveJobs)
	assert.Nil(t, s.GetJobs()[0].LastRunTook)

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestPauseResumeDelete(t *testing.T) {
	c := &counter{runs: map[uint64]int{}}
	s := New(staticSource{}, c.runner(nil), nil, Config{}, zap.NewNop())
	startScheduler(t, s)

	m := newMonitor(1, 10)
	require.NoError(t, s.AddJob(m))
	assert.Eventually(t, func() bool { return c.get(1) >= 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.PauseJob(1))
	time.Sleep(30 * time.Millisecond)
	paused := c.get(1)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, paused, c.get(1))
	assert.False(t, s.GetJobs()[0].Active)

	require.NoError(t, s.ResumeJob(1))
	assert.Eventually(t, func() bool { return c.get(1) > paused }, time.Second, time.Millisecond)

	s.DeleteJob(1)
	s.DeleteJob(1)
	assert.Empty(t, s.GetJobs())
	assert.ErrorIs(t, s.PauseJob(1), ErrJobNotFound)
	assert.ErrorIs(t, s.UpdateJob(m), ErrJobNotFound)
}

func TestUpdateKeepsCounters(t *testing.T) {
	c := &counter{runs: map[uint64]int{}}
	var mu sync.Mutex
	var urls []string
	s := New(staticSource{}, func(ctx context.Context, m model.Monitor) error {
		mu.Lock()
		urls = append(urls, m.URL)
		mu.Unlock()
		return c.runner(nil)(ctx, m)
	}, nil, Config{}, zap.NewNop())
	startScheduler(t, s)

	m := newMonitor(1, 10)
	require.NoError(t, s.AddJob(m))
	assert.Eventually(t, func() bool { return c.get(1) >= 2 }, time.Second, time.Millisecond)

	updated := *m
	updated.URL = "https://updated.example"
	updated.Interval = 15
	require.NoError(t, s.UpdateJob(&updated))
	before := s.GetJobs()[0].RunCount
	assert.GreaterOrEqual(t, before, uint64(2))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return urls[len(urls)-1] == "https://updated.example"
	}, time.Second, time.Millisecond)
	info := s.GetJobs()[0]
	assert.Greater(t, info.RunCount, before)
	assert.Equal(t, 15*time.Millisecond, info.Interval)
	assert.Equal(t, "https://updated.example", info.URL)
}

func TestConcurrentUpdateDelete(t *testing.T) {
	s := New(staticSource{}, func(ctx context.Context, m model.Monitor) error { return nil }, nil, Config{}, zap.NewNop())
	for i := 0; i < 2000; i++ {
		m := newMonitor(1, 1000)
		require.NoError(t, s.AddJob(m))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.UpdateJob(m)
		}()
		go func() {
			defer wg.Done()
			s.DeleteJob(1)
		}()
		wg.Wait()

		// 删除后不能残留 cron 条目
		require.Empty(t, s.GetJobs())
		require.Empty(t, s.cron.Entries())
	}
}

func TestStartAndFlush(t *testing.T) {
	c := &counter{runs: map[uint64]int{}}
	var cleanups atomic.Int32
	source := staticSource{*newMonitor(1, 10), *newMonitor(2, 10)}
	s := New(source, c.runner(nil), func(ctx context.Context) error {
		cleanups.Add(1)
		return nil
	}, Config{CleanupInterval: 20 * time.Millisecond}, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { <-s.Stop().Done() })

	assert.Eventually(t, func() bool {
		return c.get(1) >= 1 && c.get(2) >= 1 && cleanups.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	jobs := s.GetJobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, CleanupJobID, jobs[0].ID)
	assert.Equal(t, 2, s.GetMetrics().Jobs)

	s.Flush()
	assert.Empty(t, s.GetJobs())
	assert.Equal(t, 0, s.GetMetrics().Jobs)
}

func TestAddJobValidation(t *testing.T) {
	s := New(staticSource{}, func(ctx context.Context, m model.Monitor) error { return nil }, nil, Config{}, zap.NewNop())
	assert.Error(t, s.AddJob(&model.Monitor{Interval: 10}))

	inactive := newMonitor(3, 10)
	inactive.IsActive = false
	require.NoError(t, s.AddJob(inactive))
	assert.False(t, s.GetJobs()[0].Active)
}
