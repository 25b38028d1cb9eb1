package maintenance

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

type fakeStore struct {
	mu      sync.Mutex
	windows []model.Maintenance
	err     error
	calls   atomic.Int32
	block   chan struct{}
}

func (f *fakeStore) ListActiveMaintenanceWindows(ctx context.Context, now time.Time) ([]model.Maintenance, error) {
	f.calls.Add(1)
	// 先读取再阻塞，模拟查询结果已过时的刷新
	f.mu.Lock()
	windows, err := f.windows, f.err
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return windows, err
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	assert.True(t, IsStale(now, time.Time{}, time.Minute))
	assert.False(t, IsStale(now, now.Add(-59*time.Second), time.Minute))
	assert.True(t, IsStale(now, now.Add(-time.Minute), time.Minute))
}

func TestGateRecurring(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{windows: []model.Maintenance{{
		IsActive:  true,
		Monitors:  []uint64{1},
		StartTime: start,
		EndTime:   start.Add(10 * time.Minute),
		Repeat:    model.MaintenanceDaily,
	}}}
	g := NewGate(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	cases := []struct {
		now  time.Time
		id   uint64
		want bool
	}{
		{start.Add(5 * time.Minute), 1, true},
		{start.Add(25 * time.Hour), 1, false},
		{start.Add(24*time.Hour + 5*time.Minute), 1, true},
		{start.Add(24*time.Hour + 5*time.Minute), 2, false},
		{start.Add(-time.Minute), 1, false},
	}
	for _, c := range cases {
		g.now = func() time.Time { return c.now }
		got, err := g.IsInMaintenance(ctx, c.id)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, c.now.String())
	}
}

func TestGateRefresh(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	window := model.Maintenance{IsActive: true, Monitors: []uint64{1}, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour), Repeat: model.MaintenanceNoRepeat}
	store := &fakeStore{}
	g := NewGate(store, time.Minute, zap.NewNop())
	g.now = func() time.Time { return now }
	ctx := context.Background()

	in, err := g.IsInMaintenance(ctx, 1)
	require.NoError(t, err)
	assert.False(t, in)

	// TTL 内不重新读取
	store.mu.Lock()
	store.windows = []model.Maintenance{window}
	store.mu.Unlock()
	in, _ = g.IsInMaintenance(ctx, 1)
	assert.False(t, in)
	assert.Equal(t, int32(1), store.calls.Load())

	g.Invalidate()
	in, _ = g.IsInMaintenance(ctx, 1)
	assert.True(t, in)
	assert.Equal(t, int32(2), store.calls.Load())

	// 刷新失败保留旧索引
	store.mu.Lock()
	store.err = errors.New("db down")
	store.mu.Unlock()
	now = now.Add(2 * time.Minute)
	in, err = g.IsInMaintenance(ctx, 1)
	assert.Error(t, err)
	assert.True(t, in)
}

func TestGateConcurrentRefresh(t *testing.T) {
	store := &fakeStore{block: make(chan struct{})}
	g := NewGate(store, time.Minute, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.IsInMaintenance(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	assert.Eventually(t, func() bool { return store.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(store.block)
	wg.Wait()
	assert.LessOrEqual(t, store.calls.Load(), int32(2))
	assert.NotNil(t, g.current.Load())
}

func TestInvalidateDuringRefresh(t *testing.T) {
	now := time.Now()
	window := model.Maintenance{IsActive: true, Monitors: []uint64{1}, StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour)}
	store := &fakeStore{block: make(chan struct{})}
	g := NewGate(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		in, err := g.IsInMaintenance(ctx, 1)
		assert.NoError(t, err)
		assert.False(t, in)
	}()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)

	// 刷新进行中新增窗口
	store.mu.Lock()
	store.windows = []model.Maintenance{window}
	store.mu.Unlock()
	g.Invalidate()
	close(store.block)
	<-done

	in, err := g.IsInMaintenance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, in)
	assert.Equal(t, int32(2), store.calls.Load())

	// 较旧代数的结果不能覆盖新快照
	g.publish(&snapshot{index: map[uint64][]model.Maintenance{}, builtAt: now, gen: 0})
	in, err = g.IsInMaintenance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, in)
}
