package maintenance

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/naiba/uptime/model"
)

const DefaultRefreshTTL = time.Minute

type Store interface {
	ListActiveMaintenanceWindows(ctx context.Context, now time.Time) ([]model.Maintenance, error)
}

// snapshot 构建后只读，刷新时整体替换；gen 为开始构建时的代数
type snapshot struct {
	index   map[uint64][]model.Maintenance
	builtAt time.Time
	gen     uint64
}

// Gate 维护窗口的内存索引，按 TTL 从存储重建
type Gate struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time

	// gen 每次 Invalidate 递增，代数落后的快照视为过期
	gen     atomic.Uint64
	current atomic.Pointer[snapshot]
	group   singleflight.Group
}

func NewGate(store Store, ttl time.Duration, log *zap.Logger) *Gate {
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	return &Gate{store: store, ttl: ttl, log: log, now: time.Now}
}

// IsStale 零值 builtAt 视为过期
func IsStale(now, builtAt time.Time, ttl time.Duration) bool {
	return builtAt.IsZero() || now.Sub(builtAt) >= ttl
}

func (g *Gate) stale(s *snapshot, now time.Time) bool {
	return s == nil || s.gen != g.gen.Load() || IsStale(now, s.builtAt, g.ttl)
}

// Refresh 同一代数的并发刷新合并为一次，Invalidate 之后的调用会重新读取
func (g *Gate) Refresh(ctx context.Context) error {
	gen := g.gen.Load()
	_, err, _ := g.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		now := g.now()
		windows, err := g.store.ListActiveMaintenanceWindows(ctx, now)
		if err != nil {
			return nil, err
		}
		index := make(map[uint64][]model.Maintenance)
		for _, w := range windows {
			for _, id := range w.Monitors {
				index[id] = append(index[id], w)
			}
		}
		g.publish(&snapshot{index: index, builtAt: now, gen: gen})
		g.log.Debug("maintenance index rebuilt", zap.Int("windows", len(windows)), zap.Int("monitors", len(index)))
		return nil, nil
	})
	return err
}

// publish 不让较旧代数的结果覆盖较新的快照
func (g *Gate) publish(next *snapshot) {
	for {
		cur := g.current.Load()
		if cur != nil && cur.gen > next.gen {
			return
		}
		if g.current.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Invalidate 让下一次查询重建索引，进行中的刷新结果也随之作废
func (g *Gate) Invalidate() {
	g.gen.Add(1)
}

// IsInMaintenance 刷新失败时沿用旧索引并返回错误
func (g *Gate) IsInMaintenance(ctx context.Context, monitorID uint64) (bool, error) {
	now := g.now()
	s := g.current.Load()
	var refreshErr error
	if g.stale(s, now) {
		if refreshErr = g.Refresh(ctx); refreshErr != nil {
			g.log.Warn("maintenance refresh failed", zap.Error(refreshErr))
		}
		s = g.current.Load()
	}
	if s == nil {
		return false, refreshErr
	}
	for _, w := range s.index[monitorID] {
		if w.Covers(monitorID) && w.ActiveAt(now) {
			return true, refreshErr
		}
	}
	return false, refreshErr
}
