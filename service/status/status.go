package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/service/probe"
)

// ErrStatsNotFound 监控存在但统计行缺失，级联删除正确时不应出现
var ErrStatsNotFound = errors.New("monitor stats not found")

type Store interface {
	SaveMonitorStatus(ctx context.Context, m *model.Monitor) error
	FindStats(ctx context.Context, monitorID uint64) (*model.MonitorStats, error)
	SaveStats(ctx context.Context, stats *model.MonitorStats) error
}

type Engine struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewEngine(store Store, log *zap.Logger) *Engine {
	return &Engine{store: store, log: log, now: time.Now}
}

// Evaluate 滞回判定：initializing 时首个观测直接生效；
// 否则最近 n 条观测全部与当前状态不同才翻转，不足 n 条不判定
func Evaluate(current model.MonitorStatus, n int, window []model.LatestCheck, observed model.MonitorStatus) (model.MonitorStatus, bool) {
	if current == model.MonitorStatusInitializing || current == "" {
		return observed, true
	}
	if n < 1 {
		n = 1
	}
	if len(window) < n {
		return current, false
	}
	for _, c := range window[len(window)-n:] {
		if c.Status == current {
			return current, false
		}
	}
	return observed, observed != current
}

// AvgResponseTime 增量均值，total 为已计入本次观测后的总数
func AvgResponseTime(avg float64, total uint64, x float64) float64 {
	if avg == 0 || total == 0 {
		return x
	}
	return (avg*float64(total-1) + x) / float64(total)
}

// UpdateMonitorStatus 记录观测并应用滞回，返回整体状态是否变化
func (e *Engine) UpdateMonitorStatus(ctx context.Context, m *model.Monitor, o probe.Outcome) (bool, error) {
	now := e.now()
	m.LastCheckedAt = &now
	m.AppendLatestCheck(model.LatestCheck{
		Status:       o.Status,
		ResponseTime: o.ResponseTime,
		CheckedAt:    now,
	})

	next, changed := Evaluate(m.Status, m.N, m.LastN(m.N), o.Status)
	if changed {
		e.log.Info("monitor status changed", zap.Uint64("monitor", m.ID),
			zap.String("from", string(m.Status)), zap.String("to", string(next)))
	}
	m.Status = next
	if err := e.store.SaveMonitorStatus(ctx, m); err != nil {
		return false, fmt.Errorf("save monitor %d: %w", m.ID, err)
	}
	return changed, nil
}

// UpdateMonitorStats 累加统计，changed 与 UpdateMonitorStatus 的返回一致
func (e *Engine) UpdateMonitorStats(ctx context.Context, m *model.Monitor, o probe.Outcome, changed bool) (*model.MonitorStats, error) {
	stats, err := e.store.FindStats(ctx, m.ID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && stats == nil) {
		e.log.Error("monitor stats missing", zap.Uint64("monitor", m.ID))
		return nil, fmt.Errorf("%w: monitor %d", ErrStatsNotFound, m.ID)
	}
	if err != nil {
		return nil, err
	}

	Apply(stats, o, changed, e.now())
	if err := e.store.SaveStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("save stats %d: %w", m.ID, err)
	}
	return stats, nil
}

// Apply 将一次观测计入统计
func Apply(stats *model.MonitorStats, o probe.Outcome, changed bool, now time.Time) {
	stats.TotalChecks++
	if o.Status == model.MonitorStatusUp {
		stats.TotalUpChecks++
	} else {
		stats.TotalDownChecks++
		stats.TimeOfLastFailure = &now
	}

	if changed || stats.CurrentStreakStatus == "" {
		stats.CurrentStreak = 1
		stats.CurrentStreakStatus = o.Status
		stats.CurrentStreakStartedAt = &now
	} else {
		stats.CurrentStreak++
	}

	stats.AvgResponseTime = AvgResponseTime(stats.AvgResponseTime, stats.TotalChecks, o.ResponseTime)
	stats.UptimePercentage = float64(stats.TotalUpChecks) / float64(stats.TotalChecks)
	if o.ResponseTime > stats.MaxResponseTime {
		stats.MaxResponseTime = o.ResponseTime
	}
	stats.LastResponseTime = o.ResponseTime
	stats.LastCheckTimestamp = &now
}
