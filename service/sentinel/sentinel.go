package sentinel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/service/check"
	"github.com/naiba/uptime/service/notification"
	"github.com/naiba/uptime/service/probe"
)

type Store interface {
	FindMonitor(ctx context.Context, id uint64) (*model.Monitor, error)
	SaveCheck(ctx context.Context, c *model.Check) error
	DeleteOrphanedChecks(ctx context.Context) (int64, error)
	DeleteOrphanedStats(ctx context.Context) (int64, error)
	DeleteChecksBefore(ctx context.Context, before time.Time) (int64, error)
}

type Gate interface {
	IsInMaintenance(ctx context.Context, monitorID uint64) (bool, error)
}

type Prober interface {
	Probe(ctx context.Context, m *model.Monitor) (probe.Result, error)
}

type StatusEngine interface {
	UpdateMonitorStatus(ctx context.Context, m *model.Monitor, o probe.Outcome) (bool, error)
	UpdateMonitorStats(ctx context.Context, m *model.Monitor, o probe.Outcome, changed bool) (*model.MonitorStats, error)
}

type IncidentHandler interface {
	HandleStatusChange(ctx context.Context, m *model.Monitor, c *model.Check) (*model.Incident, bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, m *model.Monitor, i *model.Incident) <-chan []notification.Delivery
}

type Sentinel struct {
	store     Store
	gate      Gate
	prober    Prober
	status    StatusEngine
	incidents IncidentHandler
	notifier  Notifier
	retention time.Duration
	log       *zap.Logger
	now       func() time.Time
}

type Deps struct {
	Store     Store
	Gate      Gate
	Prober    Prober
	Status    StatusEngine
	Incidents IncidentHandler
	Notifier  Notifier
	// Retention 为 0 时不按时间清理 Check
	Retention time.Duration
}

func New(d Deps, log *zap.Logger) *Sentinel {
	return &Sentinel{
		store:     d.Store,
		gate:      d.Gate,
		prober:    d.Prober,
		status:    d.Status,
		incidents: d.Incidents,
		notifier:  d.Notifier,
		retention: d.Retention,
		log:       log,
		now:       time.Now,
	}
}

// Run 单次监控：维护检查、探测、保存 Check、更新状态与统计、处理故障并异步通知。
// 每次从存储重新读取监控，注册时的快照只提供 id
func (s *Sentinel) Run(ctx context.Context, snapshot model.Monitor) error {
	log := s.log.With(zap.String("run", uuid.NewString()), zap.Uint64("monitor", snapshot.ID))

	m, err := s.store.FindMonitor(ctx, snapshot.ID)
	if err != nil {
		return fmt.Errorf("load monitor: %w", err)
	}
	if !m.IsActive {
		log.Debug("monitor inactive, skipped")
		return nil
	}

	in, err := s.gate.IsInMaintenance(ctx, m.ID)
	if err != nil {
		log.Warn("maintenance index refresh failed, using previous index", zap.Error(err))
	}
	if in {
		log.Debug("monitor in maintenance, skipped")
		return nil
	}

	res, err := s.prober.Probe(ctx, m)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	c, err := check.Build(m, res)
	if err != nil {
		return fmt.Errorf("build check: %w", err)
	}
	if err := s.store.SaveCheck(ctx, c); err != nil {
		return fmt.Errorf("save check: %w", err)
	}

	outcome := res.Base()
	changed, err := s.status.UpdateMonitorStatus(ctx, m, outcome)
	if err != nil {
		return err
	}
	if _, err := s.status.UpdateMonitorStats(ctx, m, outcome, changed); err != nil {
		return err
	}
	log.Debug("check recorded", zap.String("status", string(outcome.Status)),
		zap.Float64("response_time", outcome.ResponseTime), zap.Bool("changed", changed))

	if !changed {
		return nil
	}
	incident, isNew, err := s.incidents.HandleStatusChange(ctx, m, c)
	if err != nil {
		return fmt.Errorf("handle incident: %w", err)
	}
	if isNew && len(m.NotificationChannels) > 0 {
		var snap model.Monitor
		if err := copier.CopyWithOption(&snap, m, copier.Option{DeepCopy: true}); err != nil {
			log.Error("snapshot monitor for notification", zap.Error(err))
			return nil
		}
		s.notifier.Notify(ctx, &snap, incident)
	}
	return nil
}

// Cleanup 删除孤立的 Check、统计行以及超过保留期的 Check
func (s *Sentinel) Cleanup(ctx context.Context) error {
	var errs []error
	checks, err := s.store.DeleteOrphanedChecks(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("orphaned checks: %w", err))
	}
	stats, err := s.store.DeleteOrphanedStats(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("orphaned stats: %w", err))
	}
	var expired int64
	if s.retention > 0 {
		expired, err = s.store.DeleteChecksBefore(ctx, s.now().Add(-s.retention))
		if err != nil {
			errs = append(errs, fmt.Errorf("expired checks: %w", err))
		}
	}
	s.log.Info("cleanup finished", zap.Int64("orphaned_checks", checks),
		zap.Int64("orphaned_stats", stats), zap.Int64("expired_checks", expired))
	return errors.Join(errs...)
}
