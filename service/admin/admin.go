package admin

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/service/notification"
	"github.com/naiba/uptime/service/scheduler"
)

type Store interface {
	CreateMonitor(ctx context.Context, m *model.Monitor) (*model.MonitorStats, error)
	FindMonitor(ctx context.Context, id uint64) (*model.Monitor, error)
	SaveMonitor(ctx context.Context, m *model.Monitor) error
	DeleteMonitor(ctx context.Context, id uint64) error
	ListChecks(ctx context.Context, monitorID uint64, limit int) ([]model.Check, error)
	SaveMaintenance(ctx context.Context, m *model.Maintenance) error
	DeleteMaintenance(ctx context.Context, id uint64) error
	SaveChannel(ctx context.Context, n *model.NotificationChannel) error
	FindChannelsByIds(ctx context.Context, ids []uint64) ([]model.NotificationChannel, error)
}

type Scheduler interface {
	AddJob(m *model.Monitor) error
	UpdateJob(m *model.Monitor) error
	DeleteJob(id uint64)
	PauseJob(id uint64) error
	ResumeJob(id uint64) error
	GetJobs() []scheduler.JobInfo
	GetMetrics() scheduler.Metrics
	Flush()
}

type Incidents interface {
	Resolve(ctx context.Context, incidentID uint64, resolvedBy, note string) (*model.Incident, error)
	List(ctx context.Context, f model.IncidentFilter) ([]model.Incident, int64, error)
}

type Notifier interface {
	Test(ctx context.Context, ch *model.NotificationChannel) notification.TestResult
	TestMonitorChannels(ctx context.Context, m *model.Monitor) ([]notification.TestResult, error)
	Forget(id uint64)
}

type Gate interface {
	Invalidate()
}

// Service 管理端调用的入口，持久化之后同步调度器与缓存
type Service struct {
	store     Store
	scheduler Scheduler
	incidents Incidents
	notifier  Notifier
	gate      Gate
	log       *zap.Logger
}

func New(store Store, sched Scheduler, incidents Incidents, notifier Notifier, gate Gate, log *zap.Logger) *Service {
	return &Service{store: store, scheduler: sched, incidents: incidents, notifier: notifier, gate: gate, log: log}
}

func (s *Service) CreateMonitor(ctx context.Context, mf *model.MonitorForm) (*model.Monitor, error) {
	var m model.Monitor
	mf.Apply(&m)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.CreateMonitor(ctx, &m); err != nil {
		return nil, err
	}
	if err := s.scheduler.AddJob(&m); err != nil {
		return nil, fmt.Errorf("schedule monitor %d: %w", m.ID, err)
	}
	s.log.Info("monitor created", zap.Uint64("monitor", m.ID), zap.String("type", string(m.Type)))
	return &m, nil
}

// UpdateMonitor 保留运行状态与最近观测，只替换配置
func (s *Service) UpdateMonitor(ctx context.Context, id uint64, mf *model.MonitorForm) (*model.Monitor, error) {
	m, err := s.store.FindMonitor(ctx, id)
	if err != nil {
		return nil, err
	}
	mf.Apply(m)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.SaveMonitor(ctx, m); err != nil {
		return nil, err
	}
	if err := s.syncJob(m); err != nil {
		return nil, err
	}
	return m, nil
}

// syncJob 让调度器中的任务与监控配置一致，任务不存在时补注册
func (s *Service) syncJob(m *model.Monitor) error {
	err := s.scheduler.UpdateJob(m)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		if !m.IsActive {
			return nil
		}
		err = s.scheduler.AddJob(m)
	}
	if err != nil {
		return fmt.Errorf("schedule monitor %d: %w", m.ID, err)
	}
	return nil
}

func (s *Service) DeleteMonitor(ctx context.Context, id uint64) error {
	if err := s.store.DeleteMonitor(ctx, id); err != nil {
		return err
	}
	s.scheduler.DeleteJob(id)
	s.log.Info("monitor deleted", zap.Uint64("monitor", id))
	return nil
}

// ToggleMonitorActive 切换启用状态，状态重置为 initializing
func (s *Service) ToggleMonitorActive(ctx context.Context, id uint64) (*model.Monitor, error) {
	m, err := s.store.FindMonitor(ctx, id)
	if err != nil {
		return nil, err
	}
	m.IsActive = !m.IsActive
	m.Status = model.MonitorStatusInitializing
	if err := s.store.SaveMonitor(ctx, m); err != nil {
		return nil, err
	}
	if err := s.syncJob(m); err != nil {
		return nil, err
	}
	if m.IsActive {
		err = s.scheduler.ResumeJob(id)
	} else {
		err = s.scheduler.PauseJob(id)
	}
	if err != nil && !errors.Is(err, scheduler.ErrJobNotFound) {
		return nil, err
	}
	return m, nil
}

// RecentChecks 返回监控最近的检查记录，limit 取值 1..100
func (s *Service) RecentChecks(ctx context.Context, monitorID uint64, limit int) ([]model.Check, error) {
	if _, err := s.store.FindMonitor(ctx, monitorID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.store.ListChecks(ctx, monitorID, limit)
}

func (s *Service) GetJobs() []scheduler.JobInfo {
	return s.scheduler.GetJobs()
}

func (s *Service) GetMetrics() scheduler.Metrics {
	return s.scheduler.GetMetrics()
}

func (s *Service) FlushJobs() {
	s.scheduler.Flush()
	s.log.Warn("all jobs flushed")
}

func (s *Service) ResolveIncident(ctx context.Context, id uint64, resolvedBy, note string) (*model.Incident, error) {
	return s.incidents.Resolve(ctx, id, resolvedBy, note)
}

func (s *Service) ListIncidents(ctx context.Context, f model.IncidentFilter) ([]model.Incident, int64, error) {
	return s.incidents.List(ctx, f)
}

func (s *Service) TestNotificationChannel(ctx context.Context, nf *model.NotificationChannelForm) notification.TestResult {
	var ch model.NotificationChannel
	nf.Apply(&ch)
	return s.notifier.Test(ctx, &ch)
}

func (s *Service) TestMonitorChannels(ctx context.Context, monitorID uint64) ([]notification.TestResult, error) {
	m, err := s.store.FindMonitor(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	return s.notifier.TestMonitorChannels(ctx, m)
}

func (s *Service) CreateNotificationChannel(ctx context.Context, nf *model.NotificationChannelForm) (*model.NotificationChannel, error) {
	var ch model.NotificationChannel
	nf.Apply(&ch)
	if err := s.store.SaveChannel(ctx, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *Service) UpdateNotificationChannel(ctx context.Context, id uint64, nf *model.NotificationChannelForm) (*model.NotificationChannel, error) {
	found, err := s.store.FindChannelsByIds(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, model.ErrNotFound
	}
	ch := found[0]
	nf.Apply(&ch)
	if err := s.store.SaveChannel(ctx, &ch); err != nil {
		return nil, err
	}
	s.notifier.Forget(id)
	return &ch, nil
}

func (s *Service) CreateMaintenance(ctx context.Context, mf *model.MaintenanceForm) (*model.Maintenance, error) {
	var m model.Maintenance
	if err := mf.Apply(&m); err != nil {
		return nil, err
	}
	if err := s.store.SaveMaintenance(ctx, &m); err != nil {
		return nil, err
	}
	s.gate.Invalidate()
	return &m, nil
}

func (s *Service) DeleteMaintenance(ctx context.Context, id uint64) error {
	if err := s.store.DeleteMaintenance(ctx, id); err != nil {
		return err
	}
	s.gate.Invalidate()
	return nil
}
