package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/logger"
	"github.com/naiba/uptime/pkg/utils"
)

const (
	CleanupJobID           = "cleanup-orphaned-checks"
	DefaultCleanupInterval = 24 * time.Hour
)

var ErrJobNotFound = errors.New("job not found")

type MonitorSource interface {
	ListActiveMonitors(ctx context.Context) ([]model.Monitor, error)
}

// Runner 执行一次监控任务，m 为注册时的监控快照
type Runner func(ctx context.Context, m model.Monitor) error

// every 首次在 start 触发，此后每隔 interval 触发一次，
// Next 只会在 cron 的调度协程中调用
type every struct {
	interval time.Duration
	start    time.Time
	fired    bool
}

func (e *every) Next(t time.Time) time.Time {
	if !e.fired {
		e.fired = true
		if e.start.After(t) {
			return e.start
		}
		return t
	}
	return t.Add(e.interval)
}

type job struct {
	mu       sync.Mutex
	id       string
	monitor  *model.Monitor // cleanup 任务为 nil
	interval time.Duration
	active   bool
	entryID  cron.EntryID
	fn       func(ctx context.Context) error

	runCount       uint64
	failCount      uint64
	lastRunAt      *time.Time
	lastFinishedAt *time.Time
	lockedAt       *time.Time
	lastFailedAt   *time.Time
	lastFailReason string
}

// failing 最近一次运行失败
func (j *job) failing() bool {
	return j.failCount > 0 && j.lastFailedAt != nil &&
		(j.lastRunAt == nil || !j.lastFailedAt.Before(*j.lastRunAt))
}

type Config struct {
	CleanupInterval time.Duration
}

type Scheduler struct {
	cron    *cron.Cron
	source  MonitorSource
	run     Runner
	cleanup func(ctx context.Context) error
	conf    Config
	log     *zap.Logger
	now     func() time.Time

	mu     sync.RWMutex
	jobs   map[string]*job
	ctx    context.Context
	cancel context.CancelFunc
}

func New(source MonitorSource, run Runner, cleanup func(ctx context.Context) error, conf Config, log *zap.Logger) *Scheduler {
	if conf.CleanupInterval <= 0 {
		conf.CleanupInterval = DefaultCleanupInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(logger.CronLogger{L: log})),
		source:  source,
		run:     run,
		cleanup: cleanup,
		conf:    conf,
		log:     log,
		now:     time.Now,
		jobs:    make(map[string]*job),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func JobID(monitorID uint64) string {
	return strconv.FormatUint(monitorID, 10)
}

// schedule 为任务注册新的 cron entry，调用方持有 j.mu
func (s *Scheduler) schedule(j *job, delay time.Duration) {
	j.entryID = s.cron.Schedule(&every{interval: j.interval, start: s.now().Add(delay)}, cron.FuncJob(func() {
		s.execute(j)
	}))
}

func (s *Scheduler) execute(j *job) {
	j.mu.Lock()
	if !j.active || j.lockedAt != nil {
		j.mu.Unlock()
		return
	}
	now := s.now()
	j.lockedAt = &now
	j.lastRunAt = &now
	j.runCount++
	fn := j.fn
	j.mu.Unlock()

	err := s.safeRun(fn)

	j.mu.Lock()
	defer j.mu.Unlock()
	finished := s.now()
	j.lockedAt = nil
	j.lastFinishedAt = &finished
	if err != nil {
		j.failCount++
		j.lastFailedAt = &finished
		j.lastFailReason = err.Error()
		s.log.Warn("job failed", zap.String("job", j.id), zap.Uint64("fail_count", j.failCount), zap.Error(err))
	}
}

func (s *Scheduler) safeRun(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("job panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()
	return fn(s.ctx)
}

func (s *Scheduler) AddJob(m *model.Monitor) error {
	return s.AddJobWithDelay(m, 0)
}

// AddJobWithDelay 注册监控任务，首次运行推迟 delay；已存在时覆盖配置并保留计数
func (s *Scheduler) AddJobWithDelay(m *model.Monitor, delay time.Duration) error {
	if m.ID == 0 {
		return fmt.Errorf("add job: monitor has no id")
	}
	interval := m.IntervalDuration()
	if interval <= 0 {
		return fmt.Errorf("add job %d: non-positive interval", m.ID)
	}
	snapshot := *m

	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[JobID(m.ID)]
	if !ok {
		j = &job{id: JobID(m.ID)}
		j.fn = func(ctx context.Context) error {
			j.mu.Lock()
			m := *j.monitor
			j.mu.Unlock()
			return s.run(ctx, m)
		}
		s.jobs[j.id] = j
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if ok {
		s.cron.Remove(j.entryID)
	}
	j.monitor = &snapshot
	j.interval = interval
	j.active = m.IsActive
	s.schedule(j, delay)
	return nil
}

func (s *Scheduler) find(id uint64) (*job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[JobID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	return j, nil
}

func (s *Scheduler) setActive(id uint64, active bool) error {
	j, err := s.find(id)
	if err != nil {
		return err
	}
	j.mu.Lock()
	j.active = active
	if j.monitor != nil {
		j.monitor.IsActive = active
	}
	j.mu.Unlock()
	return nil
}

// PauseJob 暂停后任务保留注册与计数，已在运行的一次不会被打断
func (s *Scheduler) PauseJob(id uint64) error {
	return s.setActive(id, false)
}

func (s *Scheduler) ResumeJob(id uint64) error {
	return s.setActive(id, true)
}

// UpdateJob 替换间隔与监控快照，计数保留，下次运行在一个新间隔之后
func (s *Scheduler) UpdateJob(m *model.Monitor) error {
	interval := m.IntervalDuration()
	if interval <= 0 {
		return fmt.Errorf("update job %d: non-positive interval", m.ID)
	}
	snapshot := *m

	// 查找与重新注册在同一把锁内，避免并发 DeleteJob 后残留 cron 条目
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[JobID(m.ID)]
	if !ok {
		return fmt.Errorf("%w: %d", ErrJobNotFound, m.ID)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	s.cron.Remove(j.entryID)
	j.monitor = &snapshot
	j.interval = interval
	j.active = m.IsActive
	s.schedule(j, interval)
	return nil
}

// DeleteJob 任务不存在时也返回 nil
func (s *Scheduler) DeleteJob(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[JobID(id)]; ok {
		s.cron.Remove(j.entryID)
		delete(s.jobs, j.id)
	}
}

// Flush 移除全部任务，包括 cleanup
func (s *Scheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		s.cron.Remove(j.entryID)
		delete(s.jobs, id)
	}
}

type JobInfo struct {
	ID             string            `json:"id"`
	MonitorID      uint64            `json:"monitorId,omitempty"`
	URL            string            `json:"url,omitempty"`
	Type           model.MonitorType `json:"type,omitempty"`
	Interval       time.Duration     `json:"interval"`
	Active         bool              `json:"active"`
	RunCount       uint64            `json:"runCount"`
	FailCount      uint64            `json:"failCount"`
	LastRunAt      *time.Time        `json:"lastRunAt,omitempty"`
	LastFinishedAt *time.Time        `json:"lastFinishedAt,omitempty"`
	LockedAt       *time.Time        `json:"lockedAt,omitempty"`
	LastFailedAt   *time.Time        `json:"lastFailedAt,omitempty"`
	LastFailReason string            `json:"lastFailReason,omitempty"`
	LastRunTook    *time.Duration    `json:"lastRunTook,omitempty"`
}

func (j *job) info() JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	info := JobInfo{
		ID:             j.id,
		Interval:       j.interval,
		Active:         j.active,
		RunCount:       j.runCount,
		FailCount:      j.failCount,
		LastRunAt:      j.lastRunAt,
		LastFinishedAt: j.lastFinishedAt,
		LockedAt:       j.lockedAt,
		LastFailedAt:   j.lastFailedAt,
		LastFailReason: j.lastFailReason,
	}
	if j.monitor != nil {
		info.MonitorID = j.monitor.ID
		info.URL = j.monitor.URL
		info.Type = j.monitor.Type
	}
	if j.lockedAt == nil && j.lastRunAt != nil && j.lastFinishedAt != nil {
		took := j.lastFinishedAt.Sub(*j.lastRunAt)
		info.LastRunTook = &took
	}
	return info
}

func (s *Scheduler) GetJobs() []JobInfo {
	s.mu.RLock()
	jobs := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j.info())
	}
	s.mu.RUnlock()
	slices.SortFunc(jobs, func(a, b JobInfo) int {
		if a.MonitorID != b.MonitorID {
			if a.MonitorID < b.MonitorID {
				return -1
			}
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return jobs
}

type FailedJob struct {
	MonitorID   uint64            `json:"monitorId"`
	MonitorURL  string            `json:"monitorUrl"`
	MonitorType model.MonitorType `json:"monitorType"`
	FailedAt    *time.Time        `json:"failedAt"`
	FailCount   uint64            `json:"failCount"`
	FailReason  string            `json:"failReason"`
}

type Metrics struct {
	Jobs             int         `json:"jobs"`
	ActiveJobs       int         `json:"activeJobs"`
	FailingJobs      int         `json:"failingJobs"`
	JobsWithFailures []FailedJob `json:"jobsWithFailures"`
	TotalRuns        uint64      `json:"totalRuns"`
	TotalFailures    uint64      `json:"totalFailures"`
}

// GetMetrics 只统计监控任务
func (s *Scheduler) GetMetrics() Metrics {
	metrics := Metrics{JobsWithFailures: []FailedJob{}}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		j.mu.Lock()
		if j.monitor == nil {
			j.mu.Unlock()
			continue
		}
		metrics.Jobs++
		metrics.TotalRuns += j.runCount
		metrics.TotalFailures += j.failCount
		if j.lockedAt != nil {
			metrics.ActiveJobs++
		}
		if j.failing() {
			metrics.FailingJobs++
		}
		if j.failCount > 0 {
			metrics.JobsWithFailures = append(metrics.JobsWithFailures, FailedJob{
				MonitorID:   j.monitor.ID,
				MonitorURL:  j.monitor.URL,
				MonitorType: j.monitor.Type,
				FailedAt:    j.lastFailedAt,
				FailCount:   j.failCount,
				FailReason:  j.lastFailReason,
			})
		}
		j.mu.Unlock()
	}
	slices.SortFunc(metrics.JobsWithFailures, func(a, b FailedJob) int {
		if a.MonitorID < b.MonitorID {
			return -1
		}
		if a.MonitorID > b.MonitorID {
			return 1
		}
		return 0
	})
	return metrics
}

func (s *Scheduler) addCleanupJob() {
	if s.cleanup == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[CleanupJobID]; ok {
		return
	}
	j := &job{id: CleanupJobID, interval: s.conf.CleanupInterval, active: true, fn: s.cleanup}
	j.mu.Lock()
	s.schedule(j, s.conf.CleanupInterval)
	j.mu.Unlock()
	s.jobs[j.id] = j
}

// Start 注册 cleanup 任务与所有启用的监控，首次运行在 [0, interval) 内随机错开
func (s *Scheduler) Start(ctx context.Context) error {
	s.addCleanupJob()
	monitors, err := s.source.ListActiveMonitors(ctx)
	if err != nil {
		return fmt.Errorf("list active monitors: %w", err)
	}
	for i := range monitors {
		m := &monitors[i]
		if err := s.AddJobWithDelay(m, utils.RandomDelay(m.IntervalDuration())); err != nil {
			s.log.Warn("register monitor job", zap.Uint64("monitor", m.ID), zap.Error(err))
		}
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("monitors", len(monitors)))
	return nil
}

// Stop 停止调度，返回的 ctx 在运行中的任务全部结束后 Done
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	return s.cron.Stop()
}
