package incident

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/naiba/uptime/model"
)

var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrAlreadyResolved  = errors.New("incident is already resolved")
)

type Store interface {
	FindUnresolvedIncident(ctx context.Context, monitorID uint64) (*model.Incident, error)
	CreateIncident(ctx context.Context, i *model.Incident) error
	FindIncident(ctx context.Context, id uint64) (*model.Incident, error)
	ResolveIncident(ctx context.Context, i *model.Incident) (bool, error)
	ListIncidents(ctx context.Context, f model.IncidentFilter, now time.Time) ([]model.Incident, int64, error)
}

type Manager struct {
	store Store
	log   *zap.Logger
	now   func() time.Time

	locks sync.Map // monitor id -> *sync.Mutex
}

func NewManager(store Store, log *zap.Logger) *Manager {
	return &Manager{store: store, log: log, now: time.Now}
}

func (im *Manager) lock(monitorID uint64) func() {
	v, _ := im.locks.LoadOrStore(monitorID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// HandleStatusChange 根据检查结果开启或自动恢复故障，
// 第二个返回值表示本次调用是否新开启或新恢复了故障
func (im *Manager) HandleStatusChange(ctx context.Context, m *model.Monitor, c *model.Check) (*model.Incident, bool, error) {
	unlock := im.lock(m.ID)
	defer unlock()

	open, err := im.store.FindUnresolvedIncident(ctx, m.ID)
	if err != nil {
		return nil, false, err
	}

	switch c.Status {
	case model.MonitorStatusDown:
		if open != nil {
			return open, false, nil
		}
		i := &model.Incident{
			MonitorID:  m.ID,
			TeamID:     m.TeamID,
			StartedAt:  im.now(),
			StartCheck: c.ID,
		}
		if err := im.store.CreateIncident(ctx, i); err != nil {
			if !errors.Is(err, model.ErrDuplicate) {
				return nil, false, err
			}
			// 其他进程抢先创建，读取已存在的那条
			existing, findErr := im.store.FindUnresolvedIncident(ctx, m.ID)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		im.log.Info("incident opened", zap.Uint64("monitor", m.ID), zap.Uint64("incident", i.ID))
		return i, true, nil

	case model.MonitorStatusUp:
		if open == nil {
			return nil, false, nil
		}
		now := im.now()
		checkID := c.ID
		open.Resolved = true
		open.ResolutionType = model.ResolutionTypeAuto
		open.EndedAt = &now
		open.EndCheck = &checkID
		ok, err := im.store.ResolveIncident(ctx, open)
		if err != nil {
			return nil, false, err
		}
		if ok {
			im.log.Info("incident resolved", zap.Uint64("monitor", m.ID), zap.Uint64("incident", open.ID))
		}
		return open, ok, nil
	}
	return nil, false, nil
}

// Resolve 人工恢复故障
func (im *Manager) Resolve(ctx context.Context, incidentID uint64, resolvedBy, note string) (*model.Incident, error) {
	i, err := im.store.FindIncident(ctx, incidentID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrIncidentNotFound, incidentID)
	}
	if err != nil {
		return nil, err
	}
	if i.Resolved {
		return nil, ErrAlreadyResolved
	}

	unlock := im.lock(i.MonitorID)
	defer unlock()

	now := im.now()
	i.Resolved = true
	i.ResolutionType = model.ResolutionTypeManual
	i.ResolvedBy = resolvedBy
	i.ResolutionNote = note
	i.EndedAt = &now
	ok, err := im.store.ResolveIncident(ctx, i)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyResolved
	}
	return i, nil
}

func (im *Manager) List(ctx context.Context, f model.IncidentFilter) ([]model.Incident, int64, error) {
	return im.store.ListIncidents(ctx, f, im.now())
}
