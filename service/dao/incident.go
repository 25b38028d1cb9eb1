package dao

import (
	"context"
	"errors"
	"time"

	"github.com/naiba/uptime/model"
)

// FindUnresolvedIncident 没有未恢复的故障时返回 nil, nil
func (s *Store) FindUnresolvedIncident(ctx context.Context, monitorID uint64) (*model.Incident, error) {
	var incidents []model.Incident
	if err := s.db.WithContext(ctx).Where("monitor_id = ? AND resolved = ?", monitorID, false).
		Limit(1).Find(&incidents).Error; err != nil {
		return nil, err
	}
	if len(incidents) == 0 {
		return nil, nil
	}
	return &incidents[0], nil
}

func (s *Store) CreateIncident(ctx context.Context, i *model.Incident) error {
	return translate(s.db.WithContext(ctx).Create(i).Error)
}

func (s *Store) FindIncident(ctx context.Context, id uint64) (*model.Incident, error) {
	var i model.Incident
	if err := s.db.WithContext(ctx).First(&i, id).Error; err != nil {
		return nil, translate(err)
	}
	return &i, nil
}

// ResolveIncident 仅当故障仍未恢复时写入恢复信息，返回是否写入成功
func (s *Store) ResolveIncident(ctx context.Context, i *model.Incident) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Incident{}).
		Where("id = ? AND resolved = ?", i.ID, false).
		Updates(map[string]interface{}{
			"resolved":        true,
			"ended_at":        i.EndedAt,
			"end_check":       i.EndCheck,
			"resolved_by":     i.ResolvedBy,
			"resolution_type": i.ResolutionType,
			"resolution_note": i.ResolutionNote,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

var errInvalidRange = errors.New("invalid range parameter")

// ListIncidents 按创建时间倒序分页，返回当前页与总数
func (s *Store) ListIncidents(ctx context.Context, f model.IncidentFilter, now time.Time) ([]model.Incident, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Incident{})
	if f.Range != "" {
		since, ok := f.Range.Since(now)
		if !ok {
			return nil, 0, errInvalidRange
		}
		q = q.Where("created_at >= ?", since)
	}
	if f.TeamID != 0 {
		q = q.Where("team_id = ?", f.TeamID)
	}
	if f.MonitorID != 0 {
		q = q.Where("monitor_id = ?", f.MonitorID)
	}
	if f.Resolved != nil {
		q = q.Where("resolved = ?", *f.Resolved)
	}
	if f.ResolutionType != "" {
		q = q.Where("resolution_type = ?", f.ResolutionType)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	var incidents []model.Incident
	if f.RowsPerPage > 0 {
		q = q.Offset(f.Page * f.RowsPerPage).Limit(f.RowsPerPage)
	}
	if err := q.Order("created_at DESC, id DESC").Find(&incidents).Error; err != nil {
		return nil, 0, err
	}
	return incidents, count, nil
}
