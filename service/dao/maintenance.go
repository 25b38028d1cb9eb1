package dao

import (
	"context"
	"time"

	"github.com/naiba/uptime/model"
)

// ListActiveMaintenanceWindows 返回所有启用且可能在 now 之后生效的维护窗口，
// 重复窗口始终返回，是否命中由调用方按周期计算
func (s *Store) ListActiveMaintenanceWindows(ctx context.Context, now time.Time) ([]model.Maintenance, error) {
	var ms []model.Maintenance
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("repeat IN ? OR end_time >= ?", []model.MaintenanceRepeat{model.MaintenanceDaily, model.MaintenanceWeekly}, now).
		Find(&ms).Error
	return ms, translate(err)
}

func (s *Store) SaveMaintenance(ctx context.Context, m *model.Maintenance) error {
	return translate(s.db.WithContext(ctx).Save(m).Error)
}

func (s *Store) DeleteMaintenance(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&model.Maintenance{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
