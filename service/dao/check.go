package dao

import (
	"context"
	"time"

	"github.com/naiba/uptime/model"
)

func (s *Store) SaveCheck(ctx context.Context, c *model.Check) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

// ListChecks 按时间倒序返回最近的检查记录
func (s *Store) ListChecks(ctx context.Context, monitorID uint64, limit int) ([]model.Check, error) {
	var cs []model.Check
	err := s.db.WithContext(ctx).Where("monitor_id = ?", monitorID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&cs).Error
	return cs, translate(err)
}

// DeleteOrphanedChecks 清理监控已不存在的检查记录
func (s *Store) DeleteOrphanedChecks(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("monitor_id NOT IN (?)", s.db.Model(&model.Monitor{}).Select("id")).
		Delete(&model.Check{})
	return res.RowsAffected, res.Error
}

// DeleteChecksBefore 清理超过保留期的检查记录
func (s *Store) DeleteChecksBefore(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", before).Delete(&model.Check{})
	return res.RowsAffected, res.Error
}
