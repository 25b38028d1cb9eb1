package dao

import (
	"context"

	"gorm.io/gorm"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/utils"
)

func (s *Store) FindMonitor(ctx context.Context, id uint64) (*model.Monitor, error) {
	var m model.Monitor
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Store) ListActiveMonitors(ctx context.Context) ([]model.Monitor, error) {
	var ms []model.Monitor
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&ms).Error
	return ms, translate(err)
}

func (s *Store) SaveMonitor(ctx context.Context, m *model.Monitor) error {
	return translate(s.db.WithContext(ctx).Save(m).Error)
}

// SaveMonitorStatus 只写入探测相关的列，不覆盖运行期间管理端修改的配置
func (s *Store) SaveMonitorStatus(ctx context.Context, m *model.Monitor) error {
	raw, err := utils.Json.Marshal(m.LatestChecks)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: true}).Model(&model.Monitor{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"status":            m.Status,
		"latest_checks_raw": string(raw),
		"last_checked_at":   m.LastCheckedAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// CreateMonitor 同时创建监控与其统计行
func (s *Store) CreateMonitor(ctx context.Context, m *model.Monitor) (*model.MonitorStats, error) {
	var stats model.MonitorStats
	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.db.Create(m).Error; err != nil {
			return translate(err)
		}
		stats = model.MonitorStats{MonitorID: m.ID}
		return translate(tx.db.Create(&stats).Error)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// DeleteMonitor 级联删除检查记录、统计与故障
func (s *Store) DeleteMonitor(ctx context.Context, id uint64) error {
	return s.Transaction(ctx, func(tx *Store) error {
		res := tx.db.Delete(&model.Monitor{}, id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return model.ErrNotFound
		}
		if err := tx.db.Where("monitor_id = ?", id).Delete(&model.Check{}).Error; err != nil {
			return err
		}
		if err := tx.db.Where("monitor_id = ?", id).Delete(&model.MonitorStats{}).Error; err != nil {
			return err
		}
		return tx.db.Where("monitor_id = ?", id).Delete(&model.Incident{}).Error
	})
}

func (s *Store) FindStats(ctx context.Context, monitorID uint64) (*model.MonitorStats, error) {
	var stats model.MonitorStats
	if err := s.db.WithContext(ctx).Where("monitor_id = ?", monitorID).First(&stats).Error; err != nil {
		return nil, translate(err)
	}
	return &stats, nil
}

func (s *Store) SaveStats(ctx context.Context, stats *model.MonitorStats) error {
	return translate(s.db.WithContext(ctx).Save(stats).Error)
}

// DeleteOrphanedStats 清理监控已不存在的统计行
func (s *Store) DeleteOrphanedStats(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("monitor_id NOT IN (?)", s.db.Model(&model.Monitor{}).Select("id")).
		Delete(&model.MonitorStats{})
	return res.RowsAffected, res.Error
}
