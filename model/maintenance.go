package model

import (
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/naiba/uptime/pkg/utils"
)

type MaintenanceRepeat string

const (
	MaintenanceNoRepeat MaintenanceRepeat = "no-repeat"
	MaintenanceDaily    MaintenanceRepeat = "daily"
	MaintenanceWeekly   MaintenanceRepeat = "weekly"
)

// Period 重复周期，不重复时为 0
func (r MaintenanceRepeat) Period() time.Duration {
	switch r {
	case MaintenanceDaily:
		return 24 * time.Hour
	case MaintenanceWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

type Maintenance struct {
	Common
	OrgID       uint64            `gorm:"index" json:"org_id"`
	TeamID      uint64            `gorm:"index" json:"team_id"`
	Name        string            `json:"name"`
	IsActive    bool              `gorm:"index" json:"is_active"`
	MonitorsRaw string            `gorm:"type:text" json:"-"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time"`
	Repeat      MaintenanceRepeat `json:"repeat"`

	Monitors []uint64 `gorm:"-" json:"monitors"`
}

// ActiveAt 判断维护窗口在 now 时刻是否生效
func (m *Maintenance) ActiveAt(now time.Time) bool {
	period := m.Repeat.Period()
	if period == 0 {
		return !now.Before(m.StartTime) && !now.After(m.EndTime)
	}
	elapsed := now.Sub(m.StartTime)
	if elapsed < 0 {
		return false
	}
	offset := elapsed % period
	return offset < m.EndTime.Sub(m.StartTime)
}

func (m *Maintenance) Covers(monitorID uint64) bool {
	return slices.Contains(m.Monitors, monitorID)
}

func (m *Maintenance) BeforeSave(tx *gorm.DB) error {
	if m.Repeat == "" {
		m.Repeat = MaintenanceNoRepeat
	}
	data, err := utils.Json.Marshal(m.Monitors)
	if err != nil {
		return err
	}
	m.MonitorsRaw = string(data)
	return nil
}

func (m *Maintenance) AfterFind(tx *gorm.DB) error {
	m.Monitors = nil
	if m.MonitorsRaw == "" {
		return nil
	}
	return utils.Json.Unmarshal([]byte(m.MonitorsRaw), &m.Monitors)
}
