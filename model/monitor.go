package model

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"gorm.io/gorm"

	"github.com/naiba/uptime/pkg/utils"
)

type MonitorType string

const (
	MonitorTypeHTTP           MonitorType = "http"
	MonitorTypeHTTPS          MonitorType = "https"
	MonitorTypePing           MonitorType = "ping"
	MonitorTypeInfrastructure MonitorType = "infrastructure"
	MonitorTypePagespeed      MonitorType = "pagespeed"
)

func (t MonitorType) Valid() bool {
	switch t {
	case MonitorTypeHTTP, MonitorTypeHTTPS, MonitorTypePing, MonitorTypeInfrastructure, MonitorTypePagespeed:
		return true
	}
	return false
}

type MonitorStatus string

const (
	MonitorStatusInitializing MonitorStatus = "initializing"
	MonitorStatusUp           MonitorStatus = "up"
	MonitorStatusDown         MonitorStatus = "down"
	MonitorStatusPaused       MonitorStatus = "paused"
)

const (
	MaxLatestChecks        = 25
	DefaultMonitorInterval = 60000 // 毫秒
	MaxConfirmations       = 25
)

var ErrInvalidMonitor = errors.New("invalid monitor")

// LatestCheck 保存在监控上的最近观测窗口
type LatestCheck struct {
	Status       MonitorStatus `json:"status"`
	ResponseTime float64       `json:"responseTime"`
	CheckedAt    time.Time     `json:"checkedAt"`
}

type Monitor struct {
	Common
	OrgID    uint64        `gorm:"index" json:"org_id"`
	TeamID   uint64        `gorm:"index" json:"team_id"`
	Name     string        `json:"name"`
	URL      string        `json:"url"`
	Type     MonitorType   `json:"type"`
	Interval int64         `json:"interval"` // 毫秒
	IsActive bool          `json:"is_active"`
	Status   MonitorStatus `json:"status"`
	N        int           `json:"n"` // 状态翻转前需要连续确认的次数

	LatestChecksRaw         string     `gorm:"type:text" json:"-"`
	LastCheckedAt           *time.Time `json:"last_checked_at,omitempty"`
	NotificationChannelsRaw string     `gorm:"type:text" json:"-"`
	Secret                  string     `json:"-"` // infrastructure agent 的 bearer token

	LatestChecks         []LatestCheck `gorm:"-" json:"latest_checks"`
	NotificationChannels []uint64      `gorm:"-" json:"notification_channels"`
}

// ApplyDefaults 填充未设置的字段，bool 类型的 IsActive 由调用方决定
func (m *Monitor) ApplyDefaults() {
	if m.Interval <= 0 {
		m.Interval = DefaultMonitorInterval
	}
	if m.N == 0 {
		m.N = 1
	}
	if m.Status == "" {
		m.Status = MonitorStatusInitializing
	}
}

func (m *Monitor) Validate() error {
	if !m.Type.Valid() {
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidMonitor, m.Type)
	}
	if m.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidMonitor)
	}
	if m.Type != MonitorTypePing {
		if _, err := url.ParseRequestURI(m.URL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMonitor, err)
		}
	}
	if m.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidMonitor)
	}
	if m.N < 1 || m.N > MaxConfirmations {
		return fmt.Errorf("%w: n must be within 1..%d", ErrInvalidMonitor, MaxConfirmations)
	}
	if m.Type == MonitorTypeInfrastructure && m.Secret == "" {
		return fmt.Errorf("%w: infrastructure monitor requires a secret", ErrInvalidMonitor)
	}
	return nil
}

func (m *Monitor) IntervalDuration() time.Duration {
	return utils.Duration(m.Interval)
}

// AppendLatestCheck 追加一条观测，超过 MaxLatestChecks 时丢弃最旧的
func (m *Monitor) AppendLatestCheck(c LatestCheck) {
	m.LatestChecks = append(m.LatestChecks, c)
	if over := len(m.LatestChecks) - MaxLatestChecks; over > 0 {
		m.LatestChecks = append([]LatestCheck(nil), m.LatestChecks[over:]...)
	}
}

// LastN 返回最近 n 条观测，不足 n 条时全部返回
func (m *Monitor) LastN(n int) []LatestCheck {
	if n <= 0 {
		return nil
	}
	if n >= len(m.LatestChecks) {
		return m.LatestChecks
	}
	return m.LatestChecks[len(m.LatestChecks)-n:]
}

func (m *Monitor) BeforeSave(tx *gorm.DB) error {
	if data, err := utils.Json.Marshal(m.LatestChecks); err != nil {
		return err
	} else {
		m.LatestChecksRaw = string(data)
	}
	if data, err := utils.Json.Marshal(m.NotificationChannels); err != nil {
		return err
	} else {
		m.NotificationChannelsRaw = string(data)
	}
	return nil
}

func (m *Monitor) AfterFind(tx *gorm.DB) error {
	m.LatestChecks = nil
	m.NotificationChannels = nil
	if m.LatestChecksRaw != "" {
		if err := utils.Json.Unmarshal([]byte(m.LatestChecksRaw), &m.LatestChecks); err != nil {
			return err
		}
	}
	if m.NotificationChannelsRaw != "" {
		if err := utils.Json.Unmarshal([]byte(m.NotificationChannelsRaw), &m.NotificationChannels); err != nil {
			return err
		}
	}
	return nil
}
