package model

import "strings"

type MonitorForm struct {
	OrgID                uint64      `json:"org_id,omitempty"`
	TeamID               uint64      `json:"team_id,omitempty"`
	Name                 string      `json:"name,omitempty" minLength:"1"`
	URL                  string      `json:"url,omitempty"`
	Type                 MonitorType `json:"type,omitempty"`
	Interval             int64       `json:"interval,omitempty" validate:"optional"` // 毫秒
	N                    int         `json:"n,omitempty" validate:"optional"`
	IsActive             *bool       `json:"is_active,omitempty" validate:"optional"`
	Secret               string      `json:"secret,omitempty" validate:"optional"`
	NotificationChannels []uint64    `json:"notification_channels,omitempty" validate:"optional"`
}

// Apply 将表单写入监控，未设置 IsActive 时新建的监控默认启用
func (mf *MonitorForm) Apply(m *Monitor) {
	isNew := m.ID == 0
	m.OrgID = mf.OrgID
	m.TeamID = mf.TeamID
	m.Name = mf.Name
	m.URL = strings.TrimSpace(mf.URL)
	m.Type = mf.Type
	m.Interval = mf.Interval
	m.N = mf.N
	m.Secret = mf.Secret
	m.NotificationChannels = mf.NotificationChannels
	if mf.IsActive != nil {
		m.IsActive = *mf.IsActive
	} else if isNew {
		m.IsActive = true
	}
	m.ApplyDefaults()
}
