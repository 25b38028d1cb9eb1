package model

import (
	"time"

	"gorm.io/gorm"

	"github.com/naiba/uptime/pkg/utils"
)

type ChannelType string

const (
	ChannelTypeEmail   ChannelType = "email"
	ChannelTypeSlack   ChannelType = "slack"
	ChannelTypeDiscord ChannelType = "discord"
	ChannelTypeWebhook ChannelType = "webhook"
)

type ChannelConfig struct {
	URL          string `json:"url,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

type NotificationChannel struct {
	Common
	OrgID     uint64      `gorm:"index" json:"org_id"`
	TeamID    uint64      `gorm:"index" json:"team_id"`
	Name      string      `json:"name"`
	Type      ChannelType `json:"type"`
	ConfigRaw string      `gorm:"type:text" json:"-"`
	IsActive  bool        `json:"is_active"`

	Config ChannelConfig `gorm:"-" json:"config"`
}

// Target 渠道的投递地址，用于日志与测试结果展示
func (n *NotificationChannel) Target() string {
	if n.Type == ChannelTypeEmail {
		if n.Config.EmailAddress != "" {
			return n.Config.EmailAddress
		}
	} else if n.Config.URL != "" {
		return n.Config.URL
	}
	return "N/A"
}

func (n *NotificationChannel) BeforeSave(tx *gorm.DB) error {
	data, err := utils.Json.Marshal(n.Config)
	if err != nil {
		return err
	}
	n.ConfigRaw = string(data)
	return nil
}

func (n *NotificationChannel) AfterFind(tx *gorm.DB) error {
	n.Config = ChannelConfig{}
	if n.ConfigRaw == "" {
		return nil
	}
	return utils.Json.Unmarshal([]byte(n.ConfigRaw), &n.Config)
}

// Alert 发往各渠道的告警内容
type Alert struct {
	Name           string         `json:"name"`
	URL            string         `json:"url"`
	Status         string         `json:"status"`
	Resolved       bool           `json:"resolved"`
	ResolutionType ResolutionType `json:"resolutionType,omitempty"`
	ResolvedBy     string         `json:"resolvedBy,omitempty"`
	ResolutionNote string         `json:"resolutionNote,omitempty"`
	CheckTime      *time.Time     `json:"checkTime"`
	AlertTime      time.Time      `json:"alertTime"`
}

func NewAlert(m *Monitor, i *Incident, now time.Time) Alert {
	a := Alert{
		Name:      m.Name,
		URL:       m.URL,
		Status:    string(m.Status),
		CheckTime: m.LastCheckedAt,
		AlertTime: now,
	}
	if a.Name == "" {
		a.Name = "Unnamed monitor"
	}
	if a.URL == "" {
		a.URL = "no URL"
	}
	if a.Status == "" {
		a.Status = "unknown status"
	}
	if i != nil {
		a.Resolved = i.Resolved
		a.ResolutionType = i.ResolutionType
		a.ResolvedBy = i.ResolvedBy
		a.ResolutionNote = i.ResolutionNote
	}
	return a
}

// TestAlert 渠道测试使用的固定内容
func TestAlert(now time.Time) Alert {
	return Alert{
		Name:           "This is a test",
		URL:            "Test URL",
		Status:         "Test status",
		Resolved:       true,
		ResolutionType: ResolutionTypeAuto,
		ResolvedBy:     "system",
		ResolutionNote: "This is a test message",
		CheckTime:      &now,
		AlertTime:      now,
	}
}
