package model

import "time"

type ResolutionType string

const (
	ResolutionTypeAuto   ResolutionType = "auto"
	ResolutionTypeManual ResolutionType = "manual"
)

// Incident 一次故障，同一监控同时最多存在一个未恢复的 Incident
type Incident struct {
	Common
	MonitorID      uint64         `gorm:"uniqueIndex:idx_incident_open_monitor,where:resolved = false" json:"monitor_id"`
	TeamID         uint64         `gorm:"index" json:"team_id"`
	StartedAt      time.Time      `json:"started_at"`
	StartCheck     uint64         `json:"start_check"`
	EndedAt        *time.Time     `json:"ended_at,omitempty"`
	EndCheck       *uint64        `json:"end_check,omitempty"`
	Resolved       bool           `gorm:"index" json:"resolved"`
	ResolvedBy     string         `json:"resolved_by,omitempty"` // 自动恢复时为空
	ResolutionType ResolutionType `json:"resolution_type,omitempty"`
	ResolutionNote string         `json:"resolution_note,omitempty"`
}

// IncidentRange 列表查询的时间范围
type IncidentRange string

const (
	IncidentRange2h  IncidentRange = "2h"
	IncidentRange24h IncidentRange = "24h"
	IncidentRange7d  IncidentRange = "7d"
	IncidentRange30d IncidentRange = "30d"
)

// Since 返回范围的起点，未知范围返回 false
func (r IncidentRange) Since(now time.Time) (time.Time, bool) {
	switch r {
	case IncidentRange2h:
		return now.Add(-2 * time.Hour), true
	case IncidentRange24h:
		return now.Add(-24 * time.Hour), true
	case IncidentRange7d:
		return now.AddDate(0, 0, -7), true
	case IncidentRange30d:
		return now.AddDate(0, 0, -30), true
	}
	return time.Time{}, false
}

// IncidentFilter 列表过滤条件，零值字段不参与过滤
type IncidentFilter struct {
	TeamID         uint64
	MonitorID      uint64
	Resolved       *bool
	ResolutionType ResolutionType
	Range          IncidentRange
	Page           int
	RowsPerPage    int
}
