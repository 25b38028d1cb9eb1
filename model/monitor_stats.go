package model

import "time"

// MonitorStats 每个监控一行，随每次观测累加
type MonitorStats struct {
	Common
	MonitorID              uint64        `gorm:"uniqueIndex" json:"monitor_id"`
	TotalChecks            uint64        `json:"total_checks"`
	TotalUpChecks          uint64        `json:"total_up_checks"`
	TotalDownChecks        uint64        `json:"total_down_checks"`
	AvgResponseTime        float64       `json:"avg_response_time"`
	MaxResponseTime        float64       `json:"max_response_time"`
	LastResponseTime       float64       `json:"last_response_time"`
	UptimePercentage       float64       `json:"uptime_percentage"` // 0..1
	CurrentStreak          uint64        `json:"current_streak"`
	CurrentStreakStatus    MonitorStatus `json:"current_streak_status"`
	CurrentStreakStartedAt *time.Time    `json:"current_streak_started_at,omitempty"`
	LastCheckTimestamp     *time.Time    `json:"last_check_timestamp,omitempty"`
	TimeOfLastFailure      *time.Time    `json:"time_of_last_failure,omitempty"`
}
