package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidMaintenance = errors.New("invalid maintenance window")

type MaintenanceForm struct {
	OrgID     uint64            `json:"org_id,omitempty"`
	TeamID    uint64            `json:"team_id,omitempty"`
	Name      string            `json:"name,omitempty" minLength:"1"`
	IsActive  *bool             `json:"is_active,omitempty" validate:"optional"`
	Monitors  []uint64          `json:"monitors,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Repeat    MaintenanceRepeat `json:"repeat,omitempty" validate:"optional"`
}

func (mf *MaintenanceForm) Apply(m *Maintenance) error {
	if !mf.EndTime.After(mf.StartTime) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidMaintenance)
	}
	switch mf.Repeat {
	case "", MaintenanceNoRepeat, MaintenanceDaily, MaintenanceWeekly:
	default:
		return fmt.Errorf("%w: unknown repeat %q", ErrInvalidMaintenance, mf.Repeat)
	}
	if period := mf.Repeat.Period(); period > 0 && mf.EndTime.Sub(mf.StartTime) > period {
		return fmt.Errorf("%w: window longer than its repeat period", ErrInvalidMaintenance)
	}
	isNew := m.ID == 0
	m.OrgID = mf.OrgID
	m.TeamID = mf.TeamID
	m.Name = mf.Name
	m.Monitors = mf.Monitors
	m.StartTime = mf.StartTime
	m.EndTime = mf.EndTime
	m.Repeat = mf.Repeat
	if m.Repeat == "" {
		m.Repeat = MaintenanceNoRepeat
	}
	if mf.IsActive != nil {
		m.IsActive = *mf.IsActive
	} else if isNew {
		m.IsActive = true
	}
	return nil
}
