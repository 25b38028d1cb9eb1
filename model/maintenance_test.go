package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaintenanceActiveAt(t *testing.T) {
	start := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	daily := Maintenance{StartTime: start, EndTime: start.Add(10 * time.Minute), Repeat: MaintenanceDaily}

	assert.False(t, daily.ActiveAt(start.Add(-time.Minute)), "before first occurrence")
	assert.True(t, daily.ActiveAt(start))
	assert.True(t, daily.ActiveAt(start.Add(5*time.Minute)))
	assert.False(t, daily.ActiveAt(start.Add(10*time.Minute)), "end is exclusive for recurring windows")
	assert.False(t, daily.ActiveAt(start.Add(25*time.Hour)))
	assert.True(t, daily.ActiveAt(start.Add(24*time.Hour+5*time.Minute)))

	weekly := Maintenance{StartTime: start, EndTime: start.Add(time.Hour), Repeat: MaintenanceWeekly}
	assert.False(t, weekly.ActiveAt(start.Add(24*time.Hour+30*time.Minute)))
	assert.True(t, weekly.ActiveAt(start.Add(14*24*time.Hour+30*time.Minute)))

	once := Maintenance{StartTime: start, EndTime: start.Add(time.Hour), Repeat: MaintenanceNoRepeat}
	assert.True(t, once.ActiveAt(start))
	assert.True(t, once.ActiveAt(start.Add(time.Hour)))
	assert.False(t, once.ActiveAt(start.Add(time.Hour+time.Second)))
	assert.False(t, once.ActiveAt(start.Add(25*time.Hour)))

	unset := Maintenance{StartTime: start, EndTime: start.Add(time.Hour)}
	assert.False(t, unset.ActiveAt(start.Add(24*time.Hour+time.Minute)))
}

func TestMaintenanceCovers(t *testing.T) {
	m := Maintenance{Monitors: []uint64{1, 3}}
	assert.True(t, m.Covers(3))
	assert.False(t, m.Covers(2))

	assert.NoError(t, m.BeforeSave(nil))
	assert.Equal(t, MaintenanceNoRepeat, m.Repeat)
	m.Monitors = nil
	assert.NoError(t, m.AfterFind(nil))
	assert.Equal(t, []uint64{1, 3}, m.Monitors)
}
