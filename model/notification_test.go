package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertCase struct {
	monitor  Monitor
	incident *Incident
	expect   Alert
}

func execAlertCase(t *testing.T, now time.Time, item alertCase) {
	a := NewAlert(&item.monitor, item.incident, now)
	assert.Equal(t, item.expect, a)
}

func TestNewAlert(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	checked := now.Add(-time.Minute)
	cases := []alertCase{
		{
			monitor: Monitor{},
			expect: Alert{
				Name:      "Unnamed monitor",
				URL:       "no URL",
				Status:    "unknown status",
				AlertTime: now,
			},
		},
		{
			monitor:  Monitor{Name: "api", URL: "https://example.com", Status: MonitorStatusDown, LastCheckedAt: &checked},
			incident: &Incident{},
			expect: Alert{
				Name:      "api",
				URL:       "https://example.com",
				Status:    "down",
				CheckTime: &checked,
				AlertTime: now,
			},
		},
		{
			monitor: Monitor{Name: "api", URL: "https://example.com", Status: MonitorStatusUp},
			incident: &Incident{
				Resolved:       true,
				ResolutionType: ResolutionTypeManual,
				ResolvedBy:     "ops",
				ResolutionNote: "rolled back",
			},
			expect: Alert{
				Name:           "api",
				URL:            "https://example.com",
				Status:         "up",
				Resolved:       true,
				ResolutionType: ResolutionTypeManual,
				ResolvedBy:     "ops",
				ResolutionNote: "rolled back",
				AlertTime:      now,
			},
		},
	}

	for _, c := range cases {
		execAlertCase(t, now, c)
	}
}

func TestTestAlert(t *testing.T) {
	now := time.Now()
	a := TestAlert(now)
	assert.Equal(t, "This is a test", a.Name)
	assert.True(t, a.Resolved)
	assert.Equal(t, ResolutionTypeAuto, a.ResolutionType)
	assert.Equal(t, "system", a.ResolvedBy)
}

func TestChannelTarget(t *testing.T) {
	assert.Equal(t, "a@b.c", (&NotificationChannel{Type: ChannelTypeEmail, Config: ChannelConfig{EmailAddress: "a@b.c"}}).Target())
	assert.Equal(t, "N/A", (&NotificationChannel{Type: ChannelTypeEmail, Config: ChannelConfig{URL: "https://x"}}).Target())
	assert.Equal(t, "https://x", (&NotificationChannel{Type: ChannelTypeSlack, Config: ChannelConfig{URL: "https://x"}}).Target())
}

func TestChannelConfigHooks(t *testing.T) {
	n := NotificationChannel{Type: ChannelTypeWebhook, Config: ChannelConfig{URL: "https://hook"}}
	require.NoError(t, n.BeforeSave(nil))
	assert.JSONEq(t, `{"url":"https://hook"}`, n.ConfigRaw)

	var loaded NotificationChannel
	loaded.ConfigRaw = n.ConfigRaw
	require.NoError(t, loaded.AfterFind(nil))
	assert.Equal(t, "https://hook", loaded.Config.URL)
}
