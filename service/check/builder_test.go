package check

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/service/probe"
)

func TestBuild(t *testing.T) {
	up := probe.Outcome{Status: model.MonitorStatusUp, ResponseTime: 42, HTTPStatusCode: 200, Message: "OK", Timings: model.Timings{Total: 42}}
	down := probe.Outcome{Status: model.MonitorStatusDown, HTTPStatusCode: model.NetworkErrorCode, Message: "dial tcp: refused"}

	payload := &model.CapturePayload{
		Data:    model.SystemInfo{CPU: model.CPUInfo{UsagePercent: 0.5}},
		Capture: model.CaptureInfo{Version: "1.0.0", Mode: "local"},
	}
	lh := &model.Lighthouse{SEO: 1, Performance: 0.5}

	cases := []struct {
		name    string
		typ     model.MonitorType
		res     probe.Result
		wantErr error
		verify  func(*testing.T, *model.Check)
	}{
		{"http up", model.MonitorTypeHTTP, &probe.Basic{Outcome: up}, nil, func(t *testing.T, c *model.Check) {
			assert.Equal(t, model.MonitorStatusUp, c.Status)
			assert.Equal(t, 42.0, c.ResponseTime)
			assert.Equal(t, 42.0, c.Timings.Total)
			assert.Nil(t, c.System)
			assert.Nil(t, c.Lighthouse)
		}},
		{"ping down", model.MonitorTypePing, &probe.Basic{Outcome: down}, nil, func(t *testing.T, c *model.Check) {
			assert.Equal(t, model.MonitorStatusDown, c.Status)
			assert.Equal(t, model.NetworkErrorCode, c.HTTPStatusCode)
		}},
		{"infrastructure payload", model.MonitorTypeInfrastructure, &probe.Infrastructure{Outcome: up, Payload: payload}, nil, func(t *testing.T, c *model.Check) {
			require.NotNil(t, c.System)
			assert.Equal(t, 0.5, c.System.CPU.UsagePercent)
			require.NotNil(t, c.Capture)
			assert.Equal(t, "local", c.Capture.Mode)
		}},
		{"infrastructure unreachable", model.MonitorTypeInfrastructure, &probe.Basic{Outcome: down}, nil, func(t *testing.T, c *model.Check) {
			assert.Equal(t, model.MonitorStatusDown, c.Status)
			assert.Nil(t, c.System)
		}},
		{"infrastructure invalid", model.MonitorTypeInfrastructure, &probe.Infrastructure{Outcome: up, Invalid: errors.New("data.cpu.usage_percent: missing")}, ErrInvalidPayload, nil},
		{"infrastructure basic up", model.MonitorTypeInfrastructure, &probe.Basic{Outcome: up}, ErrResultMismatch, nil},
		{"pagespeed", model.MonitorTypePagespeed, &probe.Pagespeed{Outcome: up, Lighthouse: lh}, nil, func(t *testing.T, c *model.Check) {
			require.NotNil(t, c.Lighthouse)
			assert.Equal(t, 1.0, c.Lighthouse.SEO)
			assert.Nil(t, c.System)
		}},
		{"pagespeed missing lighthouse", model.MonitorTypePagespeed, &probe.Pagespeed{Outcome: up, Invalid: errors.New("missing")}, ErrInvalidPayload, nil},
		{"mismatched variant", model.MonitorTypeHTTP, &probe.Pagespeed{Outcome: up, Lighthouse: lh}, ErrResultMismatch, nil},
		{"unsupported", "tcp", &probe.Basic{Outcome: up}, ErrUnsupportedType, nil},
		{"nil result", model.MonitorTypeHTTP, nil, ErrResultMismatch, nil},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := &model.Monitor{Type: c.typ, TeamID: 3}
			m.ID = 7
			got, err := Build(m, c.res)
			if c.wantErr != nil {
				assert.ErrorIs(t, err, c.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(7), got.MonitorID)
			assert.Equal(t, uint64(3), got.TeamID)
			assert.Equal(t, c.typ, got.Type)
			c.verify(t, got)
		})
	}
}
