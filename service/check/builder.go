package check

import (
	"errors"
	"fmt"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/service/probe"
)

var (
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrUnsupportedType = errors.New("unsupported monitor type")
	ErrResultMismatch  = errors.New("probe result does not match monitor type")
)

// Build 将探测结果转换为待保存的 Check，不做任何 IO
func Build(m *model.Monitor, res probe.Result) (*model.Check, error) {
	if !m.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, m.Type)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: nil result", ErrResultMismatch)
	}

	o := res.Base()
	c := &model.Check{
		MonitorID:      m.ID,
		TeamID:         m.TeamID,
		Type:           m.Type,
		Status:         o.Status,
		HTTPStatusCode: o.HTTPStatusCode,
		Message:        o.Message,
		ResponseTime:   o.ResponseTime,
		Timings:        o.Timings,
	}

	switch r := res.(type) {
	case *probe.Basic:
		switch m.Type {
		case model.MonitorTypeInfrastructure, model.MonitorTypePagespeed:
			// 只有探测失败时才会得到 Basic
			if o.Status != model.MonitorStatusDown {
				return nil, fmt.Errorf("%w: %s monitor reported a basic up result", ErrResultMismatch, m.Type)
			}
		}
	case *probe.Infrastructure:
		if m.Type != model.MonitorTypeInfrastructure {
			return nil, fmt.Errorf("%w: got infrastructure result for %s", ErrResultMismatch, m.Type)
		}
		if r.Invalid != nil || r.Payload == nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, r.Invalid)
		}
		system := r.Payload.Data
		capture := r.Payload.Capture
		c.System = &system
		c.Capture = &capture
	case *probe.Pagespeed:
		if m.Type != model.MonitorTypePagespeed {
			return nil, fmt.Errorf("%w: got pagespeed result for %s", ErrResultMismatch, m.Type)
		}
		if r.Invalid != nil || r.Lighthouse == nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, r.Invalid)
		}
		lh := *r.Lighthouse
		c.Lighthouse = &lh
	default:
		return nil, fmt.Errorf("%w: %T", ErrResultMismatch, res)
	}
	return c, nil
}
