package probe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/utils"
)

func (p *Prober) requestInfrastructure(ctx context.Context, m *model.Monitor) (Result, error) {
	if m.Secret == "" {
		return nil, ErrMissingSecret
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+m.Secret)
	header.Set("Accept", "application/json")

	o, r := p.reach(ctx, m.URL, header)
	if r == nil || !r.ok() {
		// agent 不可达按普通的 down 观测处理
		return &Basic{Outcome: o}, nil
	}
	payload, err := decodeCapture(r.body)
	return &Infrastructure{Outcome: o, Payload: payload, Invalid: err}, nil
}

// decodeCapture 校验 agent 报文结构后解码
func decodeCapture(body []byte) (*model.CapturePayload, error) {
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}
	checks := []struct {
		path string
		fn   func([]byte, string) error
	}{
		{"data", utils.GjsonIsObject},
		{"data.cpu.usage_percent", isNumber},
		{"data.memory.usage_percent", isNumber},
		{"data.disk", utils.GjsonOptionalArray},
		{"data.net", utils.GjsonOptionalArray},
		{"capture", utils.GjsonIsObject},
		{"capture.version", isString},
		{"capture.mode", isString},
	}
	for _, c := range checks {
		if err := c.fn(body, c.path); err != nil {
			return nil, fmt.Errorf("%s: %w", c.path, err)
		}
	}
	var payload model.CapturePayload
	if err := utils.Json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func isNumber(body []byte, path string) error {
	_, err := utils.GjsonNumber(body, path)
	return err
}

func isString(body []byte, path string) error {
	_, err := utils.GjsonString(body, path)
	return err
}
