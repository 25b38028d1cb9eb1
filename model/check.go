package model

import (
	"gorm.io/gorm"

	"github.com/naiba/uptime/pkg/utils"
)

// NetworkErrorCode 网络层失败（未拿到 HTTP 响应）时写入的状态码
const NetworkErrorCode = 5000

// Timings 各阶段耗时，毫秒
type Timings struct {
	Wait      float64 `json:"wait"`
	DNS       float64 `json:"dns"`
	TCP       float64 `json:"tcp"`
	TLS       float64 `json:"tls"`
	Request   float64 `json:"request"`
	FirstByte float64 `json:"firstByte"`
	Download  float64 `json:"download"`
	Total     float64 `json:"total"`
}

// Check 一次探测的观测记录，写入后不再修改
type Check struct {
	Common
	MonitorID      uint64        `gorm:"index" json:"monitor_id"`
	TeamID         uint64        `gorm:"index" json:"team_id"`
	Type           MonitorType   `json:"type"`
	Status         MonitorStatus `json:"status"`
	HTTPStatusCode int           `json:"http_status_code"`
	Message        string        `json:"message"`
	ResponseTime   float64       `json:"response_time"` // 毫秒

	TimingsRaw    string `gorm:"type:text" json:"-"`
	SystemRaw     string `gorm:"type:text" json:"-"`
	CaptureRaw    string `gorm:"type:text" json:"-"`
	LighthouseRaw string `gorm:"type:text" json:"-"`

	Timings    Timings      `gorm:"-" json:"timings"`
	System     *SystemInfo  `gorm:"-" json:"system,omitempty"`
	Capture    *CaptureInfo `gorm:"-" json:"capture,omitempty"`
	Lighthouse *Lighthouse  `gorm:"-" json:"lighthouse,omitempty"`
}

func (c *Check) BeforeSave(tx *gorm.DB) error {
	data, err := utils.Json.Marshal(c.Timings)
	if err != nil {
		return err
	}
	c.TimingsRaw = string(data)
	if c.SystemRaw, err = marshalOptional(c.System); err != nil {
		return err
	}
	if c.CaptureRaw, err = marshalOptional(c.Capture); err != nil {
		return err
	}
	if c.LighthouseRaw, err = marshalOptional(c.Lighthouse); err != nil {
		return err
	}
	return nil
}

func (c *Check) AfterFind(tx *gorm.DB) error {
	if c.TimingsRaw != "" {
		if err := utils.Json.Unmarshal([]byte(c.TimingsRaw), &c.Timings); err != nil {
			return err
		}
	}
	if c.SystemRaw != "" {
		c.System = new(SystemInfo)
		if err := utils.Json.Unmarshal([]byte(c.SystemRaw), c.System); err != nil {
			return err
		}
	}
	if c.CaptureRaw != "" {
		c.Capture = new(CaptureInfo)
		if err := utils.Json.Unmarshal([]byte(c.CaptureRaw), c.Capture); err != nil {
			return err
		}
	}
	if c.LighthouseRaw != "" {
		c.Lighthouse = new(Lighthouse)
		if err := utils.Json.Unmarshal([]byte(c.LighthouseRaw), c.Lighthouse); err != nil {
			return err
		}
	}
	return nil
}

func marshalOptional[T any](v *T) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := utils.Json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Lighthouse pagespeed 评分与选取的五项审计
type Lighthouse struct {
	Accessibility float64          `json:"accessibility"`
	BestPractices float64          `json:"bestPractices"`
	SEO           float64          `json:"seo"`
	Performance   float64          `json:"performance"`
	Audits        LighthouseAudits `json:"audits"`
}

type LighthouseAudits struct {
	CLS map[string]interface{} `json:"cls"`
	SI  map[string]interface{} `json:"si"`
	FCP map[string]interface{} `json:"fcp"`
	LCP map[string]interface{} `json:"lcp"`
	TBT map[string]interface{} `json:"tbt"`
}
