package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/utils"
)

var (
	ErrUnsupportedType = errors.New("unsupported monitor type")
	ErrMissingURL      = errors.New("no URL provided")
	ErrMissingSecret   = errors.New("no secret provided for infrastructure monitor")
	ErrMissingAPIKey   = errors.New("no API key provided for pagespeed monitor")
	ErrEmptyPayload    = errors.New("empty payload")
)

// Outcome 所有类型探测共有的观测结果
type Outcome struct {
	Status         model.MonitorStatus `json:"status"`
	ResponseTime   float64             `json:"responseTime"` // 毫秒
	HTTPStatusCode int                 `json:"httpStatusCode,omitempty"`
	Message        string              `json:"message"`
	Timings        model.Timings       `json:"timings"`
}

// Result 探测结果，只可能是 *Basic、*Infrastructure、*Pagespeed 之一
type Result interface {
	Base() Outcome
	result()
}

type Basic struct {
	Outcome
}

// Infrastructure agent 返回 2xx 时的结果，Payload 为 nil 表示报文无效，原因见 Invalid
type Infrastructure struct {
	Outcome
	Payload *model.CapturePayload `json:"payload,omitempty"`
	Invalid error                 `json:"-"`
}

// Pagespeed Lighthouse 为 nil 表示报文中没有 lighthouseResult，原因见 Invalid
type Pagespeed struct {
	Outcome
	Lighthouse *model.Lighthouse `json:"lighthouse,omitempty"`
	Invalid    error             `json:"-"`
}

func (r *Basic) Base() Outcome          { return r.Outcome }
func (r *Infrastructure) Base() Outcome { return r.Outcome }
func (r *Pagespeed) Base() Outcome      { return r.Outcome }

func (*Basic) result()          {}
func (*Infrastructure) result() {}
func (*Pagespeed) result()      {}

type pingFunc func(ctx context.Context, host string) (alive bool, rtt time.Duration, err error)

type Prober struct {
	client            *http.Client
	timeout           time.Duration
	pagespeedKey      string
	pagespeedEndpoint string
	pingPrivileged    bool
	ping              pingFunc
}

type Option func(*Prober)

func WithTimeout(d time.Duration) Option {
	return func(p *Prober) { p.timeout = d }
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) { p.client = c }
}

func WithPagespeedAPIKey(key string) Option {
	return func(p *Prober) { p.pagespeedKey = key }
}

func WithPagespeedEndpoint(endpoint string) Option {
	return func(p *Prober) { p.pagespeedEndpoint = endpoint }
}

func WithPingPrivileged(privileged bool) Option {
	return func(p *Prober) { p.pingPrivileged = privileged }
}

func New(opts ...Option) *Prober {
	p := &Prober{
		timeout:           30 * time.Second,
		pagespeedEndpoint: PagespeedEndpoint,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = utils.NewHttpClient(p.timeout, false)
	}
	if p.ping == nil {
		p.ping = p.icmpPing
	}
	return p
}

// Probe 按监控类型执行一次探测。目标不可达只体现为 down 结果，
// 返回 error 表示配置或外部分析接口的问题
func (p *Prober) Probe(ctx context.Context, m *model.Monitor) (Result, error) {
	if m.URL == "" {
		return nil, ErrMissingURL
	}
	switch m.Type {
	case model.MonitorTypeHTTP, model.MonitorTypeHTTPS:
		return p.requestHTTP(ctx, m)
	case model.MonitorTypePing:
		return p.requestPing(ctx, m)
	case model.MonitorTypeInfrastructure:
		return p.requestInfrastructure(ctx, m)
	case model.MonitorTypePagespeed:
		return p.requestPagespeed(ctx, m)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, m.Type)
}
