package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/utils"
)

const maxBodySize = 10 << 20

type response struct {
	code    int
	status  string
	body    []byte
	timings model.Timings
}

func (r *response) ok() bool {
	return r.code >= 200 && r.code <= 299
}

// phases 记录 httptrace 回调时间点，双栈拨号时回调可能并发
type phases struct {
	mu           sync.Mutex
	start        time.Time
	dnsStart     time.Time
	dnsDone      time.Time
	connectStart time.Time
	connectDone  time.Time
	tlsStart     time.Time
	tlsDone      time.Time
	gotConn      time.Time
	wroteRequest time.Time
	firstByte    time.Time
	end          time.Time
}

func (ph *phases) mark(t *time.Time, keepFirst bool) {
	ph.mu.Lock()
	defer ph.mu.Unlock()
	if keepFirst && !t.IsZero() {
		return
	}
	*t = time.Now()
}

func (ph *phases) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart:             func(httptrace.DNSStartInfo) { ph.mark(&ph.dnsStart, true) },
		DNSDone:              func(httptrace.DNSDoneInfo) { ph.mark(&ph.dnsDone, false) },
		ConnectStart:         func(string, string) { ph.mark(&ph.connectStart, true) },
		ConnectDone:          func(string, string, error) { ph.mark(&ph.connectDone, false) },
		TLSHandshakeStart:    func() { ph.mark(&ph.tlsStart, true) },
		TLSHandshakeDone:     func(tls.ConnectionState, error) { ph.mark(&ph.tlsDone, false) },
		GotConn:              func(httptrace.GotConnInfo) { ph.mark(&ph.gotConn, false) },
		WroteRequest:         func(httptrace.WroteRequestInfo) { ph.mark(&ph.wroteRequest, false) },
		GotFirstResponseByte: func() { ph.mark(&ph.firstByte, false) },
	}
}

func between(from, to time.Time) float64 {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return 0
	}
	return utils.Milliseconds(to.Sub(from))
}

func firstNonZero(ts ...time.Time) time.Time {
	for _, t := range ts {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

func (ph *phases) timings() model.Timings {
	ph.mu.Lock()
	defer ph.mu.Unlock()
	return model.Timings{
		Wait:      between(ph.start, firstNonZero(ph.dnsStart, ph.connectStart, ph.gotConn)),
		DNS:       between(ph.dnsStart, ph.dnsDone),
		TCP:       between(ph.connectStart, ph.connectDone),
		TLS:       between(ph.tlsStart, ph.tlsDone),
		Request:   between(ph.gotConn, ph.wroteRequest),
		FirstByte: between(ph.wroteRequest, ph.firstByte),
		Download:  between(ph.firstByte, ph.end),
		Total:     between(ph.start, ph.end),
	}
}

// get 发起 GET 并读取完整响应体，只有拿不到 HTTP 响应时才返回 error
func (p *Prober) get(ctx context.Context, url string, header http.Header) (*response, error) {
	ph := &phases{}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, ph.trace()), http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}

	ph.start = time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	ph.mark(&ph.end, false)

	return &response{
		code:    resp.StatusCode,
		status:  resp.Status,
		body:    body,
		timings: ph.timings(),
	}, nil
}

func networkFailure(err error) Outcome {
	msg := "Network error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Outcome{
		Status:         model.MonitorStatusDown,
		HTTPStatusCode: model.NetworkErrorCode,
		Message:        msg,
	}
}

func httpOutcome(r *response) Outcome {
	o := Outcome{
		HTTPStatusCode: r.code,
		ResponseTime:   r.timings.Total,
		Timings:        r.timings,
	}
	if r.ok() {
		o.Status = model.MonitorStatusUp
		o.Message = http.StatusText(r.code)
	} else {
		o.Status = model.MonitorStatusDown
		o.Message = fmt.Sprintf("Response code %d (%s)", r.code, http.StatusText(r.code))
	}
	return o
}

// reach 对目标发起一次 GET，返回归一化的观测
func (p *Prober) reach(ctx context.Context, url string, header http.Header) (Outcome, *response) {
	r, err := p.get(ctx, url, header)
	if err != nil {
		return networkFailure(err), nil
	}
	return httpOutcome(r), r
}

func (p *Prober) requestHTTP(ctx context.Context, m *model.Monitor) (Result, error) {
	o, _ := p.reach(ctx, m.URL, nil)
	return &Basic{Outcome: o}, nil
}
