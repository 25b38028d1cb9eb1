package probe

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/naiba/uptime/model"
)

const PagespeedEndpoint = "https://pagespeedonline.googleapis.com/pagespeedonline/v5/runPagespeed"

var errNoLighthouse = errors.New("lighthouseResult missing from payload")

func (p *Prober) pagespeedURL(target string) string {
	q := url.Values{}
	q.Set("url", target)
	for _, c := range []string{"seo", "accessibility", "best-practices", "performance"} {
		q.Add("category", c)
	}
	q.Set("key", p.pagespeedKey)
	return p.pagespeedEndpoint + "?" + q.Encode()
}

func (p *Prober) requestPagespeed(ctx context.Context, m *model.Monitor) (Result, error) {
	if p.pagespeedKey == "" {
		return nil, ErrMissingAPIKey
	}
	o, _ := p.reach(ctx, m.URL, nil)

	r, err := p.get(ctx, p.pagespeedURL(m.URL), nil)
	if err != nil {
		return nil, fmt.Errorf("pagespeed api: %w", err)
	}
	if !r.ok() {
		return nil, fmt.Errorf("pagespeed api: %d@%s %s", r.code, r.status, string(r.body))
	}
	if len(r.body) == 0 {
		return nil, fmt.Errorf("pagespeed api: %w", ErrEmptyPayload)
	}
	lh, err := parseLighthouse(r.body)
	return &Pagespeed{Outcome: o, Lighthouse: lh, Invalid: err}, nil
}

// parseLighthouse 提取四项评分与五项审计，缺失的评分记为 0
func parseLighthouse(body []byte) (*model.Lighthouse, error) {
	root := gjson.GetBytes(body, "lighthouseResult")
	if !root.IsObject() {
		return nil, errNoLighthouse
	}
	score := func(category string) float64 {
		return root.Get("categories." + category + ".score").Float()
	}
	audit := func(name string) map[string]interface{} {
		a := root.Get("audits." + name)
		if v, ok := a.Value().(map[string]interface{}); ok {
			return v
		}
		return map[string]interface{}{}
	}
	return &model.Lighthouse{
		Accessibility: score("accessibility"),
		BestPractices: score("best-practices"),
		SEO:           score("seo"),
		Performance:   score("performance"),
		Audits: model.LighthouseAudits{
			CLS: audit("cumulative-layout-shift"),
			SI:  audit("speed-index"),
			FCP: audit("first-contentful-paint"),
			LCP: audit("largest-contentful-paint"),
			TBT: audit("total-blocking-time"),
		},
	}, nil
}
