package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/pkg/utils"
	"github.com/naiba/uptime/service/check"
	"github.com/naiba/uptime/service/probe"
)

type probeCliParam struct {
	URL            string
	Type           string
	Secret         string
	APIKey         string
	Timeout        time.Duration
	PingPrivileged bool
}

func main() {
	var p probeCliParam
	flag.StringVarP(&p.URL, "url", "u", "", "探测目标")
	flag.StringVarP(&p.Type, "type", "t", string(model.MonitorTypeHTTP), "http|https|ping|infrastructure|pagespeed")
	flag.StringVar(&p.Secret, "secret", "", "infrastructure agent 的 token")
	flag.StringVar(&p.APIKey, "api-key", os.Getenv("UPTIME_PAGESPEED_API_KEY"), "PageSpeed API key")
	flag.DurationVar(&p.Timeout, "timeout", 30*time.Second, "探测超时")
	flag.BoolVar(&p.PingPrivileged, "privileged", false, "使用 raw socket 发送 ICMP")
	flag.Parse()

	if err := run(context.Background(), p, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run 执行一次探测并以 Check 的形式输出 JSON
func run(ctx context.Context, p probeCliParam, w io.Writer) error {
	m := &model.Monitor{
		Name:   p.URL,
		URL:    p.URL,
		Type:   model.MonitorType(p.Type),
		Secret: p.Secret,
	}
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return err
	}

	prober := probe.New(
		probe.WithTimeout(p.Timeout),
		probe.WithPagespeedAPIKey(p.APIKey),
		probe.WithPingPrivileged(p.PingPrivileged),
	)
	res, err := prober.Probe(ctx, m)
	if err != nil {
		return err
	}
	c, err := check.Build(m, res)
	if err != nil {
		return err
	}
	c.CreatedAt = time.Now()
	out, err := utils.Json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
