package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// HttpClient 通知渠道共用的客户端
var HttpClient *http.Client

func init() {
	HttpClient = NewHttpClient(time.Minute, false)
}

type _httpTransport struct {
	SkipVerify bool
}

func httpTransport(conf _httpTransport) *http.Transport {
	return &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: conf.SkipVerify},
		Proxy:           http.ProxyFromEnvironment,
		// 每次探测都重新建连，保证 dns/tcp/tls 阶段耗时可被测量
		DisableKeepAlives: true,
	}
}

// NewHttpClient 构造带超时的客户端，probe 与通知渠道共用
func NewHttpClient(timeout time.Duration, skipVerify bool) *http.Client {
	return &http.Client{
		Transport: httpTransport(_httpTransport{SkipVerify: skipVerify}),
		Timeout:   timeout,
	}
}
