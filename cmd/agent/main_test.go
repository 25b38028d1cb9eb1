package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/naiba/uptime/cmd/agent/monitor"
)

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newRouter(&monitor.Collector{Mode: "local", Log: zap.NewNop()}, "tok")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	req.Header.Set("Authorization", "Bearer tok")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	// 与 infrastructure 探测校验的字段保持一致
	for _, path := range []string{"data.cpu.usage_percent", "data.memory.usage_percent", "capture.version", "capture.mode"} {
		assert.True(t, gjson.Get(body, path).Exists(), path)
	}
	assert.Equal(t, "local", gjson.Get(body, "capture.mode").String())
}
