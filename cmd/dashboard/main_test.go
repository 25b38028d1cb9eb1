package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naiba/uptime/model"
	"github.com/naiba/uptime/service/dao"
)

func TestEngineEndToEnd(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	conf, err := model.ReadInConfig("", nil)
	require.NoError(t, err)
	conf.Probe.Timeout = 5 * time.Second

	store, err := dao.Open("sqlite", filepath.Join(t.TempDir(), "uptime.db"), false)
	require.NoError(t, err)
	defer store.Close()

	svc := newService(conf, store, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.scheduler.Start(ctx))
	defer func() { <-svc.scheduler.Stop().Done() }()

	m, err := svc.admin.CreateMonitor(ctx, &model.MonitorForm{
		Name: "local",
		URL:  target.URL,
		Type: model.MonitorTypeHTTP,
	})
	require.NoError(t, err)

	// 新建的监控立即执行一次
	require.Eventually(t, func() bool {
		got, err := store.FindMonitor(ctx, m.ID)
		return err == nil && got.Status == model.MonitorStatusUp
	}, 5*time.Second, 50*time.Millisecond)

	checks, err := store.ListChecks(ctx, m.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, checks)
	assert.Equal(t, http.StatusOK, checks[0].HTTPStatusCode)

	stats, err := store.FindStats(ctx, m.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalUpChecks, uint64(1))

	metrics := svc.admin.GetMetrics()
	assert.Equal(t, 1, metrics.Jobs)
}
