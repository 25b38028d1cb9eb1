package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRunHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	err := run(context.Background(), probeCliParam{URL: srv.URL, Type: "http", Timeout: 5 * time.Second}, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, "down", gjson.Get(out, "status").String())
	assert.Equal(t, int64(http.StatusServiceUnavailable), gjson.Get(out, "http_status_code").Int())
	assert.True(t, gjson.Get(out, "timings.total").Exists())
}

func TestRunRejectsInvalidMonitor(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, run(context.Background(), probeCliParam{URL: "http://x", Type: "smtp"}, &buf))
	assert.Error(t, run(context.Background(), probeCliParam{URL: "http://x", Type: "infrastructure"}, &buf))
	assert.Error(t, run(context.Background(), probeCliParam{URL: "http://x", Type: "pagespeed"}, &buf))
	assert.Zero(t, buf.Len())
}
