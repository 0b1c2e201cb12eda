package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xim"
)

type staticHealth struct {
	status  xim.HealthStatus
	metrics xim.Metrics
}

func (s staticHealth) Health(context.Context) xim.HealthStatus { return s.status }
func (s staticHealth) GetMetrics() xim.Metrics                 { return s.metrics }

func TestHealthRouter(t *testing.T) {
	cases := []struct {
		status string
		code   int
	}{
		{"healthy", http.StatusOK},
		{"degraded", http.StatusOK},
		{"unhealthy", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			src := staticHealth{status: xim.HealthStatus{Status: tc.status, Message: "m"}}
			rec := httptest.NewRecorder()
			newRouter(src, xlog.Default()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tc.code, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body["status"])
			assert.Equal(t, "m", body["message"])
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	src := staticHealth{metrics: xim.Metrics{Sent: 3, Delivered: 2, Failed: 1}}
	rec := httptest.NewRecorder()
	newRouter(src, xlog.Default()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got xim.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, src.metrics, got)

	rec = httptest.NewRecorder()
	newRouter(src, xlog.Default()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
