package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/config"
	"github.com/yannabadie/appia-dev/internal/router"
)

type stubStatus struct{ n int }

func (s stubStatus) Completed() int { return s.n }

type stubReview struct{ waiting bool }

func (s stubReview) WaitingForHumanReview() bool { return s.waiting }

type stubHistory struct{ records []router.PerformanceRecord }

func (s stubHistory) Recent(n int) []router.PerformanceRecord {
	if n > len(s.records) {
		n = len(s.records)
	}
	return s.records[:n]
}

func testServer(t *testing.T, status StatusSource, review ReviewSource, history HistorySource) *httptest.Server {
	t.Helper()
	s := New(config.ServerConfig{Port: 0}, status, review, history, zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := testServer(t, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatus(t *testing.T) {
	history := stubHistory{records: []router.PerformanceRecord{
		{
			Model:    "claude-sonnet-4-20250514",
			TaskType: router.TaskCoding,
			Success:  1.0,
			Latency:  1500 * time.Millisecond,
			Cost:     0.0042,
		},
	}}
	ts := testServer(t, stubStatus{n: 7}, stubReview{waiting: true}, history)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 7, body.CyclesCompleted)
	assert.True(t, body.WaitingForHumanReview)
	require.Len(t, body.RecentPerformance, 1)
	assert.Equal(t, "claude-sonnet-4-20250514", body.RecentPerformance[0].Model)
	assert.Equal(t, "coding", body.RecentPerformance[0].TaskType)
	assert.Equal(t, int64(1500), body.RecentPerformance[0].LatencyMS)
}

func TestStatusWithNilSources(t *testing.T) {
	ts := testServer(t, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Zero(t, body.CyclesCompleted)
	assert.False(t, body.WaitingForHumanReview)
	assert.Empty(t, body.RecentPerformance)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := testServer(t, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
