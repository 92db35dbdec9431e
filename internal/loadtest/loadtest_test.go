package loadtest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sh3r4rd/nyx/internal/loadtest"
	"github.com/sh3r4rd/nyx/internal/logging"
	"github.com/sh3r4rd/nyx/internal/model"
)

func TestRun(t *testing.T) {
	var calls atomic.Int64
	var badBodies atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.GenericRequest
		if r.URL.Path != "/process" {
			badBodies.Add(1)
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil &&
			(!strings.HasPrefix(req.Filename, "load-") || !strings.HasPrefix(req.Content, "Load test data ")) {
			badBodies.Add(1)
		}
		if calls.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	report, err := loadtest.Run(context.Background(), loadtest.Options{
		Endpoint: srv.URL + "/",
		Stages: []loadtest.Stage{
			{Duration: 150 * time.Millisecond, Target: 2},
			{Duration: 150 * time.Millisecond, Target: 0},
		},
		Pause:  10 * time.Millisecond,
		Logger: logging.Discard(),
	})
	require.NoError(t, err)

	assert.Zero(t, badBodies.Load())
	assert.Positive(t, report.Requests)
	assert.Equal(t, report.Requests, report.OK+report.ChaosFailures+report.OtherFailures)
	assert.Zero(t, report.OtherFailures)
	assert.InDelta(t, float64(report.ChaosFailures)/float64(report.Requests), report.FailureRate, 1e-9)
}

func TestRunHoldsIdleStage(t *testing.T) {
	start := time.Now()
	report, err := loadtest.Run(context.Background(), loadtest.Options{
		Endpoint: "http://127.0.0.1:1",
		Stages:   []loadtest.Stage{{Duration: 100 * time.Millisecond, Target: 0}},
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Zero(t, report.Requests)
}

func TestRunCountsUnbuildableRequests(t *testing.T) {
	report, err := loadtest.Run(context.Background(), loadtest.Options{
		Endpoint: "http://bad host",
		Stages: []loadtest.Stage{
			{Duration: 10 * time.Millisecond, Target: 1},
			{Duration: 100 * time.Millisecond, Target: 1},
		},
		Pause:    10 * time.Millisecond,
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)

	assert.Positive(t, report.Requests)
	assert.Equal(t, report.Requests, report.OtherFailures)
	assert.InDelta(t, 1.0, report.FailureRate, 1e-9)
}

func TestRunRequiresEndpoint(t *testing.T) {
	_, err := loadtest.Run(context.Background(), loadtest.Options{})
	assert.Error(t, err)
}

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}

	assert.Equal(t, 95*time.Millisecond, loadtest.Percentile(samples, 0.95))
	assert.Equal(t, 100*time.Millisecond, loadtest.Percentile(samples, 1))
	assert.Equal(t, time.Millisecond, loadtest.Percentile(samples, 0))
	assert.Zero(t, loadtest.Percentile(nil, 0.95))
	// input order is preserved
	assert.Equal(t, 100*time.Millisecond, samples[0])
}

func TestViolations(t *testing.T) {
	th := loadtest.DefaultThresholds

	assert.Empty(t, loadtest.Report{FailureRate: 0.5, P95: time.Second}.Violations(th))
	assert.Len(t, loadtest.Report{FailureRate: 0.7, P95: time.Second}.Violations(th), 1)
	assert.Len(t, loadtest.Report{FailureRate: 0.7, P95: 3 * time.Second}.Violations(th), 2)
}
