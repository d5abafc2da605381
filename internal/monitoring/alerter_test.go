package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/inspection-cli/internal/config"
)

var snapTime = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10, StaleAfterHours: 24})

	snap := &MetricsSnapshot{
		RunsTotal:      20,
		RunsComplete:   19,
		RunsFailed:     1,
		FailRate:       0.05,
		LastCompleteAt: snapTime.Add(-time.Hour),
		LookbackHours:  24,
		CollectedAt:    snapTime,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		RunsTotal:     20,
		RunsComplete:  12,
		RunsFailed:    8,
		FailRate:      0.4,
		LookbackHours: 24,
		CollectedAt:   snapTime,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRunFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Equal(t, snapTime, alerts[0].Timestamp)
}

func TestAlerter_Evaluate_FailureRateNeedsSample(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{RunsComplete: 1, RunsFailed: 3, FailRate: 0.75}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_EmptyRuns(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5})

	alerts := a.Evaluate(&MetricsSnapshot{RunsComplete: 3, EmptyRuns: 2, LookbackHours: 12})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertEmptyRuns, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "2 complete run(s)")
}

func TestAlerter_Evaluate_StaleData(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 1, StaleAfterHours: 24})

	alerts := a.Evaluate(&MetricsSnapshot{
		LastCompleteAt: snapTime.Add(-30 * time.Hour),
		CollectedAt:    snapTime,
	})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStaleData, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "30h0m0s ago")

	alerts = a.Evaluate(&MetricsSnapshot{CollectedAt: snapTime})
	require.Len(t, alerts, 1)
	assert.Equal(t, "No complete scrape run recorded", alerts[0].Message)
}

func TestAlerter_Evaluate_StaleDisabled(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 1})
	assert.Empty(t, a.Evaluate(&MetricsSnapshot{CollectedAt: snapTime}))
}

func TestAlerter_SendAlerts(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	alerts := []Alert{
		{Type: AlertRunFailureRate, Severity: "high", Message: "a", Timestamp: snapTime},
		{Type: AlertEmptyRuns, Severity: "medium", Message: "b", Timestamp: snapTime},
	}

	assert.Equal(t, 2, a.SendAlerts(context.Background(), alerts))
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertStaleData}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_NoWebhook(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertStaleData}}))
}
