package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(nil)

	m.IncPoll(OutcomeSuccess)
	m.IncPoll(OutcomeSuccess)
	m.IncPoll(OutcomeFailure)
	m.IncFailure("missing_key")
	m.IncNotification(ResultSent)
	m.IncNotification(ResultSkipped)
	m.SetCursor(1700000000)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("missing_key")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues(ResultSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues(ResultSkipped)))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.cursor))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncPoll(OutcomeSuccess)
		m.IncFailure("fetch_failure")
		m.IncNotification(ResultFailed)
		m.SetCursor(1)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_SharedRegistryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.IncPoll(OutcomeSuccess)
	second.IncPoll(OutcomeSuccess)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.polls.WithLabelValues(OutcomeSuccess)))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.IncPoll(OutcomeSuccess)
	m.IncFailure("parse_failure")

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `homeworkbot_polls_total{outcome="success"} 1`), text)
	assert.True(t, strings.Contains(text, `homeworkbot_failures_total{kind="parse_failure"} 1`), text)
}
