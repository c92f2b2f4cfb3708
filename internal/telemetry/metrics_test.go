package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordAndServe(t *testing.T) {
	m := New()
	m.RecordAttempt("booked")
	m.RecordAttempt("booked")
	m.RecordAttempt("failed")
	m.RecordWatcherCycle(3)
	m.RecordPromotion()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `wodsched_booking_attempts_total{outcome="booked"} 2`)
	assert.Contains(t, body, `wodsched_booking_attempts_total{outcome="failed"} 1`)
	assert.Contains(t, body, "wodsched_watcher_cycles_total 1")
	assert.Contains(t, body, "wodsched_watcher_promotions_total 1")
	assert.Contains(t, body, "wodsched_waiting_list_entries 3")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordAttempt("booked")
	m.RecordWatcherCycle(0)
	m.RecordPromotion()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
