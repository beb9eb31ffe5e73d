package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/materiales-api/internal/infrastructure/metrics"
)

func TestPrometheus_Contadores(t *testing.T) {
	m := metrics.New()
	m.ReservationAttempt("reserved")
	m.ReservationAttempt("reserved")
	m.ReservationAttempt("insufficient")
	m.ShortageDetected()
	m.EventPublished("material.shortage", true)
	m.OrderTransition("ORDERED")
	m.ShortageConsumed("duplicate")
	m.PlacementObserved(150*time.Millisecond, true)

	assert.Equal(t, 7, testutil.CollectAndCount(m.Registry(),
		"materiales_reservation_attempts_total",
		"materiales_shortages_detected_total",
		"materiales_events_published_total",
		"materiales_purchase_order_transitions_total",
		"materiales_shortage_events_consumed_total",
		"materiales_placement_duration_seconds",
	), "series: 2 de reservas + 1 por cada otra métrica")
}

func TestPrometheus_Handler(t *testing.T) {
	m := metrics.New()
	m.ObserveHTTP("GET", "/api/materials/:id", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `materiales_http_request_duration_seconds_count{method="GET",route="/api/materials/:id",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPrometheus_InstanciasIndependientes(t *testing.T) {
	a, b := metrics.New(), metrics.New()
	a.ShortageDetected()
	assert.Equal(t, 1, testutil.CollectAndCount(a.Registry(), "materiales_shortages_detected_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(b.Registry(), "materiales_shortages_detected_total"))
}
