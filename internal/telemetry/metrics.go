// Package telemetry exposes Prometheus metrics for the booking engine.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wodsched"

// Metrics holds the engine's instruments. A nil *Metrics is valid and
// records nothing, so tests can leave it out.
type Metrics struct {
	registry *prometheus.Registry

	bookingAttempts   *prometheus.CounterVec
	watcherCycles     prometheus.Counter
	watcherPromotions prometheus.Counter
	waitingEntries    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		bookingAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by outcome.",
		}, []string{"outcome"}),
		watcherCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watcher_cycles_total",
			Help:      "Completed waiting-list watcher cycles.",
		}),
		watcherPromotions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watcher_promotions_total",
			Help:      "Successful bookings made from the waiting list.",
		}),
		waitingEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_list_entries",
			Help:      "Waiting-list entries seen in the last watcher cycle.",
		}),
	}
}

func (m *Metrics) RecordAttempt(outcome string) {
	if m == nil {
		return
	}
	m.bookingAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordWatcherCycle(waitingEntries int) {
	if m == nil {
		return
	}
	m.watcherCycles.Inc()
	m.waitingEntries.Set(float64(waitingEntries))
}

func (m *Metrics) RecordPromotion() {
	if m == nil {
		return
	}
	m.watcherPromotions.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
