package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/materiales-api/internal/application/ports"
)

const namespace = "materiales"

var _ ports.Metrics = (*Prometheus)(nil)

// Prometheus implementa ports.Metrics sobre un registro propio, de modo que varias
// instancias (tests, un proceso por servicio) no choquen en el registro global.
type Prometheus struct {
	registry     *prometheus.Registry
	reservations *prometheus.CounterVec
	shortages    prometheus.Counter
	published    *prometheus.CounterVec
	orders       *prometheus.CounterVec
	placement    *prometheus.HistogramVec
	consumed     *prometheus.CounterVec
	httpRequests *prometheus.HistogramVec
}

// New registra los colectores de la aplicación y los del runtime de Go.
func New() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_attempts_total",
			Help:      "Intentos de reserva por resultado.",
		}, []string{"outcome"}),
		shortages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shortages_detected_total",
			Help:      "Faltantes detectados en consultas de disponibilidad.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Eventos publicados por routing key y resultado.",
		}, []string{"routing_key", "ok"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_order_transitions_total",
			Help:      "Transiciones de órdenes de compra por estado destino.",
		}, []string{"status"}),
		placement: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "placement_duration_seconds",
			Help:      "Duración de la colocación de órdenes ante el proveedor.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"ok"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shortage_events_consumed_total",
			Help:      "Eventos de faltante consumidos por resultado.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.reservations, m.shortages, m.published, m.orders, m.placement, m.consumed, m.httpRequests,
	)
	return m
}

// Registry expone el registro (tests y colectores adicionales).
func (m *Prometheus) Registry() *prometheus.Registry { return m.registry }

// Handler sirve el formato de exposición de Prometheus.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Prometheus) ReservationAttempt(outcome string) {
	m.reservations.WithLabelValues(outcome).Inc()
}

func (m *Prometheus) ShortageDetected() { m.shortages.Inc() }

func (m *Prometheus) EventPublished(routingKey string, ok bool) {
	m.published.WithLabelValues(routingKey, strconv.FormatBool(ok)).Inc()
}

func (m *Prometheus) OrderTransition(status string) {
	m.orders.WithLabelValues(status).Inc()
}

func (m *Prometheus) PlacementObserved(d time.Duration, ok bool) {
	m.placement.WithLabelValues(strconv.FormatBool(ok)).Observe(d.Seconds())
}

func (m *Prometheus) ShortageConsumed(outcome string) {
	m.consumed.WithLabelValues(outcome).Inc()
}

// ObserveHTTP registra una petición; route es el patrón de la ruta, no la URL.
func (m *Prometheus) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
