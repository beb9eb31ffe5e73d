package ports

import "time"

// Metrics puerto de instrumentación de la aplicación (Prometheus en infraestructura).
type Metrics interface {
	ReservationAttempt(outcome string)
	ShortageDetected()
	EventPublished(routingKey string, ok bool)
	OrderTransition(status string)
	PlacementObserved(d time.Duration, ok bool)
	ShortageConsumed(outcome string)
}

// NopMetrics implementación vacía para pruebas y herramientas.
type NopMetrics struct{}

func (NopMetrics) ReservationAttempt(string)             {}
func (NopMetrics) ShortageDetected()                     {}
func (NopMetrics) EventPublished(string, bool)           {}
func (NopMetrics) OrderTransition(string)                {}
func (NopMetrics) PlacementObserved(time.Duration, bool) {}
func (NopMetrics) ShortageConsumed(string)               {}
