package entity

import "time"

// ShortageEvent se publica cuando lo solicitado supera lo disponible.
// El formato JSON es el contrato con los consumidores del canal.
type ShortageEvent struct {
	MaterialID           string  `json:"material_id"`
	MaterialName         string  `json:"material_name"`
	CurrentQuantity      int64   `json:"current_quantity"`
	RequestedQuantity    int64   `json:"requested_quantity"`
	Shortage             int64   `json:"shortage"`
	TriggeredByRequestID *string `json:"triggered_by_request_id"`
	Timestamp            string  `json:"timestamp"`
}

// DedupKey identifica el evento para consumo idempotente (material + timestamp).
func (e ShortageEvent) DedupKey() string {
	return e.MaterialID + "|" + e.Timestamp
}

// RequestID devuelve el request que originó el faltante o "".
func (e ShortageEvent) RequestID() string {
	if e.TriggeredByRequestID == nil {
		return ""
	}
	return *e.TriggeredByRequestID
}

// StockUpdatedEvent notificación opcional tras un ajuste de cantidad.
type StockUpdatedEvent struct {
	MaterialID   string `json:"material_id"`
	MaterialName string `json:"material_name"`
	NewQuantity  int64  `json:"new_quantity"`
	Delta        int64  `json:"delta"`
	Reason       string `json:"reason"`
	Timestamp    string `json:"timestamp"`
}

// EventTimestamp formatea t en ISO-8601 (UTC, precisión de microsegundos).
func EventTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z07:00")
}
