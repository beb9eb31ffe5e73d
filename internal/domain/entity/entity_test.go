package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

func TestMaterial_DisponibleYBajoStock(t *testing.T) {
	m := entity.Material{Quantity: 100, Reserved: 90, MinThreshold: 20}
	assert.Equal(t, int64(10), m.Available())
	assert.True(t, m.IsLowStock())

	m.Reserved = 0
	assert.False(t, m.IsLowStock())

	m = entity.Material{Quantity: 5, Reserved: 8}
	assert.Equal(t, int64(0), m.Available(), "nunca negativo")
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{entity.OrderPending, entity.OrderOrdered, true},
		{entity.OrderPending, entity.OrderCancelled, true},
		{entity.OrderOrdered, entity.OrderDelivered, true},
		{entity.OrderOrdered, entity.OrderCancelled, true},
		{entity.OrderPending, entity.OrderDelivered, false},
		{entity.OrderDelivered, entity.OrderCancelled, false},
		{entity.OrderCancelled, entity.OrderOrdered, false},
	}
	for _, tc := range cases {
		t.Run(tc.from+"->"+tc.to, func(t *testing.T) {
			assert.Equal(t, tc.want, entity.CanTransition(tc.from, tc.to))
		})
	}
}

func TestPurchaseOrder_CalculateTotal(t *testing.T) {
	o := entity.PurchaseOrder{Quantity: 3, UnitPrice: decimal.RequireFromString("0.10")}
	o.CalculateTotal()
	assert.Equal(t, "0.30", o.TotalPrice.StringFixed(2), "aritmética decimal exacta")
	assert.False(t, o.IsTerminal())
}

func TestShortageEvent_ClaveDeDeduplicacion(t *testing.T) {
	ev := entity.ShortageEvent{MaterialID: "m1", Timestamp: "2026-10-16T10:00:00.000000Z"}
	assert.Equal(t, "m1|2026-10-16T10:00:00.000000Z", ev.DedupKey())
	assert.Equal(t, "", ev.RequestID())
}

func TestEventTimestamp_UTCMicrosegundos(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	ts := time.Date(2026, 10, 16, 5, 4, 3, 123456789, loc)
	assert.Equal(t, "2026-10-16T10:04:03.123456Z", entity.EventTimestamp(ts))
}
