package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"25":         "25",
		"25000":      "25.000",
		"1000000":    "1.000.000",
		"5000.00":    "5.000,00",
		"-1234.5":    "-1.234,5",
		"999":        "999",
		"1234567.89": "1.234.567,89",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(in), in)
	}
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "3F2A9C1B", shortID("3f2a9c1b-0000-4000-8000-000000000000"))
	assert.Equal(t, "ABC", shortID("abc"))
}

func TestGenerateOrderPDF(t *testing.T) {
	eta := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	order := &entity.PurchaseOrder{
		ID:               "3f2a9c1b-0000-4000-8000-000000000000",
		MaterialID:       "mat-1",
		MaterialName:     "Cemento gris 50kg",
		SupplierID:       "sup-1",
		SupplierName:     "Ferretería Central",
		Quantity:         40,
		UnitPrice:        decimal.NewFromInt(125),
		Status:           entity.OrderOrdered,
		ExternalOrderID:  "STUB-1A2B3C4D",
		ExpectedDelivery: &eta,
		CreatedAt:        time.Now(),
	}
	order.CalculateTotal()

	gen := NewMarotoPDFGenerator("")
	doc, err := gen.GenerateOrderPDF(context.Background(), order, &entity.Supplier{ID: "sup-1", Name: "Ferretería Central", Rating: 4.5})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")), "debe ser un PDF")

	_, err = gen.GenerateOrderPDF(context.Background(), order, nil)
	require.NoError(t, err, "sin proveedor usa el nombre guardado")
}
