// Package pdf genera la representación impresa de una orden de compra a proveedor.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + N° Orden      │  Estado + Fecha            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  PROVEEDOR: Nombre / Email / Tel / Calificación             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Material | P.Unit | Subtotal                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL                                                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: N° externo + entrega estimada + QR de referencia    │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/materiales-api/internal/application/procurement"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 170, Green: 30, Blue: 30}
)

var statusLabels = map[string]string{
	entity.OrderPending:   "PENDIENTE",
	entity.OrderOrdered:   "COLOCADA",
	entity.OrderDelivered: "ENTREGADA",
	entity.OrderCancelled: "CANCELADA",
}

// ── Generator ─────────────────────────────────────────────────────────────────

var _ procurement.OrderPDFGenerator = (*MarotoPDFGenerator)(nil)

// MarotoPDFGenerator implementa procurement.OrderPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	company string
}

// NewMarotoPDFGenerator construye el generador; company aparece como emisor de la orden.
func NewMarotoPDFGenerator(company string) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{company: nonEmpty(company, "Materiales de Construcción")}
}

// GenerateOrderPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateOrderPDF(
	_ context.Context,
	order *entity.PurchaseOrder,
	supplier *entity.Supplier,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Orden de compra "+shortID(order.ID), true).
		WithAuthor(g.company, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(order, g.company))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(supplierRow(order, supplier))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(detailRow(order))

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(order))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(order)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(order *entity.PurchaseOrder, company string) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(company, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("ORDEN DE COMPRA N° "+shortID(order.ID), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(nonEmpty(statusLabels[order.Status], order.Status), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1, Color: statusColor(order.Status),
			}),
			text.New("Fecha: "+order.CreatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 10, Color: colorGray,
			}),
		),
	)
}

// supplierRow datos del proveedor; si ya no existe se usa el nombre guardado en la orden.
func supplierRow(order *entity.PurchaseOrder, supplier *entity.Supplier) core.Row {
	name := order.SupplierName
	contact := "—"
	if supplier != nil {
		name = supplier.Name
		contact = fmt.Sprintf("Email: %s   |   Tel: %s   |   Calificación: %.1f/5",
			nonEmpty(supplier.Email, "—"),
			nonEmpty(supplier.Phone, "—"),
			supplier.Rating,
		)
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("PROVEEDOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(name, order.SupplierID), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(contact, props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 2, align.Center),
		h("Material", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Subtotal", 3, align.Right),
	)
}

func detailRow(order *entity.PurchaseOrder) core.Row {
	return row.New(7).Add(
		col.New(2).Add(text.New(
			fmt.Sprintf("%d", order.Quantity),
			props.Text{Size: 8, Align: align.Center, Top: 1},
		)),
		col.New(5).Add(text.New(
			nonEmpty(order.MaterialName, order.MaterialID),
			props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
		)),
		col.New(2).Add(text.New(
			"$"+formatMoney(order.UnitPrice.StringFixed(2)),
			props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
		)),
		col.New(3).Add(text.New(
			"$"+formatMoney(order.TotalPrice.StringFixed(2)),
			props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
		)),
	)
}

func totalRow(order *entity.PurchaseOrder) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 2,
		})),
		col.New(3).Add(text.New("$"+formatMoney(order.TotalPrice.StringFixed(2)), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 2,
		})),
	)
}

// footerRows referencia externa, entrega estimada, motivo de falla y QR con el id de la orden.
func footerRows(order *entity.PurchaseOrder) []core.Row {
	var lines []string
	if order.ExternalOrderID != "" {
		lines = append(lines, "N° de orden del proveedor: "+order.ExternalOrderID)
	}
	if order.ExpectedDelivery != nil {
		lines = append(lines, "Entrega estimada: "+order.ExpectedDelivery.Format("02/01/2006"))
	}
	if order.TriggeredByRequestID != "" {
		lines = append(lines, "Originada por la solicitud: "+order.TriggeredByRequestID)
	}
	if order.FailureReason != "" {
		lines = append(lines, "Motivo: "+order.FailureReason)
	}

	return []core.Row{
		row.New(36).Add(
			col.New(3).Add(code.NewQr(order.ID, props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(
				text.New(strings.Join(lines, "\n"), props.Text{Size: 8, Top: 3, Left: 3, Color: colorGray}),
			),
		),
		row.New(8).Add(col.New(12).Add(
			text.New("Documento generado automáticamente. Conserve este documento como soporte de la compra.",
				props.Text{Size: 6.5, Color: colorGray, Top: 2}),
		)),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func statusColor(status string) *props.Color {
	if status == entity.OrderCancelled {
		return colorAlert
	}
	return colorPrimary
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney inserta puntos de miles en la parte entera y coma decimal.
// Ej: "25000.50" → "25.000,50", "1000000" → "1.000.000"
func formatMoney(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	n := len(intPart)
	buf := make([]byte, 0, n+n/3+len(frac)+2)
	if neg {
		buf = append(buf, '-')
	}
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	if hasFrac {
		buf = append(buf, ',')
		buf = append(buf, frac...)
	}
	return string(buf)
}
