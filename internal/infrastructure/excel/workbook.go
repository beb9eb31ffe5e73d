// Package excel exporta listados a .xlsx e importa el catálogo de materiales desde una hoja.
package excel

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/materiales-api/internal/application/dto"
)

// ContentType tipo MIME de los libros generados.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CatalogHeader columnas esperadas en la hoja de catálogo (en este orden).
var CatalogHeader = []string{"name", "unit", "category", "initial_quantity", "min_threshold"}

// ReplenishmentWorkbook genera la lista de reposición en una hoja.
func ReplenishmentWorkbook(items []dto.ReplenishmentSuggestion) ([]byte, error) {
	header := []any{
		"Prioridad", "Material", "Categoría", "Unidad", "Disponible", "Umbral",
		"Stock ideal", "Cantidad sugerida", "Proveedor", "Precio unitario", "Costo estimado",
	}
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		unitPrice, _ := it.UnitPrice.Float64()
		cost, _ := it.EstimatedCost.Float64()
		rows = append(rows, []any{
			it.Priority, it.MaterialName, it.Category, it.Unit, it.Available, it.MinThreshold,
			it.IdealStock, it.SuggestedOrderQty, it.SupplierName, unitPrice, cost,
		})
	}
	return write("Reposición", header, rows)
}

// MaterialsWorkbook genera un listado de materiales con sus valores derivados.
func MaterialsWorkbook(items []dto.MaterialResponse) ([]byte, error) {
	header := []any{"ID", "Material", "Unidad", "Categoría", "Existencia", "Reservado", "Disponible", "Umbral", "Bajo umbral"}
	rows := make([][]any, 0, len(items))
	for _, m := range items {
		low := "NO"
		if m.IsLowStock {
			low = "SI"
		}
		rows = append(rows, []any{m.ID, m.Name, m.Unit, m.Category, m.Quantity, m.Reserved, m.Available, m.MinThreshold, low})
	}
	return write("Materiales", header, rows)
}

// ParseCatalog lee la hoja activa con columnas CatalogHeader. Las filas vacías se omiten;
// una fila con cantidades no numéricas es un error con su número de fila.
func ParseCatalog(data []byte) ([]dto.CreateMaterialRequest, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("excel: archivo inválido: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("excel: leer filas: %w", err)
	}
	return catalogFromRows(rows, fmt.Sprintf("la hoja %q", sheet))
}

// catalogFromRows convierte filas (con encabezado) en solicitudes de alta. Omite filas sin nombre.
func catalogFromRows(rows [][]string, source string) ([]dto.CreateMaterialRequest, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("excel: %s no tiene materiales", source)
	}
	if len(rows[0]) < 2 {
		return nil, fmt.Errorf("excel: encabezado inválido, se esperan columnas %s", strings.Join(CatalogHeader, ", "))
	}

	out := make([]dto.CreateMaterialRequest, 0, len(rows)-1)
	for i, r := range rows[1:] {
		line := i + 2
		cell := func(idx int) string {
			if idx < len(r) {
				return strings.TrimSpace(r[idx])
			}
			return ""
		}
		if cell(0) == "" {
			continue
		}
		qty, err := parseInt(cell(3))
		if err != nil {
			return nil, fmt.Errorf("excel: fila %d: initial_quantity: %w", line, err)
		}
		threshold, err := parseInt(cell(4))
		if err != nil {
			return nil, fmt.Errorf("excel: fila %d: min_threshold: %w", line, err)
		}
		out = append(out, dto.CreateMaterialRequest{
			Name:            cell(0),
			Unit:            cell(1),
			Category:        cell(2),
			InitialQuantity: qty,
			MinThreshold:    threshold,
		})
	}
	return out, nil
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func write(sheetName string, header []any, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, sheetName); err != nil {
		return nil, fmt.Errorf("excel: nombrar hoja: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("excel: encabezado: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("excel: celda: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &r); err != nil {
			return nil, fmt.Errorf("excel: fila %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("excel: escribir libro: %w", err)
	}
	return buf.Bytes(), nil
}
