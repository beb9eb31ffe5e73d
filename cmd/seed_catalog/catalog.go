package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

const (
	sheetSuppliers = "Proveedores"
	sheetOffers    = "Ofertas"
)

// namespace fijo para que los UUID del seed sean los mismos en cada generación.
var seedNamespace = uuid.MustParse("6f1c2a3e-9b7d-4c55-8e21-0d4a7b9c3f10")

type supplierRow struct {
	Name   string
	Email  string
	Phone  string
	Rating float64
}

type offerRow struct {
	Supplier     string
	Material     string
	Unit         string
	Category     string
	MinThreshold int64
	UnitPrice    decimal.Decimal
}

type catalog struct {
	Suppliers []supplierRow
	Offers    []offerRow
}

// materials materiales únicos (por nombre, sin distinguir mayúsculas) en orden alfabético.
func (c catalog) materials() []offerRow {
	seen := make(map[string]offerRow)
	for _, o := range c.Offers {
		key := strings.ToLower(o.Material)
		if _, ok := seen[key]; !ok {
			seen[key] = o
		}
	}
	out := make([]offerRow, 0, len(seen))
	for _, o := range seen {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Material) < strings.ToLower(out[j].Material) })
	return out
}

func readCatalog(r io.Reader) (catalog, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return catalog{}, fmt.Errorf("archivo inválido: %w", err)
	}
	defer func() { _ = f.Close() }()

	var cat catalog
	suppliers, err := f.GetRows(sheetSuppliers)
	if err != nil {
		return catalog{}, fmt.Errorf("hoja %s: %w", sheetSuppliers, err)
	}
	known := make(map[string]bool)
	for i, row := range dataRows(suppliers) {
		s := supplierRow{Name: cell(row, 0), Email: cell(row, 1), Phone: cell(row, 2), Rating: 5}
		if s.Name == "" {
			continue
		}
		if v := cell(row, 3); v != "" {
			rating, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
			if err != nil || rating < 0 || rating > 5 {
				return catalog{}, fmt.Errorf("%s fila %d: calificación %q fuera de 0..5", sheetSuppliers, i+2, v)
			}
			s.Rating = rating
		}
		known[strings.ToLower(s.Name)] = true
		cat.Suppliers = append(cat.Suppliers, s)
	}

	offers, err := f.GetRows(sheetOffers)
	if err != nil {
		return catalog{}, fmt.Errorf("hoja %s: %w", sheetOffers, err)
	}
	for i, row := range dataRows(offers) {
		line := i + 2
		o := offerRow{Supplier: cell(row, 0), Material: cell(row, 1), Unit: cell(row, 2), Category: cell(row, 3)}
		if o.Supplier == "" && o.Material == "" {
			continue
		}
		if !known[strings.ToLower(o.Supplier)] {
			return catalog{}, fmt.Errorf("%s fila %d: proveedor %q no está en la hoja %s", sheetOffers, line, o.Supplier, sheetSuppliers)
		}
		if o.Material == "" || !entity.ValidUnit(o.Unit) {
			return catalog{}, fmt.Errorf("%s fila %d: material o unidad inválidos", sheetOffers, line)
		}
		if v := cell(row, 4); v != "" {
			if o.MinThreshold, err = strconv.ParseInt(v, 10, 64); err != nil || o.MinThreshold < 0 {
				return catalog{}, fmt.Errorf("%s fila %d: umbral %q inválido", sheetOffers, line, v)
			}
		}
		if o.UnitPrice, err = decimal.NewFromString(strings.ReplaceAll(cell(row, 5), ",", ".")); err != nil || o.UnitPrice.IsNegative() {
			return catalog{}, fmt.Errorf("%s fila %d: precio %q inválido", sheetOffers, line, cell(row, 5))
		}
		cat.Offers = append(cat.Offers, o)
	}
	if len(cat.Offers) == 0 {
		return catalog{}, fmt.Errorf("la hoja %s no tiene precios", sheetOffers)
	}
	return cat, nil
}

// writeSeed escribe el script. Reejecutarlo no duplica filas: los UUID son deterministas
// y los materiales existentes se resuelven por nombre.
func writeSeed(w io.Writer, cat catalog) error {
	var b strings.Builder
	b.WriteString("-- Catálogo de proveedores y precios\n")
	b.WriteString("-- Generado por cmd/seed_catalog\n\n")
	b.WriteString("-- +goose Up\n")

	b.WriteString("-- 1. Proveedores\n")
	for _, s := range cat.Suppliers {
		fmt.Fprintf(&b, "INSERT INTO suppliers (id, name, email, phone, rating) VALUES ('%s', '%s', '%s', '%s', %s)\n",
			seedID("supplier", s.Name), escapeSQL(s.Name), escapeSQL(s.Email), escapeSQL(s.Phone),
			strconv.FormatFloat(s.Rating, 'f', -1, 64))
		b.WriteString("ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, phone = EXCLUDED.phone, rating = EXCLUDED.rating;\n")
	}

	b.WriteString("\n-- 2. Materiales (sin existencia inicial)\n")
	for _, m := range cat.materials() {
		fmt.Fprintf(&b, "INSERT INTO materials (id, name, unit, category, min_threshold) VALUES ('%s', '%s', '%s', '%s', %d)\n",
			seedID("material", m.Material), escapeSQL(m.Material), m.Unit, escapeSQL(m.Category), m.MinThreshold)
		b.WriteString("ON CONFLICT ((lower(name))) DO NOTHING;\n")
	}

	b.WriteString("\n-- 3. Precios por proveedor\n")
	for _, o := range cat.Offers {
		fmt.Fprintf(&b, "INSERT INTO supplier_materials (id, supplier_id, material_id, unit_price)\n")
		fmt.Fprintf(&b, "SELECT '%s', '%s', id, %s FROM materials WHERE lower(name) = lower('%s')\n",
			seedID("offer", o.Supplier+"|"+o.Material), seedID("supplier", o.Supplier),
			o.UnitPrice.StringFixed(2), escapeSQL(o.Material))
		b.WriteString("ON CONFLICT (supplier_id, material_id) DO UPDATE SET unit_price = EXCLUDED.unit_price, updated_at = now();\n")
	}

	b.WriteString("\n-- +goose Down\n")
	b.WriteString("DELETE FROM supplier_materials WHERE id IN (")
	for i, o := range cat.Offers {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "'%s'", seedID("offer", o.Supplier+"|"+o.Material))
	}
	b.WriteString(");\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func seedID(kind, name string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+strings.ToLower(strings.TrimSpace(name))))
}

// dataRows omite la fila de encabezados.
func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
