package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildCatalog(t *testing.T, suppliers, offers [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetSheetName("Sheet1", sheetSuppliers))
	_, err := f.NewSheet(sheetOffers)
	require.NoError(t, err)

	put := func(sheet string, rows [][]any) {
		for i, row := range rows {
			cellName, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
		}
	}
	put(sheetSuppliers, append([][]any{{"nombre", "email", "telefono", "calificacion"}}, suppliers...))
	put(sheetOffers, append([][]any{{"proveedor", "material", "unidad", "categoria", "umbral_minimo", "precio_unitario"}}, offers...))

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

// ─────────────────────────────────────────────────────────────────────────────
// Lectura del catálogo
// ─────────────────────────────────────────────────────────────────────────────

func TestReadCatalog_ProveedoresYPrecios(t *testing.T) {
	buf := buildCatalog(t,
		[][]any{{"Ferretería Central", "ventas@central.co", "3001234567", "4,5"}, {"Depósito Norte", "", "", ""}},
		[][]any{
			{"Ferretería Central", "Cemento gris", "kilogram", "Obra gris", 20, "125"},
			{"Depósito Norte", "cemento gris", "kilogram", "Obra gris", 20, "130.50"},
			{"Depósito Norte", "Varilla 1/2", "piece", "Acero", 50, "18000"},
		})

	cat, err := readCatalog(buf)
	require.NoError(t, err)
	require.Len(t, cat.Suppliers, 2)
	assert.Equal(t, 4.5, cat.Suppliers[0].Rating)
	assert.Equal(t, 5.0, cat.Suppliers[1].Rating, "calificación por defecto")
	require.Len(t, cat.Offers, 3)
	assert.Equal(t, "130.5", cat.Offers[1].UnitPrice.String())
	assert.Len(t, cat.materials(), 2, "el material se deduplica sin distinguir mayúsculas")
}

func TestReadCatalog_Errores(t *testing.T) {
	cases := []struct {
		name   string
		offers [][]any
		want   string
	}{
		{"proveedor desconocido", [][]any{{"Otro", "Arena", "cubic-meter", "", 1, "10"}}, "no está en la hoja"},
		{"unidad inválida", [][]any{{"Ferretería Central", "Arena", "bulto", "", 1, "10"}}, "unidad inválidos"},
		{"precio negativo", [][]any{{"Ferretería Central", "Arena", "cubic-meter", "", 1, "-3"}}, "precio"},
		{"umbral inválido", [][]any{{"Ferretería Central", "Arena", "cubic-meter", "", "muchos", "10"}}, "umbral"},
		{"sin precios", nil, "no tiene precios"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := buildCatalog(t, [][]any{{"Ferretería Central"}}, tc.offers)
			_, err := readCatalog(buf)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestReadCatalog_ArchivoInvalido(t *testing.T) {
	_, err := readCatalog(strings.NewReader("no es un xlsx"))
	assert.ErrorContains(t, err, "archivo inválido")
}

// ─────────────────────────────────────────────────────────────────────────────
// Script SQL
// ─────────────────────────────────────────────────────────────────────────────

func TestWriteSeed_IdempotenteYDeterminista(t *testing.T) {
	cat := catalog{
		Suppliers: []supplierRow{{Name: "D'Acero", Rating: 4}},
		Offers:    []offerRow{{Supplier: "D'Acero", Material: "Varilla 1/2", Unit: "piece", MinThreshold: 50}},
	}
	var first, second bytes.Buffer
	require.NoError(t, writeSeed(&first, cat))
	require.NoError(t, writeSeed(&second, cat))
	sql := first.String()

	assert.Equal(t, sql, second.String(), "misma entrada, mismo script")
	assert.True(t, strings.Contains(sql, "-- +goose Up") && strings.Contains(sql, "-- +goose Down"))
	assert.Contains(t, sql, "'D''Acero'", "escapa comillas")
	assert.Contains(t, sql, "ON CONFLICT ((lower(name))) DO NOTHING")
	assert.Contains(t, sql, "0.00 FROM materials")
	assert.Contains(t, sql, seedID("supplier", " d'acero ").String(), "el id no depende de mayúsculas ni espacios")
}
