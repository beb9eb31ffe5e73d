package excel

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/materiales-api/internal/application/dto"
)

func TestReplenishmentWorkbook(t *testing.T) {
	data, err := ReplenishmentWorkbook([]dto.ReplenishmentSuggestion{{
		Priority: 1, MaterialName: "Cemento", Unit: "bulto", Available: 5, MinThreshold: 20,
		IdealStock: 30, SuggestedOrderQty: 25, SupplierName: "Ferretería Central",
		UnitPrice: decimal.NewFromInt(125), EstimatedCost: decimal.NewFromInt(3125),
	}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Reposición")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Prioridad", rows[0][0])
	assert.Equal(t, "Cemento", rows[1][1])
	assert.Equal(t, "25", rows[1][7])
	assert.Equal(t, "3125", rows[1][10])
}

func TestMaterialsWorkbook(t *testing.T) {
	data, err := MaterialsWorkbook([]dto.MaterialResponse{{ID: "m1", Name: "Arena", Unit: "m3", Quantity: 10, Available: 10, MinThreshold: 20, IsLowStock: true}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Materiales", "I2")
	require.NoError(t, err)
	assert.Equal(t, "SI", v)
}

func catalogFile(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	header := make([]any, len(CatalogHeader))
	for i, h := range CatalogHeader {
		header[i] = h
	}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))
	return buf.Bytes()
}

func TestParseCatalog(t *testing.T) {
	data := catalogFile(t,
		[]any{"Cemento gris", "bulto", "aglomerantes", 100, 20},
		[]any{"", "", "", "", ""},
		[]any{"Varilla 3/8", "unidad", "acero", "", 50},
	)
	items, err := ParseCatalog(data)
	require.NoError(t, err)
	require.Len(t, items, 2, "la fila vacía se omite")
	assert.Equal(t, dto.CreateMaterialRequest{Name: "Cemento gris", Unit: "bulto", Category: "aglomerantes", InitialQuantity: 100, MinThreshold: 20}, items[0])
	assert.Equal(t, int64(0), items[1].InitialQuantity)
}

func TestParseCatalog_Errores(t *testing.T) {
	_, err := ParseCatalog([]byte("no es un xlsx"))
	assert.ErrorContains(t, err, "archivo inválido")

	_, err = ParseCatalog(catalogFile(t))
	assert.ErrorContains(t, err, "no tiene materiales")

	_, err = ParseCatalog(catalogFile(t, []any{"Arena", "m3", "", "mucho", 1}))
	assert.ErrorContains(t, err, "fila 2")
}

// ─────────────────────────────────────────────────────────────────────────────
// Catálogo CSV
// ─────────────────────────────────────────────────────────────────────────────

func TestParseCatalogCSV_UTF8ConComa(t *testing.T) {
	data := "\xEF\xBB\xBFname,unit,category,initial_quantity,min_threshold\n" +
		"Cemento gris,kilogram,Obra gris,100,20\n" +
		",,,,\n" +
		"Varilla 1/2,piece,Acero,,5\n"
	items, err := ParseCatalogCSV([]byte(data))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Cemento gris", items[0].Name)
	assert.Equal(t, int64(100), items[0].InitialQuantity)
	assert.Equal(t, int64(0), items[1].InitialQuantity)
}

func TestParseCatalogCSV_Windows1252ConPuntoYComa(t *testing.T) {
	// "Baldosín cerámico" codificado en Windows-1252.
	data := []byte("name;unit;category;initial_quantity;min_threshold\r\nBaldos\xEDn cer\xE1mico;square-meter;Acabados;40;10\r\n")
	items, err := ParseCatalogCSV(data)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Baldosín cerámico", items[0].Name)
	assert.Equal(t, "Acabados", items[0].Category)
	assert.Equal(t, int64(10), items[0].MinThreshold)
}

func TestParseCatalogCSV_Errores(t *testing.T) {
	_, err := ParseCatalogCSV([]byte("name,unit\n"))
	assert.ErrorContains(t, err, "no tiene materiales")

	_, err = ParseCatalogCSV([]byte("name,unit,category,initial_quantity,min_threshold\nArena,cubic-meter,,muchos,1\n"))
	assert.ErrorContains(t, err, "fila 2")
}
