package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/materiales-api/internal/application/dto"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCatalogCSV lee el catálogo exportado como CSV con las mismas columnas que la hoja Excel.
// Acepta UTF-8 (con o sin BOM) o Windows-1252, y separador coma o punto y coma.
func ParseCatalogCSV(data []byte) ([]dto.CreateMaterialRequest, error) {
	var r io.Reader = bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))
	if !utf8.Valid(data) {
		r = transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder())
	}

	cr := csv.NewReader(r)
	cr.Comma = detectSeparator(data)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("excel: archivo inválido: %w", err)
	}
	return catalogFromRows(rows, "el CSV")
}

// detectSeparator usa ';' si la primera línea lo tiene y no tiene comas (Excel en español).
func detectSeparator(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.ContainsRune(first, ';') && !bytes.ContainsRune(first, ',') {
		return ';'
	}
	return ','
}
