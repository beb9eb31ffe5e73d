// seed_catalog genera un script SQL (goose) para poblar proveedores, materiales y precios
// a partir de un catálogo Excel con dos hojas:
//
//	Proveedores: nombre | email | telefono | calificacion
//	Ofertas:     proveedor | material | unidad | categoria | umbral_minimo | precio_unitario
//
// Uso: go run ./cmd/seed_catalog [ruta/catalogo.xlsx] [salida.sql]
// Por defecto lee catalogo.xlsx y escribe internal/infrastructure/postgres/migrations/00002_seed_catalog.sql
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	xlsxPath := "catalogo.xlsx"
	if len(os.Args) > 1 {
		xlsxPath = os.Args[1]
	}
	outPath := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations", "00002_seed_catalog.sql")
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}

	f, err := os.Open(xlsxPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir catálogo: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	cat, err := readCatalog(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSeed(out, cat); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d proveedores, %d materiales, %d precios\n",
		outPath, len(cat.Suppliers), len(cat.materials()), len(cat.Offers))
}

// findModuleRoot sube desde el directorio actual hasta encontrar go.mod.
func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}
