// token emite un JWT de desarrollo firmado con JWT_SECRET.
//
// Uso: go run ./cmd/token <usuario> <rol>
// Roles: admin, bodega, compras, obra.
package main

import (
	"fmt"
	"os"

	"github.com/jhoicas/materiales-api/pkg/config"
	"github.com/jhoicas/materiales-api/pkg/jwt"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Uso: token <usuario> <rol>")
		os.Exit(2)
	}
	userID, role := os.Args[1], os.Args[2]
	switch role {
	case jwt.RoleAdmin, jwt.RoleWarehouse, jwt.RoleProcurement, jwt.RoleSite:
	default:
		fmt.Fprintf(os.Stderr, "Rol desconocido: %s\n", role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	token, err := jwt.Generate(cfg.JWT.Secret, userID, role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Firmar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
