package entity

import (
	"strings"
	"time"
)

// Roles de usuario. Deben coincidir con el claim role del JWT.
const (
	RoleAdmin       = "admin"
	RoleWarehouse   = "bodega"
	RoleProcurement = "compras"
	RoleSite        = "obra"
)

// User usuario local de la API (bodega, compras, obra o admin).
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt, nunca la contraseña en claro
	Name         string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidRole indica si role es uno de los roles conocidos.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleWarehouse, RoleProcurement, RoleSite:
		return true
	}
	return false
}

// NormalizeEmail email en minúsculas y sin espacios.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
