package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Reservas y órdenes de compra.
	ErrAlreadyInactive   = errors.New("la reserva ya no está activa")
	ErrInvalidTransition = errors.New("transición de estado no permitida")

	// Saga de abastecimiento.
	ErrNoSupplier       = errors.New("no hay proveedor activo para el material")
	ErrPlacementFailure = errors.New("el proveedor rechazó o no confirmó la orden")
	ErrPublishFailure   = errors.New("no se pudo publicar el evento")
)
