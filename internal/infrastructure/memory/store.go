// Package memory implementa los puertos de persistencia en memoria.
// Cada Store es estado explícito e inyectado; se usa en pruebas y con STORAGE=memory.
package memory

import (
	"sync"
	"time"

	"github.com/jhoicas/materiales-api/internal/domain/entity"
)

// Store agrupa las tablas en memoria. Las lecturas ven siempre un estado confirmado completo,
// por lo que nunca observan reserved > quantity.
type Store struct {
	mu           sync.RWMutex
	materials    map[string]entity.Material
	reservations map[string]entity.Reservation
	movements    []entity.StockMovement
	suppliers    map[string]entity.Supplier
	offers       map[string]entity.SupplierMaterial // supplierID|materialID
	orders       map[string]entity.PurchaseOrder
	processed    map[string]time.Time
	users        map[string]entity.User

	locks *keyedMutex
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		materials:    make(map[string]entity.Material),
		reservations: make(map[string]entity.Reservation),
		suppliers:    make(map[string]entity.Supplier),
		offers:       make(map[string]entity.SupplierMaterial),
		orders:       make(map[string]entity.PurchaseOrder),
		processed:    make(map[string]time.Time),
		users:        make(map[string]entity.User),
		locks:        newKeyedMutex(),
	}
}

func offerKey(supplierID, materialID string) string {
	return supplierID + "|" + materialID
}
