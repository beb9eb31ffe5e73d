package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/materiales-api/internal/application/auth"
	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/application/procurement"
	"github.com/jhoicas/materiales-api/internal/infrastructure/metrics"
	"github.com/jhoicas/materiales-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Auth          *auth.AuthUseCase
	Ledger        *inventory.LedgerUseCase
	Checker       *inventory.AvailabilityChecker
	Requests      *inventory.RequestService
	Directory     *procurement.SupplierDirectory
	Orders        *procurement.OrderManager
	Replenishment *procurement.ReplenishmentUseCase
	Metrics       *metrics.Prometheus // nil = sin /metrics
	MetricsPath   string
	JWTSecret     string
}

// Roles por grupo de rutas; admin pasa siempre.
var (
	readers      = []string{jwt.RoleWarehouse, jwt.RoleProcurement, jwt.RoleSite}
	warehouse    = []string{jwt.RoleWarehouse}
	requesters   = []string{jwt.RoleWarehouse, jwt.RoleSite}
	procurers    = []string{jwt.RoleProcurement}
	stockPlanner = []string{jwt.RoleWarehouse, jwt.RoleProcurement}
)

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(RequestMetrics(deps.Metrics))
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	// Rutas públicas: se registran antes del middleware de /api.
	authHandler := NewAuthHandler(deps.Auth)
	app.Post("/api/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	api.Get("/auth/me", authHandler.Me)

	// Users (solo admin)
	users := api.Group("/users", RequireRole())
	users.Get("/", authHandler.List)
	users.Post("/", authHandler.Register)
	users.Patch("/:id/active", authHandler.SetActive)

	// Materials
	materials := api.Group("/materials")
	materialHandler := NewMaterialHandler(deps.Ledger, deps.Checker)
	supplierHandler := NewSupplierHandler(deps.Directory)
	materials.Get("/", RequireRole(readers...), materialHandler.List)
	materials.Post("/", RequireRole(warehouse...), materialHandler.Create)
	materials.Post("/import", RequireRole(warehouse...), materialHandler.Import)
	materials.Get("/low-stock", RequireRole(stockPlanner...), materialHandler.LowStock)
	materials.Get("/:id", RequireRole(readers...), materialHandler.GetByID)
	materials.Put("/:id", RequireRole(warehouse...), materialHandler.Update)
	materials.Get("/:id/availability", RequireRole(readers...), materialHandler.CheckAvailability)
	materials.Post("/:id/adjust", RequireRole(warehouse...), materialHandler.Adjust)
	materials.Get("/:id/movements", RequireRole(stockPlanner...), materialHandler.Movements)
	materials.Get("/:id/suppliers", RequireRole(stockPlanner...), supplierHandler.ForMaterial)

	// Reservations
	reservations := api.Group("/reservations")
	reservationHandler := NewReservationHandler(deps.Ledger, deps.Requests)
	reservations.Post("/", RequireRole(requesters...), reservationHandler.Create)
	reservations.Get("/", RequireRole(readers...), reservationHandler.ListByRequest)
	reservations.Get("/:id", RequireRole(readers...), reservationHandler.GetByID)
	reservations.Post("/:id/release", RequireRole(requesters...), reservationHandler.Release)
	reservations.Post("/:id/fulfill", RequireRole(warehouse...), reservationHandler.Fulfill)

	// Suppliers
	suppliers := api.Group("/suppliers")
	suppliers.Get("/", RequireRole(stockPlanner...), supplierHandler.List)
	suppliers.Post("/", RequireRole(procurers...), supplierHandler.Create)
	suppliers.Get("/:id", RequireRole(stockPlanner...), supplierHandler.GetByID)
	suppliers.Patch("/:id/active", RequireRole(procurers...), supplierHandler.SetActive)
	suppliers.Get("/:id/materials", RequireRole(stockPlanner...), supplierHandler.ListOffers)
	suppliers.Post("/:id/materials", RequireRole(procurers...), supplierHandler.AddOffer)

	// Purchase orders
	orders := api.Group("/orders")
	orderHandler := NewOrderHandler(deps.Orders, deps.Replenishment)
	orders.Get("/", RequireRole(stockPlanner...), orderHandler.List)
	orders.Post("/", RequireRole(procurers...), orderHandler.Create)
	orders.Get("/:id", RequireRole(stockPlanner...), orderHandler.GetByID)
	orders.Get("/:id/pdf", RequireRole(procurers...), orderHandler.PDF)
	orders.Post("/:id/deliver", RequireRole(stockPlanner...), orderHandler.Deliver)
	orders.Post("/:id/cancel", RequireRole(procurers...), orderHandler.Cancel)

	api.Get("/replenishment", RequireRole(stockPlanner...), orderHandler.Replenishment)
}
