package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/procurement"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
	"github.com/jhoicas/materiales-api/internal/infrastructure/excel"
)

// OrderHandler órdenes de compra y lista de reposición (protegido).
type OrderHandler struct {
	orders        *procurement.OrderManager
	replenishment *procurement.ReplenishmentUseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(orders *procurement.OrderManager, replenishment *procurement.ReplenishmentUseCase) *OrderHandler {
	return &OrderHandler{orders: orders, replenishment: replenishment}
}

// Create godoc
// @Summary      Crear orden de compra manual
// @Description  Coloca la orden ante el proveedor indicado. Si el proveedor la rechaza la orden
// @Description  queda CANCELLED y se responde 502 con el resultado.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "material_id, supplier_id, quantity, request_id"
// @Success      201   {object}  dto.ProcurementResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.MaterialID == "" || in.SupplierID == "" || in.Quantity <= 0 {
		return validation(c, "material_id, supplier_id y quantity > 0 son requeridos")
	}
	res, err := h.orders.CreateOrder(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, domain.ErrPlacementFailure) && res != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"code":    "PLACEMENT_FAILED",
				"message": err.Error(),
				"result":  res,
			})
		}
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// List godoc
// @Summary      Listar órdenes de compra
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        status       query  string  false  "PENDING, ORDERED, DELIVERED o CANCELLED"
// @Param        supplier_id  query  string  false  "Filtrar por proveedor"
// @Param        material_id  query  string  false  "Filtrar por material"
// @Param        limit        query  int     false  "Límite (default 20, máx 100)"
// @Param        offset       query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.PurchaseOrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	list, err := h.orders.ListOrders(c.UserContext(), repository.PurchaseOrderFilter{
		Status:     c.Query("status"),
		SupplierID: c.Query("supplier_id"),
		MaterialID: c.Query("material_id"),
		Limit:      c.QueryInt("limit", 0),
		Offset:     c.QueryInt("offset", 0),
	})
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.PurchaseOrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, dto.ToPurchaseOrderResponse(o))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener orden de compra
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	o, err := h.orders.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToPurchaseOrderResponse(o))
}

// Deliver godoc
// @Summary      Registrar entrega
// @Description  ORDERED → DELIVERED y suma la cantidad a la existencia (movimiento PURCHASE).
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/deliver [post]
func (h *OrderHandler) Deliver(c *fiber.Ctx) error {
	o, err := h.orders.MarkDelivered(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToPurchaseOrderResponse(o))
}

// Cancel godoc
// @Summary      Cancelar orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	o, err := h.orders.Cancel(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToPurchaseOrderResponse(o))
}

// PDF godoc
// @Summary      Descargar orden en PDF
// @Tags         orders
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/pdf [get]
func (h *OrderHandler) PDF(c *fiber.Ctx) error {
	data, filename, err := h.orders.OrderPDF(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return sendFile(c, "application/pdf", filename, data)
}

// Replenishment godoc
// @Summary      Lista de reposición
// @Description  Materiales bajo umbral con cantidad sugerida y mejor oferta, por prioridad.
// @Description  format=xlsx descarga la lista como libro Excel.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        format  query  string  false  "json (default) o xlsx"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/replenishment [get]
func (h *OrderHandler) Replenishment(c *fiber.Ctx) error {
	list, err := h.replenishment.GenerateReplenishmentList(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	if c.Query("format") == "xlsx" {
		data, err := excel.ReplenishmentWorkbook(list)
		if err != nil {
			return writeError(c, err)
		}
		return sendFile(c, excel.ContentType, fmt.Sprintf("reposicion-%s.xlsx", time.Now().Format("20060102")), data)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}
