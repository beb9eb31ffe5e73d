package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/domain"
)

// ReservationHandler reservas de stock para solicitudes de obra (protegido).
type ReservationHandler struct {
	ledger   *inventory.LedgerUseCase
	requests *inventory.RequestService
}

// NewReservationHandler construye el handler.
func NewReservationHandler(ledger *inventory.LedgerUseCase, requests *inventory.RequestService) *ReservationHandler {
	return &ReservationHandler{ledger: ledger, requests: requests}
}

// Create godoc
// @Summary      Reservar stock
// @Description  Sin stock suficiente responde 409 con la disponibilidad y dispara el abastecimiento.
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReserveRequest  true  "material_id, quantity, request_id"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  map[string]interface{}
// @Router       /api/reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.MaterialID == "" || in.RequestID == "" || in.Quantity <= 0 {
		return validation(c, "material_id, request_id y quantity > 0 son requeridos")
	}
	res, avail, err := h.requests.ReserveOrSignal(c.UserContext(), in.MaterialID, in.Quantity, in.RequestID)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) && avail != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"code":         "INSUFFICIENT_STOCK",
				"message":      "stock insuficiente; se solicitó abastecimiento",
				"availability": avail,
			})
		}
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToReservationResponse(res))
}

// GetByID godoc
// @Summary      Obtener reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id} [get]
func (h *ReservationHandler) GetByID(c *fiber.Ctx) error {
	r, err := h.ledger.GetReservation(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToReservationResponse(r))
}

// ListByRequest godoc
// @Summary      Reservas de una solicitud
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        request_id  query  string  true  "Solicitud de obra"
// @Success      200  {array}   dto.ReservationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reservations [get]
func (h *ReservationHandler) ListByRequest(c *fiber.Ctx) error {
	requestID := c.Query("request_id")
	if requestID == "" {
		return validation(c, "request_id es requerido")
	}
	list, err := h.ledger.ListReservations(c.UserContext(), requestID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.ReservationResponse, 0, len(list))
	for _, r := range list {
		out = append(out, dto.ToReservationResponse(r))
	}
	return c.JSON(out)
}

// Release godoc
// @Summary      Liberar reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/release [post]
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	if err := h.ledger.Release(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Fulfill godoc
// @Summary      Despachar reserva
// @Description  Descuenta la cantidad de la existencia y registra un movimiento CONSUMPTION.
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/fulfill [post]
func (h *ReservationHandler) Fulfill(c *fiber.Ctx) error {
	r, err := h.ledger.Fulfill(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToReservationResponse(r))
}
