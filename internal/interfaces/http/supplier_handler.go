package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/procurement"
)

// SupplierHandler proveedores y sus ofertas por material (protegido).
type SupplierHandler struct {
	directory *procurement.SupplierDirectory
}

// NewSupplierHandler construye el handler.
func NewSupplierHandler(directory *procurement.SupplierDirectory) *SupplierHandler {
	return &SupplierHandler{directory: directory}
}

// Create godoc
// @Summary      Registrar proveedor
// @Tags         suppliers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSupplierRequest  true  "name, email, phone, rating (0..5)"
// @Success      201   {object}  dto.SupplierResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/suppliers [post]
func (h *SupplierHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSupplierRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	s, err := h.directory.CreateSupplier(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToSupplierResponse(s))
}

// List godoc
// @Summary      Listar proveedores
// @Tags         suppliers
// @Security     Bearer
// @Produce      json
// @Param        active  query  bool  false  "Solo activos"
// @Success      200  {array}  dto.SupplierResponse
// @Router       /api/suppliers [get]
func (h *SupplierHandler) List(c *fiber.Ctx) error {
	list, err := h.directory.ListSuppliers(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.SupplierResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.ToSupplierResponse(s))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener proveedor
// @Tags         suppliers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del proveedor"
// @Success      200  {object}  dto.SupplierResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/suppliers/{id} [get]
func (h *SupplierHandler) GetByID(c *fiber.Ctx) error {
	s, err := h.directory.GetSupplier(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToSupplierResponse(s))
}

// SetActive godoc
// @Summary      Activar o desactivar proveedor
// @Description  Un proveedor inactivo no recibe órdenes automáticas.
// @Tags         suppliers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID del proveedor"
// @Param        body  body  dto.SetSupplierActiveRequest  true  "is_active"
// @Success      200   {object}  dto.SupplierResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/suppliers/{id}/active [patch]
func (h *SupplierHandler) SetActive(c *fiber.Ctx) error {
	var in dto.SetSupplierActiveRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	s, err := h.directory.SetActive(c.UserContext(), c.Params("id"), in.IsActive)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToSupplierResponse(s))
}

// AddOffer godoc
// @Summary      Publicar precio de un material
// @Tags         suppliers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del proveedor"
// @Param        body  body  dto.AddOfferRequest  true  "material_id, unit_price"
// @Success      201   {object}  dto.OfferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/suppliers/{id}/materials [post]
func (h *SupplierHandler) AddOffer(c *fiber.Ctx) error {
	var in dto.AddOfferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	o, err := h.directory.AddOffer(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToOfferResponse(o))
}

// ListOffers godoc
// @Summary      Ofertas de un proveedor
// @Tags         suppliers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del proveedor"
// @Success      200  {array}   dto.OfferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/suppliers/{id}/materials [get]
func (h *SupplierHandler) ListOffers(c *fiber.Ctx) error {
	list, err := h.directory.ListOffers(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.OfferResponse, 0, len(list))
	for _, o := range list {
		out = append(out, dto.ToOfferResponse(o))
	}
	return c.JSON(out)
}

// ForMaterial godoc
// @Summary      Proveedores activos de un material
// @Tags         suppliers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del material"
// @Success      200  {array}  dto.SupplierResponse
// @Router       /api/materials/{id}/suppliers [get]
func (h *SupplierHandler) ForMaterial(c *fiber.Ctx) error {
	list, err := h.directory.GetSuppliersForMaterial(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.SupplierResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.ToSupplierResponse(s))
	}
	return c.JSON(out)
}
