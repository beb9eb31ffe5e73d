package http

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/infrastructure/excel"
)

const maxCatalogUpload = 5 << 20

// MaterialHandler catálogo, disponibilidad, ajustes e historial de materiales (protegido).
type MaterialHandler struct {
	ledger  *inventory.LedgerUseCase
	checker *inventory.AvailabilityChecker
}

// NewMaterialHandler construye el handler.
func NewMaterialHandler(ledger *inventory.LedgerUseCase, checker *inventory.AvailabilityChecker) *MaterialHandler {
	return &MaterialHandler{ledger: ledger, checker: checker}
}

// Create godoc
// @Summary      Registrar material
// @Tags         materials
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMaterialRequest  true  "name, unit, category, initial_quantity, min_threshold"
// @Success      201   {object}  dto.MaterialResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/materials [post]
func (h *MaterialHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMaterialRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.Name == "" || in.Unit == "" {
		return validation(c, "name y unit son requeridos")
	}
	m, err := h.ledger.CreateMaterial(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToMaterialResponse(m))
}

// Import godoc
// @Summary      Importar catálogo desde Excel o CSV
// @Description  Hoja (o CSV) con columnas name, unit, category, initial_quantity, min_threshold.
// @Description  Los nombres ya registrados se informan como omitidos.
// @Tags         materials
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "archivo .xlsx o .csv"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/materials/import [post]
func (h *MaterialHandler) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return validation(c, "archivo requerido en el campo 'file'")
	}
	if fh.Size > maxCatalogUpload {
		return validation(c, "el archivo supera 5 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return badBody(c)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return badBody(c)
	}
	parse := excel.ParseCatalog
	if strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		parse = excel.ParseCatalogCSV
	}
	items, err := parse(data)
	if err != nil {
		return validation(c, err.Error())
	}

	created := make([]dto.MaterialResponse, 0, len(items))
	skipped := make([]string, 0)
	for _, in := range items {
		m, err := h.ledger.CreateMaterial(c.UserContext(), in)
		switch {
		case err == nil:
			created = append(created, dto.ToMaterialResponse(m))
		case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrInvalidInput):
			skipped = append(skipped, in.Name)
		default:
			return writeError(c, err)
		}
	}
	return c.JSON(fiber.Map{"created": created, "skipped": skipped})
}

// GetByID godoc
// @Summary      Obtener material
// @Tags         materials
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del material"
// @Success      200  {object}  dto.MaterialResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/materials/{id} [get]
func (h *MaterialHandler) GetByID(c *fiber.Ctx) error {
	m, err := h.ledger.GetMaterial(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToMaterialResponse(m))
}

// List godoc
// @Summary      Listar materiales
// @Tags         materials
// @Security     Bearer
// @Produce      json
// @Param        category  query  string  false  "Filtrar por categoría"
// @Param        limit     query  int     false  "Límite (default 20, máx 100)"
// @Param        offset    query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MaterialListResponse
// @Router       /api/materials [get]
func (h *MaterialHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return validation(c, "limit y offset deben ser numéricos")
	}
	page = page.Normalize()
	list, err := h.ledger.ListMaterials(c.UserContext(), c.Query("category"), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MaterialListResponse{
		Items: dto.ToMaterialResponses(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Update godoc
// @Summary      Actualizar datos de catálogo
// @Description  Las cantidades solo cambian por reservas y ajustes.
// @Tags         materials
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del material"
// @Param        body  body  dto.UpdateMaterialRequest  true  "name, unit, category, min_threshold"
// @Success      200   {object}  dto.MaterialResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/materials/{id} [put]
func (h *MaterialHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateMaterialRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.ledger.UpdateMaterial(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToMaterialResponse(m))
}

// CheckAvailability godoc
// @Summary      Verificar disponibilidad
// @Description  Si falta stock publica un evento material.shortage con la cantidad faltante.
// @Tags         materials
// @Security     Bearer
// @Produce      json
// @Param        id          path   string  true   "ID del material"
// @Param        quantity    query  int     true   "Cantidad requerida"
// @Param        request_id  query  string  false  "Solicitud de obra que origina la consulta"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/materials/{id}/availability [get]
func (h *MaterialHandler) CheckAvailability(c *fiber.Ctx) error {
	qty := int64(c.QueryInt("quantity", 0))
	if qty <= 0 {
		return validation(c, "quantity debe ser mayor que cero")
	}
	out, err := h.checker.Check(c.UserContext(), c.Params("id"), qty, c.Query("request_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Adjust godoc
// @Summary      Ajustar existencia
// @Description  delta positivo o negativo; la existencia nunca baja de lo reservado.
// @Tags         materials
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID del material"
// @Param        body  body  dto.AdjustQuantityRequest  true  "delta, reason, reference_id, notes"
// @Success      200   {object}  dto.AdjustQuantityResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/materials/{id}/adjust [post]
func (h *MaterialHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustQuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.Delta == 0 || in.Reason == "" {
		return validation(c, "delta distinto de cero y reason son requeridos")
	}
	notes := in.Notes
	if user := GetUserID(c); user != "" {
		notes = strings.TrimSpace(fmt.Sprintf("%s (usuario %s)", notes, user))
	}
	qty, err := h.ledger.AdjustQuantity(c.UserContext(), inventory.AdjustInput{
		MaterialID:  c.Params("id"),
		Delta:       in.Delta,
		Reason:      in.Reason,
		ReferenceID: in.ReferenceID,
		Notes:       notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.AdjustQuantityResponse{MaterialID: c.Params("id"), NewQuantity: qty})
}

// Movements godoc
// @Summary      Historial de movimientos
// @Tags         materials
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "ID del material"
// @Param        limit  query  int     false  "Máximo de movimientos (default 50)"
// @Success      200  {array}   dto.StockMovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/materials/{id}/movements [get]
func (h *MaterialHandler) Movements(c *fiber.Ctx) error {
	list, err := h.ledger.ListMovements(c.UserContext(), c.Params("id"), c.QueryInt("limit", 50))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStockMovementResponses(list))
}

// LowStock godoc
// @Summary      Materiales bajo umbral
// @Description  format=xlsx descarga el listado como libro Excel.
// @Tags         materials
// @Security     Bearer
// @Produce      json
// @Param        format  query  string  false  "json (default) o xlsx"
// @Success      200  {array}  dto.MaterialResponse
// @Router       /api/materials/low-stock [get]
func (h *MaterialHandler) LowStock(c *fiber.Ctx) error {
	list, err := h.ledger.GetLowStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	items := dto.ToMaterialResponses(list)
	if c.Query("format") != "xlsx" {
		return c.JSON(items)
	}
	data, err := excel.MaterialsWorkbook(items)
	if err != nil {
		return writeError(c, err)
	}
	return sendFile(c, excel.ContentType, fmt.Sprintf("bajo-umbral-%s.xlsx", time.Now().Format("20060102")), data)
}

func sendFile(c *fiber.Ctx, contentType, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}
