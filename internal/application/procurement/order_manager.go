package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/materiales-api/internal/application/dto"
	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/application/ports"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
	"github.com/jhoicas/materiales-api/pkg/logger"
)

const (
	defaultPlacementTimeout = 10 * time.Second
	finalizeTimeout         = 5 * time.Second
	tracerName              = "github.com/jhoicas/materiales-api/procurement"
)

// OrderManagerConfig parámetros del ciclo de vida de órdenes.
type OrderManagerConfig struct {
	PlacementTimeout time.Duration // tiempo máximo de una llamada al proveedor
}

// OrderManager es dueño exclusivo de las órdenes de compra:
// PENDING -> ORDERED -> DELIVERED, y PENDING|ORDERED -> CANCELLED.
// No reintenta colocaciones fallidas y no mantiene bloqueos del ledger durante llamadas al proveedor.
type OrderManager struct {
	orders    repository.PurchaseOrderRepository
	directory *SupplierDirectory
	placement SupplierPlacement
	stock     StockAdjuster
	materials MaterialReader
	pdf       OrderPDFGenerator
	metrics   ports.Metrics
	log       *logger.Logger
	timeout   time.Duration
	tracer    trace.Tracer
}

// NewOrderManager construye el gestor de órdenes.
func NewOrderManager(
	orders repository.PurchaseOrderRepository,
	directory *SupplierDirectory,
	placement SupplierPlacement,
	stock StockAdjuster,
	materials MaterialReader,
	pdf OrderPDFGenerator,
	metrics ports.Metrics,
	log *logger.Logger,
	cfg OrderManagerConfig,
) *OrderManager {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.PlacementTimeout <= 0 {
		cfg.PlacementTimeout = defaultPlacementTimeout
	}
	return &OrderManager{
		orders:    orders,
		directory: directory,
		placement: placement,
		stock:     stock,
		materials: materials,
		pdf:       pdf,
		metrics:   metrics,
		log:       log,
		timeout:   cfg.PlacementTimeout,
		tracer:    otel.Tracer(tracerName),
	}
}

// ProcessShortage elige el mejor proveedor para el faltante y coloca una orden por la cantidad faltante.
//   - domain.ErrNoSupplier: ningún proveedor activo ofrece el material; no se crea orden.
//   - domain.ErrPlacementFailure: la orden queda CANCELLED; el resultado describe la orden y el motivo.
func (m *OrderManager) ProcessShortage(ctx context.Context, ev entity.ShortageEvent) (res *dto.ProcurementResult, err error) {
	ctx, span := m.tracer.Start(ctx, "procurement.ProcessShortage", trace.WithAttributes(
		attribute.String("material.id", ev.MaterialID),
		attribute.Int64("material.shortage", ev.Shortage),
	))
	defer func() { endSpan(span, err) }()

	if ev.MaterialID == "" || ev.Shortage <= 0 {
		return nil, domain.ErrInvalidInput
	}
	best, ok, err := m.directory.BestOffer(ctx, ev.MaterialID)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.log.Warn().Str("material_id", ev.MaterialID).Msg("faltante sin proveedor disponible")
		return nil, fmt.Errorf("material %s: %w", ev.MaterialID, domain.ErrNoSupplier)
	}

	name := ev.MaterialName
	if name == "" {
		name = best.Offer.MaterialName
	}
	order := newOrder(ev.MaterialID, name, best.Supplier, best.Offer.UnitPrice, ev.Shortage, ev.RequestID())
	return m.place(ctx, order, best.Supplier)
}

// CreateOrder crea una orden manual a un proveedor elegido. El precio sale de su oferta
// o, si no tiene, de la cotización del proveedor (0 si tampoco cotiza).
func (m *OrderManager) CreateOrder(ctx context.Context, in dto.CreateOrderRequest) (res *dto.ProcurementResult, err error) {
	ctx, span := m.tracer.Start(ctx, "procurement.CreateOrder", trace.WithAttributes(
		attribute.String("material.id", in.MaterialID),
		attribute.String("supplier.id", in.SupplierID),
	))
	defer func() { endSpan(span, err) }()

	if in.MaterialID == "" || in.SupplierID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	material, err := m.materials.GetMaterial(ctx, in.MaterialID)
	if err != nil {
		return nil, err
	}
	supplier, err := m.directory.GetSupplier(ctx, in.SupplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.IsActive {
		return nil, fmt.Errorf("proveedor %s inactivo: %w", supplier.ID, domain.ErrNoSupplier)
	}

	price, err := m.unitPrice(ctx, supplier.ID, material.ID)
	if err != nil {
		return nil, err
	}
	available, err := m.checkAvailability(ctx, supplier.ID, material.ID, in.Quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPlacementFailure, err)
	}
	if !available {
		return nil, fmt.Errorf("%w: el proveedor no tiene disponibilidad", domain.ErrPlacementFailure)
	}

	order := newOrder(material.ID, material.Name, supplier, price, in.Quantity, in.RequestID)
	return m.place(ctx, order, supplier)
}

func newOrder(materialID, materialName string, supplier *entity.Supplier, unitPrice decimal.Decimal, quantity int64, requestID string) *entity.PurchaseOrder {
	now := time.Now().UTC()
	o := &entity.PurchaseOrder{
		ID:                   uuid.New().String(),
		MaterialID:           materialID,
		MaterialName:         materialName,
		SupplierID:           supplier.ID,
		SupplierName:         supplier.Name,
		Quantity:             quantity,
		UnitPrice:            unitPrice,
		Status:               entity.OrderPending,
		TriggeredByRequestID: requestID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	o.CalculateTotal()
	return o
}

// place persiste la orden PENDING, la coloca con timeout y la confirma (ORDERED) o la cancela.
func (m *OrderManager) place(ctx context.Context, order *entity.PurchaseOrder, supplier *entity.Supplier) (*dto.ProcurementResult, error) {
	if err := m.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	m.metrics.OrderTransition(entity.OrderPending)

	conf, perr := m.placeWithTimeout(ctx, supplier, order)

	// El resultado se persiste aunque ctx se haya cancelado durante la colocación:
	// una orden nunca queda PENDING.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if perr != nil || conf == nil || !conf.Success {
		return m.cancelFailed(fctx, order, supplier, failureReason(conf, perr))
	}

	order.Status = entity.OrderOrdered
	order.ExternalOrderID = conf.ExternalOrderID
	order.ExpectedDelivery = conf.EstimatedDelivery
	order.UpdatedAt = time.Now().UTC()
	ok, err := m.orders.UpdateIfStatus(fctx, order, entity.OrderPending)
	if err != nil {
		// Sin ORDERED persistido la orden del proveedor no tiene dueño: se anula y se cancela aquí.
		m.cancelAtSupplier(fctx, supplier, conf.ExternalOrderID)
		order.ExternalOrderID = ""
		order.ExpectedDelivery = nil
		return m.cancelFailed(fctx, order, supplier, "no se pudo confirmar la orden: "+err.Error())
	}
	if !ok {
		// Cancelada mientras se colocaba: se anula también en el proveedor.
		m.cancelAtSupplier(fctx, supplier, conf.ExternalOrderID)
		return nil, fmt.Errorf("orden %s cambió de estado durante la colocación: %w", order.ID, domain.ErrInvalidTransition)
	}
	m.metrics.OrderTransition(entity.OrderOrdered)
	m.log.Info().
		Str("order_id", order.ID).
		Str("supplier", supplier.Name).
		Str("external_order_id", order.ExternalOrderID).
		Int64("quantity", order.Quantity).
		Str("total", order.TotalPrice.StringFixed(2)).
		Msg("orden de compra colocada")
	return toResult(order), nil
}

// cancelFailed pasa la orden PENDING a CANCELLED con el motivo y devuelve ErrPlacementFailure.
func (m *OrderManager) cancelFailed(ctx context.Context, order *entity.PurchaseOrder, supplier *entity.Supplier, reason string) (*dto.ProcurementResult, error) {
	order.Status = entity.OrderCancelled
	order.FailureReason = reason
	order.UpdatedAt = time.Now().UTC()
	if _, err := m.orders.UpdateIfStatus(ctx, order, entity.OrderPending); err != nil {
		return nil, fmt.Errorf("cancelar orden %s: %w", order.ID, err)
	}
	m.metrics.OrderTransition(entity.OrderCancelled)
	m.log.Error().
		Str("order_id", order.ID).
		Str("supplier_id", supplier.ID).
		Str("reason", reason).
		Msg("colocación de orden fallida, orden cancelada")
	return toResult(order), fmt.Errorf("%w: %s", domain.ErrPlacementFailure, reason)
}

type placementOutcome struct {
	conf *Confirmation
	err  error
}

// placeWithTimeout llama al proveedor sin bloquear más allá del timeout, aunque el adaptador ignore ctx.
func (m *OrderManager) placeWithTimeout(ctx context.Context, supplier *entity.Supplier, order *entity.PurchaseOrder) (*Confirmation, error) {
	ctx, span := m.tracer.Start(ctx, "procurement.PlaceOrder", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("supplier.id", supplier.ID),
	))
	defer span.End()

	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan placementOutcome, 1)
	go func() {
		conf, err := m.placement.PlaceOrder(pctx, supplier, PlacementRequest{
			OrderID:      order.ID,
			MaterialID:   order.MaterialID,
			MaterialName: order.MaterialName,
			Quantity:     order.Quantity,
			UnitPrice:    order.UnitPrice,
			TotalPrice:   order.TotalPrice,
		})
		done <- placementOutcome{conf: conf, err: err}
	}()

	var out placementOutcome
	select {
	case out = <-done:
	case <-pctx.Done():
		out.err = fmt.Errorf("tiempo de espera agotado tras %s: %w", m.timeout, pctx.Err())
		go m.cancelLateConfirmation(ctx, supplier, order.ID, done)
	}
	ok := out.err == nil && out.conf != nil && out.conf.Success
	m.metrics.PlacementObserved(time.Since(start), ok)
	if !ok {
		span.SetStatus(codes.Error, failureReason(out.conf, out.err))
	}
	return out.conf, out.err
}

// cancelLateConfirmation espera la respuesta que llegó tarde; si el proveedor aceptó,
// la anula porque la orden local ya quedó CANCELLED.
func (m *OrderManager) cancelLateConfirmation(ctx context.Context, supplier *entity.Supplier, orderID string, done <-chan placementOutcome) {
	out := <-done
	if out.err != nil || out.conf == nil || !out.conf.Success || out.conf.ExternalOrderID == "" {
		return
	}
	m.log.Warn().
		Str("order_id", orderID).
		Str("external_order_id", out.conf.ExternalOrderID).
		Msg("confirmación del proveedor tras el timeout, se anula")
	m.cancelAtSupplier(ctx, supplier, out.conf.ExternalOrderID)
}

func failureReason(conf *Confirmation, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case conf == nil:
		return "sin confirmación del proveedor"
	case conf.Error != "":
		return conf.Error
	default:
		return "el proveedor rechazó la orden"
	}
}

func (m *OrderManager) unitPrice(ctx context.Context, supplierID, materialID string) (decimal.Decimal, error) {
	offer, err := m.directory.Offer(ctx, supplierID, materialID)
	if err != nil {
		return decimal.Zero, err
	}
	if offer != nil {
		return offer.UnitPrice, nil
	}
	qctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	price, err := m.placement.GetPrice(qctx, supplierID, materialID)
	if err != nil {
		m.log.Warn().Err(err).Str("supplier_id", supplierID).Msg("cotización no disponible, precio 0")
		return decimal.Zero, nil
	}
	if price == nil {
		return decimal.Zero, nil
	}
	return *price, nil
}

func (m *OrderManager) checkAvailability(ctx context.Context, supplierID, materialID string, quantity int64) (bool, error) {
	qctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.placement.CheckAvailability(qctx, supplierID, materialID, quantity)
}

// MarkDelivered pasa la orden de ORDERED a DELIVERED y suma su cantidad al ledger con un
// movimiento PURCHASE que referencia la orden. Si una entrega previa quedó sin ajuste
// (falla del ledger), una nueva llamada solo completa el ajuste.
func (m *OrderManager) MarkDelivered(ctx context.Context, orderID string) (o *entity.PurchaseOrder, err error) {
	ctx, span := m.tracer.Start(ctx, "procurement.MarkDelivered", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	o, err = m.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch o.Status {
	case entity.OrderOrdered:
		o.Status = entity.OrderDelivered
		o.UpdatedAt = time.Now().UTC()
		ok, err := m.orders.UpdateIfStatus(ctx, o, entity.OrderOrdered)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("orden %s: %w", orderID, domain.ErrInvalidTransition)
		}
		m.metrics.OrderTransition(entity.OrderDelivered)
	case entity.OrderDelivered:
		recorded, err := m.stock.HasMovement(ctx, o.ID, entity.ReasonPurchase)
		if err != nil {
			return nil, err
		}
		if recorded {
			return nil, fmt.Errorf("orden %s ya entregada: %w", orderID, domain.ErrInvalidTransition)
		}
	default:
		return nil, fmt.Errorf("orden %s en estado %s: %w", orderID, o.Status, domain.ErrInvalidTransition)
	}

	newQty, err := m.stock.AdjustQuantity(ctx, inventory.AdjustInput{
		MaterialID:     o.MaterialID,
		Delta:          o.Quantity,
		Reason:         entity.ReasonPurchase,
		ReferenceID:    o.ID,
		Notes:          "entrega de orden de compra a " + o.SupplierName,
		SkipIfRecorded: true,
	})
	if err != nil {
		m.log.Error().Err(err).Str("order_id", o.ID).Msg("orden entregada sin ajuste de stock")
		return nil, fmt.Errorf("orden %s entregada, ajuste de stock pendiente: %w", o.ID, err)
	}
	m.log.Info().
		Str("order_id", o.ID).
		Str("material_id", o.MaterialID).
		Int64("quantity", o.Quantity).
		Int64("new_quantity", newQty).
		Msg("orden entregada, stock actualizado")
	return o, nil
}

// Cancel cancela una orden PENDING u ORDERED. Si ya fue colocada, se intenta anular en el proveedor.
func (m *OrderManager) Cancel(ctx context.Context, orderID string) (*entity.PurchaseOrder, error) {
	o, err := m.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(o.Status, entity.OrderCancelled) {
		return nil, fmt.Errorf("orden %s en estado %s: %w", orderID, o.Status, domain.ErrInvalidTransition)
	}
	prev := o.Status
	o.Status = entity.OrderCancelled
	o.FailureReason = "cancelada manualmente"
	o.UpdatedAt = time.Now().UTC()
	ok, err := m.orders.UpdateIfStatus(ctx, o, prev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("orden %s: %w", orderID, domain.ErrInvalidTransition)
	}
	m.metrics.OrderTransition(entity.OrderCancelled)

	if prev == entity.OrderOrdered && o.ExternalOrderID != "" {
		if supplier, err := m.directory.GetSupplier(ctx, o.SupplierID); err == nil {
			m.cancelAtSupplier(ctx, supplier, o.ExternalOrderID)
		}
	}
	m.log.Info().Str("order_id", o.ID).Str("previous_status", prev).Msg("orden cancelada")
	return o, nil
}

// cancelAtSupplier anulación best-effort en el proveedor; una falla solo se registra.
func (m *OrderManager) cancelAtSupplier(ctx context.Context, supplier *entity.Supplier, externalOrderID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()
	ok, err := m.placement.CancelOrder(cctx, supplier, externalOrderID)
	if err != nil || !ok {
		m.log.Warn().Err(err).
			Str("supplier_id", supplier.ID).
			Str("external_order_id", externalOrderID).
			Msg("el proveedor no confirmó la anulación")
	}
}

// GetOrder obtiene una orden por ID.
func (m *OrderManager) GetOrder(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	o, err := m.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// ListOrders lista órdenes con filtros opcionales.
func (m *OrderManager) ListOrders(ctx context.Context, f repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	page := dto.PageRequest{Limit: f.Limit, Offset: f.Offset}.Normalize()
	f.Limit, f.Offset = page.Limit, page.Offset
	return m.orders.List(ctx, f)
}

// OrderPDF genera el documento de la orden para enviarlo al proveedor.
// Las órdenes PENDING aún no tienen número externo y devuelven ErrInvalidInput.
func (m *OrderManager) OrderPDF(ctx context.Context, orderID string) (pdfBytes []byte, filename string, err error) {
	if m.pdf == nil {
		return nil, "", errors.New("pdf: generador no configurado")
	}
	o, err := m.GetOrder(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	if o.Status == entity.OrderPending {
		return nil, "", fmt.Errorf("%w: la orden aún no fue colocada", domain.ErrInvalidInput)
	}
	supplier, err := m.directory.GetSupplier(ctx, o.SupplierID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener proveedor: %w", err)
	}
	pdfBytes, err = m.pdf.GenerateOrderPDF(ctx, o, supplier)
	if err != nil {
		return nil, "", err
	}
	return pdfBytes, fmt.Sprintf("orden-compra-%s.pdf", o.ID[:8]), nil
}

func toResult(o *entity.PurchaseOrder) *dto.ProcurementResult {
	return &dto.ProcurementResult{
		OrderID:       o.ID,
		SupplierName:  o.SupplierName,
		EstimatedCost: o.TotalPrice,
		Status:        o.Status,
		FailureReason: o.FailureReason,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
