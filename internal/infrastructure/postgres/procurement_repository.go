package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
)

var (
	_ repository.SupplierRepository         = (*SupplierRepo)(nil)
	_ repository.SupplierMaterialRepository = (*SupplierMaterialRepo)(nil)
	_ repository.PurchaseOrderRepository    = (*PurchaseOrderRepo)(nil)
	_ repository.ProcessedEventRepository   = (*ProcessedEventRepo)(nil)
)

// ── Proveedores ──────────────────────────────────────────────────────────────

const supplierColumns = `s.id, s.name, s.email, s.phone, s.rating, s.is_active, s.created_at`

// SupplierRepo implementación de SupplierRepository sobre PostgreSQL.
type SupplierRepo struct {
	q Querier
}

// NewSupplierRepository construye el adaptador.
func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

// Create persiste un proveedor.
func (r *SupplierRepo) Create(ctx context.Context, s *entity.Supplier) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO suppliers (id, name, email, phone, rating, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Name, s.Email, s.Phone, s.Rating, s.IsActive, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

// GetByID obtiene un proveedor por ID.
func (r *SupplierRepo) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	err := r.q.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers s WHERE s.id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Rating, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}

// List proveedores ordenados por nombre.
func (r *SupplierRepo) List(ctx context.Context, activeOnly bool) ([]*entity.Supplier, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+supplierColumns+` FROM suppliers s WHERE (NOT $1 OR s.is_active) ORDER BY s.name`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return collectSuppliers(rows)
}

// SetActive activa o desactiva un proveedor.
func (r *SupplierRepo) SetActive(ctx context.Context, id string, active bool) error {
	cmd, err := r.q.Exec(ctx, `UPDATE suppliers SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set supplier active: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListActiveForMaterial proveedores activos con oferta para el material.
func (r *SupplierRepo) ListActiveForMaterial(ctx context.Context, materialID string) ([]*entity.Supplier, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers s
		JOIN supplier_materials sm ON sm.supplier_id = s.id
		WHERE sm.material_id = $1 AND s.is_active
		ORDER BY s.name`, materialID)
	if err != nil {
		return nil, fmt.Errorf("list suppliers for material: %w", err)
	}
	return collectSuppliers(rows)
}

func collectSuppliers(rows pgx.Rows) ([]*entity.Supplier, error) {
	defer rows.Close()
	var list []*entity.Supplier
	for rows.Next() {
		var s entity.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Rating, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// ── Ofertas ──────────────────────────────────────────────────────────────────

const offerSelect = `
	SELECT sm.id, sm.supplier_id, sm.material_id, m.name, sm.unit_price, sm.updated_at
	FROM supplier_materials sm
	JOIN materials m ON m.id = sm.material_id`

// SupplierMaterialRepo implementación de SupplierMaterialRepository sobre PostgreSQL.
type SupplierMaterialRepo struct {
	q Querier
}

// NewSupplierMaterialRepository construye el adaptador.
func NewSupplierMaterialRepository(q Querier) *SupplierMaterialRepo {
	return &SupplierMaterialRepo{q: q}
}

// Upsert crea o reemplaza la oferta; conserva el ID de una oferta existente.
func (r *SupplierMaterialRepo) Upsert(ctx context.Context, o *entity.SupplierMaterial) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO supplier_materials (id, supplier_id, material_id, unit_price, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (supplier_id, material_id)
		DO UPDATE SET unit_price = EXCLUDED.unit_price, updated_at = EXCLUDED.updated_at
		RETURNING id`,
		o.ID, o.SupplierID, o.MaterialID, o.UnitPrice, o.UpdatedAt,
	).Scan(&o.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("upsert supplier material: %w", err)
	}
	return nil
}

// Get obtiene la oferta del proveedor para el material.
func (r *SupplierMaterialRepo) Get(ctx context.Context, supplierID, materialID string) (*entity.SupplierMaterial, error) {
	var o entity.SupplierMaterial
	err := r.q.QueryRow(ctx, offerSelect+` WHERE sm.supplier_id = $1 AND sm.material_id = $2`, supplierID, materialID).
		Scan(&o.ID, &o.SupplierID, &o.MaterialID, &o.MaterialName, &o.UnitPrice, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier material: %w", err)
	}
	return &o, nil
}

// ListBySupplier ofertas de un proveedor por precio.
func (r *SupplierMaterialRepo) ListBySupplier(ctx context.Context, supplierID string) ([]*entity.SupplierMaterial, error) {
	return r.list(ctx, offerSelect+` WHERE sm.supplier_id = $1 ORDER BY sm.unit_price`, supplierID)
}

// ListByMaterial ofertas para un material por precio.
func (r *SupplierMaterialRepo) ListByMaterial(ctx context.Context, materialID string) ([]*entity.SupplierMaterial, error) {
	return r.list(ctx, offerSelect+` WHERE sm.material_id = $1 ORDER BY sm.unit_price`, materialID)
}

func (r *SupplierMaterialRepo) list(ctx context.Context, query string, arg string) ([]*entity.SupplierMaterial, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list supplier materials: %w", err)
	}
	defer rows.Close()
	var list []*entity.SupplierMaterial
	for rows.Next() {
		var o entity.SupplierMaterial
		if err := rows.Scan(&o.ID, &o.SupplierID, &o.MaterialID, &o.MaterialName, &o.UnitPrice, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier material: %w", err)
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

// ── Órdenes de compra ────────────────────────────────────────────────────────

const orderColumns = `id, material_id, material_name, supplier_id, supplier_name, quantity, unit_price, total_price,
	status, external_order_id, triggered_by_request_id, expected_delivery, failure_reason, created_at, updated_at`

// PurchaseOrderRepo implementación de PurchaseOrderRepository sobre PostgreSQL.
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador.
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

// Create persiste una orden.
func (r *PurchaseOrderRepo) Create(ctx context.Context, o *entity.PurchaseOrder) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO purchase_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.MaterialID, o.MaterialName, o.SupplierID, o.SupplierName, o.Quantity, o.UnitPrice, o.TotalPrice,
		o.Status, nullIfEmpty(o.ExternalOrderID), nullIfEmpty(o.TriggeredByRequestID), o.ExpectedDelivery,
		nullIfEmpty(o.FailureReason), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	return nil
}

// GetByID obtiene una orden por ID.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	return o, nil
}

// UpdateIfStatus actualiza la orden solo si su estado persistido es expectedStatus (compare-and-set).
func (r *PurchaseOrderRepo) UpdateIfStatus(ctx context.Context, o *entity.PurchaseOrder, expectedStatus string) (bool, error) {
	cmd, err := r.q.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $3, external_order_id = $4, expected_delivery = $5, failure_reason = $6, updated_at = $7
		WHERE id = $1 AND status = $2`,
		o.ID, expectedStatus, o.Status, nullIfEmpty(o.ExternalOrderID), o.ExpectedDelivery,
		nullIfEmpty(o.FailureReason), o.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update purchase order: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// List órdenes filtradas, más recientes primero.
func (r *PurchaseOrderRepo) List(ctx context.Context, f repository.PurchaseOrderFilter) ([]*entity.PurchaseOrder, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.SupplierID != "" {
		add("supplier_id = $%d", f.SupplierID)
	}
	if f.MaterialID != "" {
		add("material_id = $%d", f.MaterialID)
	}
	query := `SELECT ` + orderColumns + ` FROM purchase_orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.PurchaseOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func scanOrder(row pgx.Row) (*entity.PurchaseOrder, error) {
	var (
		o                           entity.PurchaseOrder
		externalID, requestID, fail *string
	)
	err := row.Scan(&o.ID, &o.MaterialID, &o.MaterialName, &o.SupplierID, &o.SupplierName, &o.Quantity,
		&o.UnitPrice, &o.TotalPrice, &o.Status, &externalID, &requestID, &o.ExpectedDelivery, &fail,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if externalID != nil {
		o.ExternalOrderID = *externalID
	}
	if requestID != nil {
		o.TriggeredByRequestID = *requestID
	}
	if fail != nil {
		o.FailureReason = *fail
	}
	return &o, nil
}

// ── Eventos procesados ───────────────────────────────────────────────────────

// ProcessedEventRepo registro de eventos consumidos (tabla processed_events).
type ProcessedEventRepo struct {
	q Querier
}

// NewProcessedEventRepository construye el adaptador.
func NewProcessedEventRepository(q Querier) *ProcessedEventRepo {
	return &ProcessedEventRepo{q: q}
}

// Claim inserta key; false si otro consumidor ya la registró.
func (r *ProcessedEventRepo) Claim(ctx context.Context, key string) (bool, error) {
	cmd, err := r.q.Exec(ctx,
		`INSERT INTO processed_events (event_key, processed_at) VALUES ($1, now()) ON CONFLICT (event_key) DO NOTHING`, key)
	if err != nil {
		return false, fmt.Errorf("claim processed event: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// Release elimina key para permitir el reintento.
func (r *ProcessedEventRepo) Release(ctx context.Context, key string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM processed_events WHERE event_key = $1`, key); err != nil {
		return fmt.Errorf("release processed event: %w", err)
	}
	return nil
}
