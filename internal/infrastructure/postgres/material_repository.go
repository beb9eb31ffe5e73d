package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
)

var _ repository.MaterialRepository = (*MaterialRepo)(nil)

const materialColumns = `id, name, unit, category, quantity, reserved, min_threshold, created_at, updated_at`

// MaterialRepo implementación del puerto MaterialRepository sobre PostgreSQL (usable con pool o tx).
type MaterialRepo struct {
	q Querier
}

// NewMaterialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMaterialRepository(q Querier) *MaterialRepo {
	return &MaterialRepo{q: q}
}

// Create persiste un material nuevo.
func (r *MaterialRepo) Create(ctx context.Context, m *entity.Material) error {
	query := `
		INSERT INTO materials (` + materialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Name, m.Unit, m.Category, m.Quantity, m.Reserved, m.MinThreshold, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

// GetByID obtiene un material por ID.
func (r *MaterialRepo) GetByID(ctx context.Context, id string) (*entity.Material, error) {
	m, err := scanMaterial(r.q.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}
	return m, nil
}

// GetForUpdate obtiene el material bloqueando la fila hasta el fin de la transacción.
func (r *MaterialRepo) GetForUpdate(ctx context.Context, id string) (*entity.Material, error) {
	m, err := scanMaterial(r.q.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("get material for update: %w", err)
	}
	return m, nil
}

// List lista materiales por nombre, opcionalmente filtrando por categoría.
func (r *MaterialRepo) List(ctx context.Context, category string, limit, offset int) ([]*entity.Material, error) {
	query := `
		SELECT ` + materialColumns + `
		FROM materials
		WHERE ($1 = '' OR category = $1)
		ORDER BY name
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return collectMaterials(rows)
}

// ListLowStock materiales con disponible por debajo del umbral.
func (r *MaterialRepo) ListLowStock(ctx context.Context) ([]*entity.Material, error) {
	query := `
		SELECT ` + materialColumns + `
		FROM materials
		WHERE quantity - reserved < min_threshold
		ORDER BY name`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return collectMaterials(rows)
}

// Update modifica datos de catálogo. Quantity y Reserved no se tocan.
func (r *MaterialRepo) Update(ctx context.Context, m *entity.Material) error {
	query := `
		UPDATE materials SET name = $2, unit = $3, category = $4, min_threshold = $5, updated_at = $6
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query, m.ID, m.Name, m.Unit, m.Category, m.MinThreshold, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update material: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStock escribe las cantidades. El CHECK de la tabla garantiza 0 <= reserved <= quantity.
func (r *MaterialRepo) UpdateStock(ctx context.Context, id string, quantity, reserved int64, updatedAt time.Time) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE materials SET quantity = $2, reserved = $3, updated_at = $4 WHERE id = $1`,
		id, quantity, reserved, updatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return fmt.Errorf("update material stock: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanMaterial(row pgx.Row) (*entity.Material, error) {
	var m entity.Material
	err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.Category, &m.Quantity, &m.Reserved, &m.MinThreshold, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func collectMaterials(rows pgx.Rows) ([]*entity.Material, error) {
	defer rows.Close()
	var list []*entity.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
