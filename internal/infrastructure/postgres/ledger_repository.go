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

var (
	_ repository.ReservationRepository   = (*ReservationRepo)(nil)
	_ repository.StockMovementRepository = (*StockMovementRepo)(nil)
)

// ── Reservas ─────────────────────────────────────────────────────────────────

const reservationColumns = `id, material_id, request_id, quantity, status, created_at, fulfilled_at`

// ReservationRepo implementación del puerto ReservationRepository sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

// Create persiste una reserva.
func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO reservations (`+reservationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.ID, res.MaterialID, nullIfEmpty(res.RequestID), res.Quantity, res.Status, res.CreatedAt, res.FulfilledAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetByID obtiene una reserva por ID.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*entity.Reservation, error) {
	res, err := scanReservation(r.q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// GetForUpdate obtiene la reserva bloqueando la fila.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	res, err := scanReservation(r.q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("get reservation for update: %w", err)
	}
	return res, nil
}

// UpdateStatus cambia el estado de la reserva.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id, status string, fulfilledAt *time.Time) error {
	cmd, err := r.q.Exec(ctx, `UPDATE reservations SET status = $2, fulfilled_at = $3 WHERE id = $1`, id, status, fulfilledAt)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByRequest reservas de una solicitud en orden de creación.
func (r *ReservationRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.Reservation, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE request_id = $1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}

// SumActive suma las reservas ACTIVE del material.
func (r *ReservationRepo) SumActive(ctx context.Context, materialID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM reservations WHERE material_id = $1 AND status = $2`,
		materialID, entity.ReservationActive,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum active reservations: %w", err)
	}
	return sum, nil
}

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var (
		res       entity.Reservation
		requestID *string
	)
	err := row.Scan(&res.ID, &res.MaterialID, &requestID, &res.Quantity, &res.Status, &res.CreatedAt, &res.FulfilledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if requestID != nil {
		res.RequestID = *requestID
	}
	return &res, nil
}

// ── Movimientos ──────────────────────────────────────────────────────────────

// StockMovementRepo implementación append-only del puerto StockMovementRepository.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create agrega un movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, mov *entity.StockMovement) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_movements (id, material_id, delta, reason, reference_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		mov.ID, mov.MaterialID, mov.Delta, mov.Reason, nullIfEmpty(mov.ReferenceID), mov.Notes, mov.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// ListByMaterial movimientos del material, más recientes primero. limit <= 0 trae todos.
func (r *StockMovementRepo) ListByMaterial(ctx context.Context, materialID string, limit int) ([]*entity.StockMovement, error) {
	query := `
		SELECT id, material_id, delta, reason, reference_id, notes, created_at
		FROM stock_movements
		WHERE material_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []any{materialID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var (
			mv  entity.StockMovement
			ref *string
		)
		if err := rows.Scan(&mv.ID, &mv.MaterialID, &mv.Delta, &mv.Reason, &ref, &mv.Notes, &mv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		if ref != nil {
			mv.ReferenceID = *ref
		}
		list = append(list, &mv)
	}
	return list, rows.Err()
}

// ExistsByReference indica si hay un movimiento con esa referencia y razón.
func (r *StockMovementRepo) ExistsByReference(ctx context.Context, referenceID, reason string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM stock_movements WHERE reference_id = $1 AND reason = $2)`,
		referenceID, reason,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists stock movement: %w", err)
	}
	return exists, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
