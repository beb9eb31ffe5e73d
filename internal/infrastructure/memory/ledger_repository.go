package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner                 = (*TxRunner)(nil)
	_ repository.MaterialRepository      = (*MaterialRepo)(nil)
	_ repository.ReservationRepository   = (*ReservationRepo)(nil)
	_ repository.StockMovementRepository = (*StockMovementRepo)(nil)
)

// ── Transacción ──────────────────────────────────────────────────────────────

type stockUpdate struct {
	quantity, reserved int64
	updatedAt          time.Time
}

// tx acumula escrituras y las confirma juntas. Los materiales leídos con GetForUpdate
// quedan bloqueados hasta commit o rollback.
type tx struct {
	s            *Store
	held         []string
	created      map[string]entity.Material
	stock        map[string]stockUpdate
	reservations map[string]entity.Reservation
	movements    []entity.StockMovement
}

func newTx(s *Store) *tx {
	return &tx{
		s:            s,
		created:      make(map[string]entity.Material),
		stock:        make(map[string]stockUpdate),
		reservations: make(map[string]entity.Reservation),
	}
}

func (t *tx) lock(materialID string) {
	for _, id := range t.held {
		if id == materialID {
			return
		}
	}
	t.s.locks.Lock(materialID)
	t.held = append(t.held, materialID)
}

func (t *tx) release() {
	for _, id := range t.held {
		t.s.locks.Unlock(id)
	}
	t.held = nil
}

func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range t.created {
		if s.nameTakenLocked(m.Name, m.ID) {
			return domain.ErrDuplicate
		}
	}
	for id := range t.stock {
		if _, ok := s.materials[id]; !ok {
			return domain.ErrNotFound
		}
	}

	for id, m := range t.created {
		s.materials[id] = m
	}
	for id, u := range t.stock {
		m := s.materials[id]
		m.Quantity, m.Reserved, m.UpdatedAt = u.quantity, u.reserved, u.updatedAt
		s.materials[id] = m
	}
	for id, r := range t.reservations {
		s.reservations[id] = r
	}
	s.movements = append(s.movements, t.movements...)
	return nil
}

// TxRunner implementación en memoria de inventory.TxRunner.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn con repos atados a una transacción; confirma si fn no devuelve error.
func (r *TxRunner) Run(ctx context.Context, fn func(
	materials repository.MaterialRepository,
	reservations repository.ReservationRepository,
	movements repository.StockMovementRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(r.s)
	defer t.release()

	if err := fn(
		&MaterialRepo{s: r.s, tx: t},
		&ReservationRepo{s: r.s, tx: t},
		&StockMovementRepo{s: r.s, tx: t},
	); err != nil {
		return err
	}
	return t.commit()
}

// ── Materiales ───────────────────────────────────────────────────────────────

// MaterialRepo implementación en memoria de MaterialRepository.
type MaterialRepo struct {
	s  *Store
	tx *tx
}

// NewMaterialRepository construye el repositorio fuera de transacción (lecturas y catálogo).
func NewMaterialRepository(s *Store) *MaterialRepo {
	return &MaterialRepo{s: s}
}

func (s *Store) nameTakenLocked(name, exceptID string) bool {
	for id, m := range s.materials {
		if id != exceptID && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

// Create persiste un material nuevo. El nombre es único (sin distinguir mayúsculas).
func (r *MaterialRepo) Create(_ context.Context, m *entity.Material) error {
	if r.tx != nil {
		r.s.mu.RLock()
		taken := r.s.nameTakenLocked(m.Name, m.ID)
		r.s.mu.RUnlock()
		for id, c := range r.tx.created {
			if id != m.ID && strings.EqualFold(c.Name, m.Name) {
				taken = true
			}
		}
		if taken {
			return domain.ErrDuplicate
		}
		r.tx.created[m.ID] = *m
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.nameTakenLocked(m.Name, m.ID) {
		return domain.ErrDuplicate
	}
	r.s.materials[m.ID] = *m
	return nil
}

// GetByID obtiene un material; dentro de una tx ve sus propias escrituras.
func (r *MaterialRepo) GetByID(_ context.Context, id string) (*entity.Material, error) {
	if r.tx != nil {
		if m, ok := r.tx.created[id]; ok {
			return r.withStaged(m), nil
		}
	}
	r.s.mu.RLock()
	m, ok := r.s.materials[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.withStaged(m), nil
}

func (r *MaterialRepo) withStaged(m entity.Material) *entity.Material {
	if r.tx != nil {
		if u, ok := r.tx.stock[m.ID]; ok {
			m.Quantity, m.Reserved, m.UpdatedAt = u.quantity, u.reserved, u.updatedAt
		}
	}
	return &m
}

// GetForUpdate bloquea el material hasta el fin de la transacción.
func (r *MaterialRepo) GetForUpdate(ctx context.Context, id string) (*entity.Material, error) {
	if r.tx != nil {
		r.tx.lock(id)
	}
	return r.GetByID(ctx, id)
}

// List lista materiales ordenados por nombre con filtro opcional de categoría.
func (r *MaterialRepo) List(_ context.Context, category string, limit, offset int) ([]*entity.Material, error) {
	r.s.mu.RLock()
	out := make([]*entity.Material, 0, len(r.s.materials))
	for _, m := range r.s.materials {
		if category != "" && !strings.EqualFold(m.Category, category) {
			continue
		}
		out = append(out, &m)
	}
	r.s.mu.RUnlock()
	sortByName(out)
	return paginate(out, limit, offset), nil
}

// ListLowStock materiales con disponible menor al umbral.
func (r *MaterialRepo) ListLowStock(_ context.Context) ([]*entity.Material, error) {
	r.s.mu.RLock()
	var out []*entity.Material
	for _, m := range r.s.materials {
		if m.IsLowStock() {
			out = append(out, &m)
		}
	}
	r.s.mu.RUnlock()
	sortByName(out)
	return out, nil
}

// Update modifica solo datos de catálogo.
func (r *MaterialRepo) Update(_ context.Context, m *entity.Material) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.materials[m.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.s.nameTakenLocked(m.Name, m.ID) {
		return domain.ErrDuplicate
	}
	cur.Name, cur.Unit, cur.Category, cur.MinThreshold, cur.UpdatedAt = m.Name, m.Unit, m.Category, m.MinThreshold, m.UpdatedAt
	r.s.materials[m.ID] = cur
	return nil
}

// UpdateStock escribe quantity y reserved.
func (r *MaterialRepo) UpdateStock(_ context.Context, id string, quantity, reserved int64, updatedAt time.Time) error {
	if r.tx != nil {
		if c, ok := r.tx.created[id]; ok {
			c.Quantity, c.Reserved, c.UpdatedAt = quantity, reserved, updatedAt
			r.tx.created[id] = c
			return nil
		}
		r.tx.stock[id] = stockUpdate{quantity: quantity, reserved: reserved, updatedAt: updatedAt}
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.materials[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Quantity, m.Reserved, m.UpdatedAt = quantity, reserved, updatedAt
	r.s.materials[id] = m
	return nil
}

func sortByName(list []*entity.Material) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// ── Reservas ─────────────────────────────────────────────────────────────────

// ReservationRepo implementación en memoria de ReservationRepository.
type ReservationRepo struct {
	s  *Store
	tx *tx
}

// NewReservationRepository construye el repositorio fuera de transacción.
func NewReservationRepository(s *Store) *ReservationRepo {
	return &ReservationRepo{s: s}
}

// Create persiste una reserva.
func (r *ReservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	if r.tx != nil {
		r.tx.reservations[res.ID] = *res
		return nil
	}
	r.s.mu.Lock()
	r.s.reservations[res.ID] = *res
	r.s.mu.Unlock()
	return nil
}

// GetByID obtiene una reserva por ID.
func (r *ReservationRepo) GetByID(_ context.Context, id string) (*entity.Reservation, error) {
	if r.tx != nil {
		if res, ok := r.tx.reservations[id]; ok {
			return &res, nil
		}
	}
	r.s.mu.RLock()
	res, ok := r.s.reservations[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &res, nil
}

// GetForUpdate lee la reserva. Su consistencia la da el bloqueo del material, tomado antes.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.GetByID(ctx, id)
}

// UpdateStatus cambia el estado de la reserva.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id, status string, fulfilledAt *time.Time) error {
	res, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if res == nil {
		return domain.ErrNotFound
	}
	res.Status = status
	res.FulfilledAt = fulfilledAt
	return r.Create(ctx, res)
}

// ListByRequest reservas de una solicitud en orden de creación.
func (r *ReservationRepo) ListByRequest(_ context.Context, requestID string) ([]*entity.Reservation, error) {
	r.s.mu.RLock()
	var out []*entity.Reservation
	for _, res := range r.s.reservations {
		if res.RequestID == requestID {
			out = append(out, &res)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SumActive suma las reservas ACTIVE confirmadas del material.
func (r *ReservationRepo) SumActive(_ context.Context, materialID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var sum int64
	for _, res := range r.s.reservations {
		if res.MaterialID == materialID && res.IsActive() {
			sum += res.Quantity
		}
	}
	return sum, nil
}

// ── Movimientos ──────────────────────────────────────────────────────────────

// StockMovementRepo implementación en memoria (append-only) de StockMovementRepository.
type StockMovementRepo struct {
	s  *Store
	tx *tx
}

// NewStockMovementRepository construye el repositorio fuera de transacción.
func NewStockMovementRepository(s *Store) *StockMovementRepo {
	return &StockMovementRepo{s: s}
}

// Create agrega un movimiento.
func (r *StockMovementRepo) Create(_ context.Context, mov *entity.StockMovement) error {
	if r.tx != nil {
		r.tx.movements = append(r.tx.movements, *mov)
		return nil
	}
	r.s.mu.Lock()
	r.s.movements = append(r.s.movements, *mov)
	r.s.mu.Unlock()
	return nil
}

// ListByMaterial movimientos del material, más recientes primero.
func (r *StockMovementRepo) ListByMaterial(_ context.Context, materialID string, limit int) ([]*entity.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.StockMovement
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		if mv := r.s.movements[i]; mv.MaterialID == materialID {
			out = append(out, &mv)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// ExistsByReference indica si hay un movimiento con esa referencia y razón.
func (r *StockMovementRepo) ExistsByReference(_ context.Context, referenceID, reason string) (bool, error) {
	if r.tx != nil {
		for _, mv := range r.tx.movements {
			if mv.ReferenceID == referenceID && mv.Reason == reason {
				return true, nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, mv := range r.s.movements {
		if mv.ReferenceID == referenceID && mv.Reason == reason {
			return true, nil
		}
	}
	return false, nil
}
