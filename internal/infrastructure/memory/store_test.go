package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/materiales-api/internal/domain"
	"github.com/jhoicas/materiales-api/internal/domain/entity"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
)

func seedMaterial(t *testing.T, s *Store, id, name string, qty int64) {
	t.Helper()
	require.NoError(t, NewMaterialRepository(s).Create(context.Background(), &entity.Material{
		ID: id, Name: name, Unit: entity.UnitPiece, Quantity: qty, MinThreshold: 5,
	}))
}

// ─────────────────────────────────────────────────────────────────────────────
// Transacciones
// ─────────────────────────────────────────────────────────────────────────────

func TestTxRunner_ConfirmaTodoJunto(t *testing.T) {
	s := NewStore()
	seedMaterial(t, s, "m1", "Arena", 10)
	outside := NewMaterialRepository(s)
	ctx := context.Background()

	err := NewTxRunner(s).Run(ctx, func(mats repository.MaterialRepository, _ repository.ReservationRepository, movs repository.StockMovementRepository) error {
		m, err := mats.GetForUpdate(ctx, "m1")
		require.NoError(t, err)
		require.NoError(t, mats.UpdateStock(ctx, "m1", m.Quantity+5, m.Reserved, time.Now()))
		require.NoError(t, movs.Create(ctx, &entity.StockMovement{ID: "mv1", MaterialID: "m1", Delta: 5, Reason: entity.ReasonPurchase}))

		inTx, _ := mats.GetByID(ctx, "m1")
		assert.Equal(t, int64(15), inTx.Quantity, "la tx ve sus propias escrituras")
		before, _ := outside.GetByID(ctx, "m1")
		assert.Equal(t, int64(10), before.Quantity, "fuera de la tx aún no se ve")
		return nil
	})
	require.NoError(t, err)

	after, _ := outside.GetByID(ctx, "m1")
	assert.Equal(t, int64(15), after.Quantity)
	list, _ := NewStockMovementRepository(s).ListByMaterial(ctx, "m1", 0)
	assert.Len(t, list, 1)
}

func TestTxRunner_ErrorDescartaEscrituras(t *testing.T) {
	s := NewStore()
	seedMaterial(t, s, "m1", "Arena", 10)
	ctx := context.Background()
	boom := errors.New("falla a mitad")

	err := NewTxRunner(s).Run(ctx, func(mats repository.MaterialRepository, _ repository.ReservationRepository, movs repository.StockMovementRepository) error {
		require.NoError(t, mats.UpdateStock(ctx, "m1", 0, 0, time.Now()))
		require.NoError(t, movs.Create(ctx, &entity.StockMovement{ID: "mv1", MaterialID: "m1", Delta: -10, Reason: entity.ReasonConsumption}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	m, _ := NewMaterialRepository(s).GetByID(ctx, "m1")
	assert.Equal(t, int64(10), m.Quantity)
	list, _ := NewStockMovementRepository(s).ListByMaterial(ctx, "m1", 0)
	assert.Empty(t, list)
}

func TestTxRunner_NombreDuplicadoEnCommit(t *testing.T) {
	s := NewStore()
	seedMaterial(t, s, "m1", "Arena", 10)
	ctx := context.Background()

	err := NewTxRunner(s).Run(ctx, func(mats repository.MaterialRepository, _ repository.ReservationRepository, _ repository.StockMovementRepository) error {
		return mats.Create(ctx, &entity.Material{ID: "m2", Name: "ARENA", Unit: entity.UnitPiece})
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestTxRunner_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewTxRunner(NewStore()).Run(ctx, func(repository.MaterialRepository, repository.ReservationRepository, repository.StockMovementRepository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// ─────────────────────────────────────────────────────────────────────────────
// Bloqueo por material
// ─────────────────────────────────────────────────────────────────────────────

func TestKeyedMutex_MismaClaveEsperaOtraNo(t *testing.T) {
	k := newKeyedMutex()
	k.Lock("m1")

	other := make(chan struct{})
	go func() {
		k.Lock("m2")
		k.Unlock("m2")
		close(other)
	}()
	select {
	case <-other:
	case <-time.After(time.Second):
		t.Fatal("una clave distinta no debe bloquearse")
	}

	same := make(chan struct{})
	go func() {
		k.Lock("m1")
		k.Unlock("m1")
		close(same)
	}()
	select {
	case <-same:
		t.Fatal("la misma clave debe esperar")
	case <-time.After(20 * time.Millisecond):
	}

	k.Unlock("m1")
	<-same
	k.mu.Lock()
	assert.Empty(t, k.locks, "las claves sin uso se liberan")
	k.mu.Unlock()
}

// ─────────────────────────────────────────────────────────────────────────────
// Usuarios y paginación
// ─────────────────────────────────────────────────────────────────────────────

func TestUserRepo_EmailUnicoSinMayusculas(t *testing.T) {
	r := NewUserRepository(NewStore())
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, &entity.User{ID: "u1", Email: "bodega@obra.co", Role: entity.RoleWarehouse}))
	assert.ErrorIs(t, r.Create(ctx, &entity.User{ID: "u2", Email: " Bodega@Obra.co ", Role: entity.RoleSite}), domain.ErrDuplicate)

	u, err := r.GetByEmail(ctx, "BODEGA@obra.co")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)

	assert.ErrorIs(t, r.Update(ctx, &entity.User{ID: "nadie"}), domain.ErrNotFound)
	n, _ := r.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestPaginate(t *testing.T) {
	list := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, paginate(list, 2, 0))
	assert.Equal(t, []int{4, 5}, paginate(list, 10, 3))
	assert.Equal(t, []int{}, paginate(list, 2, 9))
	assert.Equal(t, list, paginate(list, 0, 0))
}
