package main

import (
	"context"

	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/domain/repository"
	"github.com/jhoicas/materiales-api/internal/infrastructure/memory"
	"github.com/jhoicas/materiales-api/internal/infrastructure/postgres"
	"github.com/jhoicas/materiales-api/pkg/config"
	"github.com/jhoicas/materiales-api/pkg/logger"
)

// storage repositorios del modo elegido (postgres o memoria).
type storage struct {
	txRunner     inventory.TxRunner
	materials    repository.MaterialRepository
	reservations repository.ReservationRepository
	movements    repository.StockMovementRepository
	suppliers    repository.SupplierRepository
	offers       repository.SupplierMaterialRepository
	orders       repository.PurchaseOrderRepository
	processed    repository.ProcessedEventRepository
	users        repository.UserRepository
	ping         func(context.Context) error
	close        func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.App.Storage == config.StorageMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		s := memory.NewStore()
		return &storage{
			txRunner:     memory.NewTxRunner(s),
			materials:    memory.NewMaterialRepository(s),
			reservations: memory.NewReservationRepository(s),
			movements:    memory.NewStockMovementRepository(s),
			suppliers:    memory.NewSupplierRepository(s),
			offers:       memory.NewSupplierMaterialRepository(s),
			orders:       memory.NewPurchaseOrderRepository(s),
			processed:    memory.NewProcessedEventRepository(s),
			users:        memory.NewUserRepository(s),
			ping:         func(context.Context) error { return nil },
			close:        func() {},
		}, nil
	}

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString()); err != nil {
			return nil, err
		}
		log.Info().Msg("migraciones aplicadas")
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &storage{
		txRunner:     postgres.NewTxRunner(pool),
		materials:    postgres.NewMaterialRepository(pool),
		reservations: postgres.NewReservationRepository(pool),
		movements:    postgres.NewStockMovementRepository(pool),
		suppliers:    postgres.NewSupplierRepository(pool),
		offers:       postgres.NewSupplierMaterialRepository(pool),
		orders:       postgres.NewPurchaseOrderRepository(pool),
		processed:    postgres.NewProcessedEventRepository(pool),
		users:        postgres.NewUserRepository(pool),
		ping:         pool.Ping,
		close:        pool.Close,
	}, nil
}
