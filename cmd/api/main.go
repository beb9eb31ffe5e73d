package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/materiales-api/internal/application/auth"
	"github.com/jhoicas/materiales-api/internal/application/inventory"
	"github.com/jhoicas/materiales-api/internal/application/ports"
	"github.com/jhoicas/materiales-api/internal/application/procurement"
	"github.com/jhoicas/materiales-api/internal/infrastructure/messaging"
	"github.com/jhoicas/materiales-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/materiales-api/internal/infrastructure/pdf"
	"github.com/jhoicas/materiales-api/internal/infrastructure/placement"
	httpRouter "github.com/jhoicas/materiales-api/internal/interfaces/http"
	"github.com/jhoicas/materiales-api/pkg/config"
	"github.com/jhoicas/materiales-api/pkg/logger"
	"github.com/jhoicas/materiales-api/pkg/telemetry"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Bool("kafka", cfg.Kafka.Enabled()).
		Str("placement", cfg.Procurement.PlacementMode).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		log.Fatal().Err(err).Msg("telemetría")
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer store.close()

	authUC := auth.NewAuthUseCase(store.users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, log.Component("auth"))
	if err := authUC.EnsureAdmin(ctx, cfg.JWT.AdminEmail, cfg.JWT.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("usuarios")
	}

	var prom *metrics.Prometheus
	var appMetrics ports.Metrics = ports.NopMetrics{}
	if cfg.Metrics.Enabled {
		prom = metrics.New()
		appMetrics = prom
	}

	// Canal de eventos: Kafka si hay brokers, si no el bus en memoria.
	var (
		publisher ports.EventPublisher
		runEvents func(context.Context, ports.EventHandler) error
		closers   []func() error
	)
	if cfg.Kafka.Enabled() {
		producer := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		consumer := messaging.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, log.Component("kafka"))
		publisher, runEvents = producer, consumer.Run
		closers = append(closers, producer.Close, consumer.Close)
	} else {
		bus := messaging.NewMemoryBus(messaging.MemoryBusConfig{}, log.Component("bus"))
		publisher, runEvents = bus, bus.Run
		closers = append(closers, bus.Close)
	}

	notifier := inventory.NewEventNotifier(publisher, appMetrics, log.Component("events"), cfg.Kafka.PublishTimeout)
	ledger := inventory.NewLedgerUseCase(
		store.txRunner, store.materials, store.reservations, store.movements,
		notifier, appMetrics, log.Component("ledger"),
	)
	checker := inventory.NewAvailabilityChecker(store.materials, notifier, appMetrics, log.Component("availability"))
	requests := inventory.NewRequestService(ledger, checker)
	directory := procurement.NewSupplierDirectory(store.suppliers, store.offers, ledger)

	var supplierPlacement procurement.SupplierPlacement
	if cfg.Procurement.PlacementMode == config.PlacementHTTP {
		supplierPlacement = placement.NewHTTPClient(cfg.Procurement.PlacementURL, cfg.Procurement.PlacementAPIKey)
	} else {
		supplierPlacement = placement.NewSimulator(placement.SimulatorConfig{
			FailureRate: cfg.Procurement.StubFailureRate,
			Latency:     cfg.Procurement.StubLatency,
		})
	}

	// PDF: orden de compra para el proveedor
	pdfGenerator := infrapdf.NewMarotoPDFGenerator(cfg.App.Name)
	orders := procurement.NewOrderManager(
		store.orders, directory, supplierPlacement, ledger, ledger, pdfGenerator,
		appMetrics, log.Component("procurement"),
		procurement.OrderManagerConfig{PlacementTimeout: cfg.Procurement.PlacementTimeout},
	)
	replenishment := procurement.NewReplenishmentUseCase(ledger, directory)
	shortageConsumer := procurement.NewShortageConsumer(orders, store.processed, appMetrics, log.Component("shortage-consumer"))

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		if err := runEvents(ctx, shortageConsumer.Handle); err != nil {
			log.Error().Err(err).Msg("consumidor de eventos finalizado")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    8 << 20,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Materiales API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := store.ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.App.Storage})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Auth:          authUC,
		Ledger:        ledger,
		Checker:       checker,
		Requests:      requests,
		Directory:     directory,
		Orders:        orders,
		Replenishment: replenishment,
		Metrics:       prom,
		MetricsPath:   cfg.Metrics.Path,
		JWTSecret:     cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Detener el consumidor antes de cerrar el canal y el almacenamiento.
	stop()
	workers.Wait()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("cierre del canal de eventos")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("cierre de telemetría")
	}

	log.Info().Msg("aplicación detenida")
}
