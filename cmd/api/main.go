package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/taller-core/internal/application/documents"
	"github.com/jhoicas/taller-core/internal/application/fulfillment"
	"github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/application/purchasing"
	"github.com/jhoicas/taller-core/internal/application/sequence"
	"github.com/jhoicas/taller-core/internal/application/warehouse"
	"github.com/jhoicas/taller-core/internal/infrastructure/cache"
	"github.com/jhoicas/taller-core/internal/infrastructure/metrics"
	"github.com/jhoicas/taller-core/internal/infrastructure/postgres"
	"github.com/jhoicas/taller-core/internal/infrastructure/telemetry"
	httpRouter "github.com/jhoicas/taller-core/internal/interfaces/http"
	"github.com/jhoicas/taller-core/pkg/config"
	"github.com/jhoicas/taller-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	tracing, err := telemetry.NewTracerProvider(ctx, cfg.Trace, cfg.App.Name, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazado")
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("cerrar trazado")
		}
	}()

	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.Ledger.LockTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	seqDB := cfg.DB
	seqDB.MaxConns = cfg.DB.SeqConns
	seqPool, err := postgres.NewPool(ctx, seqDB, cfg.Ledger.LockTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL (numeración)")
	}
	defer seqPool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.NewLedger(reg)

	health := map[string]httpRouter.Pinger{"database": pool}

	// La caché de saldos es opcional: sin REDIS_ADDR las lecturas van directo a la base.
	var balanceCache inventory.BalanceCache
	if cfg.Redis.Enabled() {
		rc, err := cache.NewRedisBalanceCache(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer rc.Close()
		balanceCache = rc
		health["redis"] = rc
	}

	txRunner := postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout, cfg.Ledger.TxRetries, log, ledgerMetrics).
		WithSequencePool(seqPool)
	reader := postgres.NewReader(pool)

	seqCfg := sequence.NewConfig(
		cfg.Ledger.SalePointPrefix, cfg.Ledger.SaleNumberWidth, cfg.Ledger.DailyNumberWidth, cfg.Ledger.Location(),
	)
	generator, err := sequence.NewGenerator(txRunner, reader, seqCfg, log, ledgerMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración de numeración")
	}

	registry := warehouse.NewRegistry(txRunner, reader, warehouse.Config{}, log)
	ledger := inventory.NewLedger(txRunner, reader, inventory.Config{CacheTTL: cfg.Ledger.CacheTTL}, balanceCache, log, ledgerMetrics)
	issuer := documents.NewIssuer(txRunner, reader, generator, log)
	reconciler := purchasing.NewReconciler(txRunner, reader, ledger, issuer, log)
	fulfillments := fulfillment.NewService(txRunner, reader, ledger, fulfillment.Config{}, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Warehouses:   registry,
		Ledger:       ledger,
		Documents:    issuer,
		Purchasing:   reconciler,
		Fulfillments: fulfillments,
		Health:       health,
		Gatherer:     reg,
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

	log.Info().Msg("aplicación detenida")
}
