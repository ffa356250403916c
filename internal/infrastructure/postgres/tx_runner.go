package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	"github.com/jhoicas/taller-core/internal/infrastructure/telemetry"
	"github.com/jhoicas/taller-core/pkg/logger"
)

var _ repository.TxRunner = (*TxRunner)(nil)

var tracer = otel.Tracer("taller-core/postgres")

// Metrics observa reintentos y transacciones revertidas.
type Metrics interface {
	TxRetried()
	TxRolledBack()
}

type noopMetrics struct{}

func (noopMetrics) TxRetried()    {}
func (noopMetrics) TxRolledBack() {}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	seqPool     *pgxpool.Pool
	lockTimeout time.Duration
	retries     int
	log         *logger.Logger
	metrics     Metrics
}

// NewTxRunner construye el runner con el pool. retries es la cantidad de reintentos ante
// errores transitorios (bloqueo no obtenido a tiempo).
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration, retries int, log *logger.Logger, metrics Metrics) *TxRunner {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &TxRunner{
		pool:        pool,
		seqPool:     pool,
		lockTimeout: lockTimeout,
		retries:     retries,
		log:         log.Component("tx"),
		metrics:     metrics,
	}
}

// WithSequencePool reserva la numeración en un pool propio. La transacción retiene su conexión
// mientras Next pide otra: compartiendo pool, la concurrencia puede agotarlo.
func (r *TxRunner) WithSequencePool(seqPool *pgxpool.Pool) *TxRunner {
	if seqPool != nil {
		r.seqPool = seqPool
	}
	return r
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los hooks registrados con AfterCommit corren solo tras un Commit exitoso.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) (err error) {
	ctx, span := tracer.Start(ctx, "postgres.Tx")
	defer func() { telemetry.End(span, err) }()

	for attempt := 0; ; attempt++ {
		span.SetAttributes(attribute.Int("tx.attempt", attempt+1))
		err = r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		r.metrics.TxRolledBack()
		if !domain.IsTransient(err) || attempt >= r.retries || ctx.Err() != nil {
			return err
		}
		r.metrics.TxRetried()
		span.AddEvent("retry", trace.WithAttributes(attribute.String("error", err.Error())))
		r.log.Warn().Err(err).Int("attempt", attempt+1).Msg("reintentando transacción")
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		ms := fmt.Sprintf("%d", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", ms); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	var hooks []func()
	if err := fn(ctx, &store{q: tx, seqPool: r.seqPool, hooks: &hooks}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	for _, h := range hooks {
		h()
	}
	return nil
}
