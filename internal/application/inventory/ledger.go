package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/inventory"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	"github.com/jhoicas/taller-core/pkg/logger"
)

const (
	defaultMovementLimit = 100
	maxMovementLimit     = 500
)

// Config parámetros del libro de existencias.
type Config struct {
	CacheTTL time.Duration    // 0 desactiva la caché de saldos
	Now      func() time.Time // reloj; nil = time.Now
}

// Ledger es el único punto que modifica saldos. Cada mutación bloquea la fila del saldo
// (SELECT ... FOR UPDATE), revalida contra el valor bloqueado y deja exactamente un movimiento.
type Ledger struct {
	txRunner repository.TxRunner
	reader   repository.Store
	cfg      Config
	cache    BalanceCache
	metrics  Metrics
	log      *logger.Logger
}

// NewLedger construye el libro. cache y metrics pueden ser nil.
func NewLedger(txRunner repository.TxRunner, reader repository.Store, cfg Config, cache BalanceCache, log *logger.Logger, metrics Metrics) *Ledger {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{
		txRunner: txRunner,
		reader:   reader,
		cfg:      cfg,
		cache:    cache,
		metrics:  metrics,
		log:      log.Component("ledger"),
	}
}

// MovementInput entrada para una entrada o salida de stock.
// Reference identifica el evento de negocio (venta, recepción, anulación...).
type MovementInput struct {
	ProductID   string
	WarehouseID string
	Quantity    int64
	Reference   entity.EntityRef
	Reason      string
	ActorID     string
}

func (in MovementInput) validate() error {
	if in.ProductID == "" || in.WarehouseID == "" {
		return fmt.Errorf("%w: producto y depósito son obligatorios", domain.ErrInvalidInput)
	}
	if in.ActorID == "" {
		return fmt.Errorf("%w: falta el usuario que registra el movimiento", domain.ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if !in.Reference.IsZero() {
		return in.Reference.Validate()
	}
	return nil
}

// Increment suma stock en su propia transacción. Crea el saldo si es el primer movimiento.
func (l *Ledger) Increment(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	return l.run(ctx, func(ctx context.Context, s repository.Store, now time.Time) (*entity.StockMovement, error) {
		return l.IncrementInTx(ctx, s, in, now)
	})
}

// IncrementInTx suma stock dentro de la transacción del llamador.
func (l *Ledger) IncrementInTx(ctx context.Context, s repository.Store, in MovementInput, now time.Time) (*entity.StockMovement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return l.mutate(ctx, s, in, now, func(rec *entity.StockRecord) (inventory.Mutation, error) {
		return inventory.PlanIncrement(rec.Quantity, in.Quantity)
	})
}

// Decrement resta stock en su propia transacción. Falla con *domain.InsufficientStockError
// si la cantidad supera el saldo bloqueado; el saldo no cambia.
func (l *Ledger) Decrement(ctx context.Context, in MovementInput) (*entity.StockMovement, error) {
	return l.run(ctx, func(ctx context.Context, s repository.Store, now time.Time) (*entity.StockMovement, error) {
		return l.DecrementInTx(ctx, s, in, now)
	})
}

// DecrementInTx resta stock dentro de la transacción del llamador.
func (l *Ledger) DecrementInTx(ctx context.Context, s repository.Store, in MovementInput, now time.Time) (*entity.StockMovement, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return l.mutate(ctx, s, in, now, func(rec *entity.StockRecord) (inventory.Mutation, error) {
		m, err := inventory.PlanDecrement(rec.Quantity, in.Quantity)
		if errors.Is(err, domain.ErrInsufficientStock) {
			l.metrics.InsufficientStock()
			return m, &domain.InsufficientStockError{
				ProductID:   in.ProductID,
				WarehouseID: in.WarehouseID,
				Requested:   in.Quantity,
				Available:   rec.Quantity,
			}
		}
		return m, err
	})
}

// LockInTx bloquea varios saldos en orden determinístico (depósito, producto). Quien toca más
// de un saldo en una transacción debe bloquearlos con este método antes de mutarlos.
func (l *Ledger) LockInTx(ctx context.Context, s repository.Store, keys ...inventory.StockKey) error {
	ordered := inventory.LockOrder(keys...)
	checked := make(map[string]struct{}, len(ordered))
	for _, k := range ordered {
		if _, ok := checked[k.WarehouseID]; ok {
			continue
		}
		if err := requireWarehouse(ctx, s, k.WarehouseID); err != nil {
			return err
		}
		checked[k.WarehouseID] = struct{}{}
	}
	for _, k := range ordered {
		if _, err := s.Stock().GetForUpdate(ctx, k.ProductID, k.WarehouseID); err != nil {
			return l.lockErr(err, k)
		}
	}
	return nil
}

// requireWarehouse evita crear saldos de un depósito inexistente.
func requireWarehouse(ctx context.Context, s repository.Store, warehouseID string) error {
	wh, err := s.Warehouses().GetByID(ctx, warehouseID)
	if err != nil {
		return fmt.Errorf("buscar depósito: %w", err)
	}
	if wh == nil {
		return fmt.Errorf("%w: depósito %s", domain.ErrNotFound, warehouseID)
	}
	return nil
}

// mutate bloquea el saldo, aplica el plan y registra el movimiento.
func (l *Ledger) mutate(
	ctx context.Context,
	s repository.Store,
	in MovementInput,
	now time.Time,
	plan func(rec *entity.StockRecord) (inventory.Mutation, error),
) (*entity.StockMovement, error) {
	key := inventory.StockKey{ProductID: in.ProductID, WarehouseID: in.WarehouseID}
	if err := requireWarehouse(ctx, s, in.WarehouseID); err != nil {
		return nil, err
	}

	rec, err := s.Stock().GetForUpdate(ctx, in.ProductID, in.WarehouseID)
	if err != nil {
		return nil, l.lockErr(err, key)
	}
	m, err := plan(rec)
	if err != nil {
		return nil, err
	}

	mov := m.Apply(rec)
	rec.UpdatedAt = now
	if err := s.Stock().Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("guardar saldo: %w", err)
	}
	mov.ID = uuid.New().String()
	mov.Reason = in.Reason
	mov.Reference = in.Reference
	mov.ActorID = in.ActorID
	mov.CreatedAt = now
	if err := s.Movements().Create(ctx, &mov); err != nil {
		return nil, fmt.Errorf("registrar movimiento: %w", err)
	}

	l.invalidateAfterCommit(s, key)
	l.metrics.MovementRecorded(string(mov.Type))
	l.log.Debug().
		Str("product_id", in.ProductID).
		Str("warehouse_id", in.WarehouseID).
		Str("type", string(mov.Type)).
		Int64("delta", mov.Delta).
		Int64("after", mov.QuantityAfter).
		Str("reference", in.Reference.String()).
		Msg("movimiento registrado")
	return &mov, nil
}

// Available devuelve el saldo sin bloquear. Puede estar desactualizado; no usar para decidir
// una salida (Decrement revalida bajo bloqueo). Una lectura que cruza un commit puede volver a
// cachear el saldo anterior después de la invalidación; queda viejo hasta CacheTTL.
func (l *Ledger) Available(ctx context.Context, productID, warehouseID string) (int64, error) {
	if productID == "" || warehouseID == "" {
		return 0, fmt.Errorf("%w: producto y depósito son obligatorios", domain.ErrInvalidInput)
	}
	useCache := l.cache != nil && l.cfg.CacheTTL > 0
	if useCache {
		qty, ok, err := l.cache.Get(ctx, productID, warehouseID)
		if err != nil {
			l.log.Warn().Err(err).Str("product_id", productID).Msg("caché de saldos no disponible")
		} else if ok {
			return qty, nil
		}
	}

	rec, err := l.reader.Stock().Get(ctx, productID, warehouseID)
	if err != nil {
		return 0, fmt.Errorf("leer saldo: %w", err)
	}
	if useCache {
		if err := l.cache.Set(ctx, productID, warehouseID, rec.Quantity, l.cfg.CacheTTL); err != nil {
			l.log.Warn().Err(err).Str("product_id", productID).Msg("no se pudo cachear el saldo")
		}
	}
	return rec.Quantity, nil
}

// AdjustInput conteo físico de un producto en un depósito.
type AdjustInput struct {
	ProductID   string
	WarehouseID string
	Counted     int64
	Reason      string
	ActorID     string
}

// Adjust lleva el saldo a la cantidad contada y registra un movimiento ADJUST con el delta.
func (l *Ledger) Adjust(ctx context.Context, in AdjustInput) (*entity.StockMovement, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return nil, domain.ErrMissingReason
	}
	if in.Counted < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	mi := MovementInput{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Quantity:    1, // la validación de cantidad aplica al conteo, no a este campo
		Reference:   entity.AdjustmentRef(uuid.New().String()),
		Reason:      in.Reason,
		ActorID:     in.ActorID,
	}
	if err := mi.validate(); err != nil {
		return nil, err
	}
	return l.run(ctx, func(ctx context.Context, s repository.Store, now time.Time) (*entity.StockMovement, error) {
		return l.mutate(ctx, s, mi, now, func(rec *entity.StockRecord) (inventory.Mutation, error) {
			return inventory.PlanAdjust(rec.Quantity, in.Counted)
		})
	})
}

// TransferInput traslado de un producto entre depósitos.
type TransferInput struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        int64
	Reason          string
	ActorID         string
}

// Transfer resta en origen y suma en destino en una sola transacción. Ambos saldos se bloquean
// en orden determinístico para que dos traslados cruzados no se bloqueen mutuamente.
func (l *Ledger) Transfer(ctx context.Context, in TransferInput) ([]*entity.StockMovement, error) {
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, fmt.Errorf("%w: origen y destino son el mismo depósito", domain.ErrInvalidInput)
	}
	ref := entity.TransferRef(uuid.New().String())
	out := MovementInput{
		ProductID: in.ProductID, WarehouseID: in.FromWarehouseID, Quantity: in.Quantity,
		Reference: ref, Reason: in.Reason, ActorID: in.ActorID,
	}
	dst := out
	dst.WarehouseID = in.ToWarehouseID
	if err := out.validate(); err != nil {
		return nil, err
	}
	if err := dst.validate(); err != nil {
		return nil, err
	}

	var movs []*entity.StockMovement
	err := l.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		now := l.cfg.Now()
		if err := l.LockInTx(ctx, s,
			inventory.StockKey{ProductID: in.ProductID, WarehouseID: in.FromWarehouseID},
			inventory.StockKey{ProductID: in.ProductID, WarehouseID: in.ToWarehouseID},
		); err != nil {
			return err
		}
		m1, err := l.DecrementInTx(ctx, s, out, now)
		if err != nil {
			return err
		}
		m2, err := l.IncrementInTx(ctx, s, dst, now)
		if err != nil {
			return err
		}
		movs = []*entity.StockMovement{m1, m2}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movs, nil
}

// SetMinimum fija el umbral de reposición. No es un movimiento de saldo.
func (l *Ledger) SetMinimum(ctx context.Context, productID, warehouseID string, minimum int64) (*entity.StockRecord, error) {
	if productID == "" || warehouseID == "" {
		return nil, fmt.Errorf("%w: producto y depósito son obligatorios", domain.ErrInvalidInput)
	}
	if minimum < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var out *entity.StockRecord
	err := l.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		rec, err := s.Stock().GetForUpdate(ctx, productID, warehouseID)
		if err != nil {
			return l.lockErr(err, inventory.StockKey{ProductID: productID, WarehouseID: warehouseID})
		}
		rec.Minimum = minimum
		rec.UpdatedAt = l.cfg.Now()
		if err := s.Stock().Save(ctx, rec); err != nil {
			return fmt.Errorf("guardar mínimo: %w", err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BelowMinimum lista los saldos bajo su mínimo (para reposición). warehouseID vacío = todos.
func (l *Ledger) BelowMinimum(ctx context.Context, warehouseID string) ([]*entity.StockRecord, error) {
	list, err := l.reader.Stock().ListBelowMinimum(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("listar bajo mínimo: %w", err)
	}
	return list, nil
}

// Movements lista el libro de movimientos en orden cronológico.
func (l *Ledger) Movements(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultMovementLimit
	}
	if filter.Limit > maxMovementLimit {
		filter.Limit = maxMovementLimit
	}
	list, err := l.reader.Movements().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	return list, nil
}

func (l *Ledger) run(ctx context.Context, fn func(ctx context.Context, s repository.Store, now time.Time) (*entity.StockMovement, error)) (*entity.StockMovement, error) {
	var mov *entity.StockMovement
	err := l.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		m, err := fn(ctx, s, l.cfg.Now())
		mov = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

func (l *Ledger) lockErr(err error, k inventory.StockKey) error {
	if errors.Is(err, domain.ErrLockTimeout) {
		l.metrics.LockTimeout("stock")
		l.log.Warn().Str("product_id", k.ProductID).Str("warehouse_id", k.WarehouseID).Msg("timeout esperando el saldo")
	}
	return fmt.Errorf("bloquear saldo %s/%s: %w", k.WarehouseID, k.ProductID, err)
}

func (l *Ledger) invalidateAfterCommit(s repository.Store, k inventory.StockKey) {
	if l.cache == nil {
		return
	}
	s.AfterCommit(func() {
		if err := l.cache.Invalidate(context.Background(), k.ProductID, k.WarehouseID); err != nil {
			l.log.Warn().Err(err).Str("product_id", k.ProductID).Msg("no se pudo invalidar el saldo cacheado")
		}
	})
}
