package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	appinventory "github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/inventory"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	"github.com/jhoicas/taller-core/pkg/logger"
)

// Config parámetros del servicio de consumo.
type Config struct {
	Now func() time.Time // reloj; nil = time.Now
}

// Service aplica y revierte el consumo de stock de una venta o reparación como una sola unidad.
// El estado del consumo (APLICADA, REVERTIDA) impide aplicar o revertir dos veces.
type Service struct {
	txRunner repository.TxRunner
	reader   repository.Store
	ledger   *appinventory.Ledger
	cfg      Config
	log      *logger.Logger
}

// NewService construye el servicio sobre el libro de existencias.
func NewService(txRunner repository.TxRunner, reader repository.Store, ledger *appinventory.Ledger, cfg Config, log *logger.Logger) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{txRunner: txRunner, reader: reader, ledger: ledger, cfg: cfg, log: log.Component("fulfillment")}
}

// ApplyInput líneas a descontar para el pedido Order.
type ApplyInput struct {
	Order   entity.EntityRef
	Lines   []entity.FulfillmentLine
	ActorID string
}

func (in ApplyInput) validate() error {
	if err := in.Order.Validate(); err != nil {
		return err
	}
	if !in.Order.IsOrder() {
		return fmt.Errorf("%w: %s no consume stock", domain.ErrInvalidInput, in.Order.Kind())
	}
	if in.ActorID == "" {
		return fmt.Errorf("%w: falta el usuario que aplica", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: el pedido no tiene líneas", domain.ErrInvalidInput)
	}
	for _, l := range in.Lines {
		if l.ProductID == "" || l.WarehouseID == "" {
			return fmt.Errorf("%w: producto y depósito son obligatorios", domain.ErrInvalidInput)
		}
		if l.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	return nil
}

// Apply descuenta todas las líneas en una transacción. Si una línea no tiene saldo, nada se
// aplica y el error *domain.InsufficientStockError nombra ese producto.
func (f *Service) Apply(ctx context.Context, in ApplyInput) (*entity.Fulfillment, error) {
	var out *entity.Fulfillment
	err := f.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		res, err := f.ApplyInTx(ctx, s, in, f.cfg.Now())
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}
	f.log.Info().Str("order", in.Order.String()).Int("lines", len(out.Lines)).Msg("consumo aplicado")
	return out, nil
}

// ApplyInTx aplica el consumo dentro de la transacción del llamador (p. ej. junto con la
// creación de la venta).
func (f *Service) ApplyInTx(ctx context.Context, s repository.Store, in ApplyInput, now time.Time) (*entity.Fulfillment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := s.Fulfillments().GetForUpdate(ctx, in.Order)
	if err != nil {
		return nil, fmt.Errorf("bloquear consumo de %s: %w", in.Order, err)
	}
	if existing != nil {
		if existing.Status == entity.FulfillmentReversed {
			return nil, domain.ErrAlreadyReversed
		}
		return nil, domain.ErrAlreadyApplied
	}

	lines := inventory.MergeLines(in.Lines)
	ful := &entity.Fulfillment{
		ID:        uuid.New().String(),
		Order:     in.Order,
		Status:    entity.FulfillmentApplied,
		Lines:     lines,
		AppliedBy: in.ActorID,
		AppliedAt: now,
	}
	// El alta va primero: un segundo Apply concurrente choca contra la clave única del pedido.
	if err := s.Fulfillments().Create(ctx, ful); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.ErrAlreadyApplied
		}
		return nil, fmt.Errorf("registrar consumo de %s: %w", in.Order, err)
	}

	if err := f.ledger.LockInTx(ctx, s, keys(lines)...); err != nil {
		return nil, err
	}
	for _, l := range lines {
		_, err := f.ledger.DecrementInTx(ctx, s, appinventory.MovementInput{
			ProductID:   l.ProductID,
			WarehouseID: l.WarehouseID,
			Quantity:    l.Quantity,
			Reference:   in.Order,
			ActorID:     in.ActorID,
		}, now)
		if err != nil {
			return nil, err
		}
	}
	return ful, nil
}

// ReverseInput revierte el consumo del pedido Order. CancellationID identifica el evento de
// anulación; vacío usa el propio pedido.
type ReverseInput struct {
	Order          entity.EntityRef
	CancellationID string
	Reason         string
	ActorID        string
}

// Reverse devuelve al stock lo consumido por el pedido. Solo desde APLICADA.
func (f *Service) Reverse(ctx context.Context, in ReverseInput) (*entity.Fulfillment, error) {
	var out *entity.Fulfillment
	err := f.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		res, err := f.ReverseInTx(ctx, s, in, f.cfg.Now())
		out = res
		return err
	})
	if err != nil {
		return nil, err
	}
	f.log.Info().Str("order", in.Order.String()).Str("reason", in.Reason).Msg("consumo revertido")
	return out, nil
}

// ReverseInTx revierte dentro de la transacción del llamador.
func (f *Service) ReverseInTx(ctx context.Context, s repository.Store, in ReverseInput, now time.Time) (*entity.Fulfillment, error) {
	if err := in.Order.Validate(); err != nil {
		return nil, err
	}
	if in.ActorID == "" {
		return nil, fmt.Errorf("%w: falta el usuario que revierte", domain.ErrInvalidInput)
	}
	ful, err := s.Fulfillments().GetForUpdate(ctx, in.Order)
	if err != nil {
		return nil, fmt.Errorf("bloquear consumo de %s: %w", in.Order, err)
	}
	if ful == nil {
		return nil, domain.ErrNotApplied
	}
	if err := ful.MarkReversed(in.ActorID, in.Reason, now); err != nil {
		return nil, err
	}

	cancelID := in.CancellationID
	if cancelID == "" {
		cancelID = in.Order.String()
	}
	ref := entity.CancellationRef(cancelID)
	if err := f.ledger.LockInTx(ctx, s, keys(ful.Lines)...); err != nil {
		return nil, err
	}
	for _, l := range ful.Lines {
		_, err := f.ledger.IncrementInTx(ctx, s, appinventory.MovementInput{
			ProductID:   l.ProductID,
			WarehouseID: l.WarehouseID,
			Quantity:    l.Quantity,
			Reference:   ref,
			Reason:      in.Reason,
			ActorID:     in.ActorID,
		}, now)
		if err != nil {
			return nil, err
		}
	}
	if err := s.Fulfillments().Update(ctx, ful); err != nil {
		return nil, fmt.Errorf("marcar consumo revertido: %w", err)
	}
	return ful, nil
}

// Status devuelve el consumo registrado para el pedido.
func (f *Service) Status(ctx context.Context, order entity.EntityRef) (*entity.Fulfillment, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	ful, err := f.reader.Fulfillments().Get(ctx, order)
	if err != nil {
		return nil, err
	}
	if ful == nil {
		return nil, fmt.Errorf("%w: %s sin consumo registrado", domain.ErrNotFound, order)
	}
	return ful, nil
}

func keys(lines []entity.FulfillmentLine) []inventory.StockKey {
	out := make([]inventory.StockKey, 0, len(lines))
	for _, l := range lines {
		out = append(out, inventory.StockKey{ProductID: l.ProductID, WarehouseID: l.WarehouseID})
	}
	return out
}
