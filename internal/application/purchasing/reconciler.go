package purchasing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-core/internal/application/documents"
	"github.com/jhoicas/taller-core/internal/application/dto"
	appinventory "github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/application/warehouse"
	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/inventory"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	"github.com/jhoicas/taller-core/pkg/logger"
)

// Reconciler registra recepciones parciales o totales contra órdenes de compra. Lo recibido de
// cada línea nunca supera lo ordenado y todo lo recibido entra al stock en la misma transacción.
type Reconciler struct {
	txRunner repository.TxRunner
	reader   repository.Store
	ledger   *appinventory.Ledger
	issuer   *documents.Issuer
	log      *logger.Logger
}

// NewReconciler construye el conciliador.
func NewReconciler(txRunner repository.TxRunner, reader repository.Store, ledger *appinventory.Ledger, issuer *documents.Issuer, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{
		txRunner: txRunner,
		reader:   reader,
		ledger:   ledger,
		issuer:   issuer,
		log:      log.Component("purchasing"),
	}
}

// OrderLineInput línea de una orden nueva.
type OrderLineInput struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// CreateOrderInput entrada para crear una orden. WarehouseID vacío usa el depósito principal.
type CreateOrderInput struct {
	SupplierID  string
	WarehouseID string
	ActorID     string
	Lines       []OrderLineInput
}

func (in CreateOrderInput) validate() error {
	if strings.TrimSpace(in.SupplierID) == "" {
		return fmt.Errorf("%w: el proveedor es obligatorio", domain.ErrInvalidInput)
	}
	if in.ActorID == "" {
		return fmt.Errorf("%w: falta el usuario que crea la orden", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: la orden no tiene líneas", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(in.Lines))
	for _, l := range in.Lines {
		if l.ProductID == "" {
			return fmt.Errorf("%w: producto obligatorio", domain.ErrInvalidInput)
		}
		if _, ok := seen[l.ProductID]; ok {
			return fmt.Errorf("%w: producto %s repetido en la orden", domain.ErrDuplicate, l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
		if l.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: precio negativo para %s", domain.ErrInvalidInput, l.ProductID)
		}
	}
	return nil
}

// CreateOrder registra la orden con su número OC y su comprobante ORDEN_COMPRA en una transacción.
func (r *Reconciler) CreateOrder(ctx context.Context, in CreateOrderInput) (*entity.PurchaseOrder, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var order *entity.PurchaseOrder
	err := r.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		wh, err := warehouse.ResolveInTx(ctx, s, in.WarehouseID)
		if err != nil {
			return err
		}
		now := r.issuer.Now()
		id := uuid.New().String()
		doc, err := r.issuer.IssueInTx(ctx, s, documents.IssueInput{
			Entity:  entity.PurchaseOrderRef(id),
			Type:    entity.DocumentPurchaseOrder,
			ActorID: in.ActorID,
		}, now)
		if err != nil {
			return err
		}
		o := &entity.PurchaseOrder{
			ID:          id,
			Number:      doc.Number,
			SupplierID:  strings.TrimSpace(in.SupplierID),
			WarehouseID: wh.ID,
			Status:      entity.PurchaseOrderPending,
			CreatedBy:   in.ActorID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for _, l := range in.Lines {
			o.Lines = append(o.Lines, entity.PurchaseOrderLine{
				ID:              uuid.New().String(),
				OrderID:         id,
				ProductID:       l.ProductID,
				QuantityOrdered: l.Quantity,
				UnitPrice:       l.UnitPrice,
			})
		}
		if err := s.PurchaseOrders().Create(ctx, o); err != nil {
			return fmt.Errorf("guardar orden %s: %w", o.Number, err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("order_id", order.ID).Str("number", order.Number).Int("lines", len(order.Lines)).Msg("orden de compra creada")
	return order, nil
}

// ReceiptLineInput cantidad recibida de una línea de la orden.
type ReceiptLineInput struct {
	LineID   string
	Quantity int64
}

// ReceiptInput una entrega física contra una orden. WarehouseID vacío usa el destino de la orden.
type ReceiptInput struct {
	OrderID     string
	WarehouseID string
	ActorID     string
	Lines       []ReceiptLineInput
}

func (in ReceiptInput) validate() error {
	if in.OrderID == "" {
		return fmt.Errorf("%w: la orden es obligatoria", domain.ErrInvalidInput)
	}
	if in.ActorID == "" {
		return fmt.Errorf("%w: falta el usuario que recibe", domain.ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: la recepción no tiene líneas", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(in.Lines))
	for _, l := range in.Lines {
		if _, ok := seen[l.LineID]; ok {
			return fmt.Errorf("%w: línea %s repetida en la recepción", domain.ErrInvalidInput, l.LineID)
		}
		seen[l.LineID] = struct{}{}
		if l.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	return nil
}

// RegisterReceipt registra la recepción en su propia transacción.
func (r *Reconciler) RegisterReceipt(ctx context.Context, in ReceiptInput) (*entity.Receipt, error) {
	var receipt *entity.Receipt
	err := r.txRunner.Run(ctx, func(ctx context.Context, s repository.Store) error {
		rc, err := r.RegisterReceiptInTx(ctx, s, in, r.issuer.Now())
		receipt = rc
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("order_id", in.OrderID).Str("receipt", receipt.Number).Int("lines", len(receipt.Lines)).Msg("recepción registrada")
	return receipt, nil
}

// RegisterReceiptInTx bloquea la orden con sus líneas, valida cada cantidad contra lo pendiente,
// suma lo recibido, ingresa el stock con referencia a la recepción y recalcula el estado.
// Cualquier error deja la orden, sus líneas y el stock sin cambios.
func (r *Reconciler) RegisterReceiptInTx(ctx context.Context, s repository.Store, in ReceiptInput, now time.Time) (*entity.Receipt, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	order, err := s.PurchaseOrders().GetForUpdate(ctx, in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("bloquear orden: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: orden de compra %s", domain.ErrNotFound, in.OrderID)
	}
	whID := in.WarehouseID
	if whID == "" {
		whID = order.WarehouseID
	}
	wh, err := warehouse.ResolveInTx(ctx, s, whID)
	if err != nil {
		return nil, err
	}

	lines := make([]*entity.PurchaseOrderLine, 0, len(in.Lines))
	for _, li := range in.Lines {
		line, err := r.orderLine(ctx, s, order, li.LineID)
		if err != nil {
			return nil, err
		}
		if err := line.Receive(li.Quantity); err != nil {
			return nil, fmt.Errorf("línea %s (pendiente %d, recibe %d): %w", line.ID, line.Remaining(), li.Quantity, err)
		}
		lines = append(lines, line)
	}

	receiptID := uuid.New().String()
	ref := entity.ReceiptRef(receiptID)
	doc, err := r.issuer.IssueInTx(ctx, s, documents.IssueInput{Entity: ref, Type: entity.DocumentReceipt, ActorID: in.ActorID}, now)
	if err != nil {
		return nil, err
	}
	receipt := &entity.Receipt{
		ID:          receiptID,
		Number:      doc.Number,
		OrderID:     order.ID,
		WarehouseID: wh.ID,
		ActorID:     in.ActorID,
		ReceivedAt:  now,
	}

	keys := make([]inventory.StockKey, 0, len(lines))
	for _, l := range lines {
		keys = append(keys, inventory.StockKey{ProductID: l.ProductID, WarehouseID: wh.ID})
	}
	if err := r.ledger.LockInTx(ctx, s, keys...); err != nil {
		return nil, err
	}
	for i, l := range lines {
		qty := in.Lines[i].Quantity
		if err := s.PurchaseOrders().UpdateLineReceived(ctx, l); err != nil {
			return nil, fmt.Errorf("actualizar línea %s: %w", l.ID, err)
		}
		_, err := r.ledger.IncrementInTx(ctx, s, appinventory.MovementInput{
			ProductID:   l.ProductID,
			WarehouseID: wh.ID,
			Quantity:    qty,
			Reference:   ref,
			Reason:      "recepción " + receipt.Number + " de orden " + order.Number,
			ActorID:     in.ActorID,
		}, now)
		if err != nil {
			return nil, err
		}
		receipt.Lines = append(receipt.Lines, entity.ReceiptLine{
			ID:          uuid.New().String(),
			ReceiptID:   receiptID,
			OrderLineID: l.ID,
			ProductID:   l.ProductID,
			Quantity:    qty,
		})
	}
	if err := s.Receipts().Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("guardar recepción %s: %w", receipt.Number, err)
	}

	prev := order.Status
	if order.RecomputeStatus() != prev {
		order.UpdatedAt = now
		if err := s.PurchaseOrders().UpdateStatus(ctx, order); err != nil {
			return nil, fmt.Errorf("actualizar estado de la orden: %w", err)
		}
		r.log.Debug().Str("order_id", order.ID).Str("from", string(prev)).Str("to", string(order.Status)).Msg("estado de orden recalculado")
	}
	return receipt, nil
}

// orderLine devuelve la línea de la orden bloqueada. Una línea de otra orden es un error de
// conciliación, no una línea inexistente.
func (r *Reconciler) orderLine(ctx context.Context, s repository.Store, order *entity.PurchaseOrder, lineID string) (*entity.PurchaseOrderLine, error) {
	if line, ok := order.Line(lineID); ok {
		return line, nil
	}
	other, err := s.PurchaseOrders().GetLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("buscar línea: %w", err)
	}
	if other == nil {
		return nil, fmt.Errorf("%w: línea de orden %s", domain.ErrNotFound, lineID)
	}
	return nil, fmt.Errorf("%w: línea %s es de la orden %s, no de %s", domain.ErrReceiptOrderMismatch, lineID, other.OrderID, order.ID)
}

// RegisterLineReceipt registra la recepción de una sola línea en el depósito destino de su orden.
func (r *Reconciler) RegisterLineReceipt(ctx context.Context, lineID string, qty int64, actorID string) (*entity.Receipt, error) {
	line, err := r.reader.PurchaseOrders().GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, fmt.Errorf("%w: línea de orden %s", domain.ErrNotFound, lineID)
	}
	return r.RegisterReceipt(ctx, ReceiptInput{
		OrderID: line.OrderID,
		ActorID: actorID,
		Lines:   []ReceiptLineInput{{LineID: lineID, Quantity: qty}},
	})
}

// Order devuelve la orden con lo pendiente por línea.
func (r *Reconciler) Order(ctx context.Context, orderID string) (*dto.PurchaseOrderResponse, error) {
	o, err := r.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := &dto.PurchaseOrderResponse{
		ID:          o.ID,
		Number:      o.Number,
		SupplierID:  o.SupplierID,
		WarehouseID: o.WarehouseID,
		Status:      string(o.Status),
		Lines:       make([]dto.PurchaseOrderLineResponse, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, dto.PurchaseOrderLineResponse{
			ID:               l.ID,
			ProductID:        l.ProductID,
			QuantityOrdered:  l.QuantityOrdered,
			QuantityReceived: l.QuantityReceived,
			Remaining:        l.Remaining(),
			UnitPrice:        l.UnitPrice.StringFixed(2),
		})
	}
	return resp, nil
}

// Remaining total pendiente de recibir en la orden.
func (r *Reconciler) Remaining(ctx context.Context, orderID string) (int64, error) {
	o, err := r.load(ctx, orderID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, l := range o.Lines {
		total += l.Remaining()
	}
	return total, nil
}

// Receipts lista las recepciones de la orden en orden de registro.
func (r *Reconciler) Receipts(ctx context.Context, orderID string) ([]*entity.Receipt, error) {
	if _, err := r.load(ctx, orderID); err != nil {
		return nil, err
	}
	return r.reader.Receipts().ListByOrder(ctx, orderID)
}

func (r *Reconciler) load(ctx context.Context, orderID string) (*entity.PurchaseOrder, error) {
	o, err := r.reader.PurchaseOrders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: orden de compra %s", domain.ErrNotFound, orderID)
	}
	return o, nil
}
