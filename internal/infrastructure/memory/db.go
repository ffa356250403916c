// Package memory implementa los repositorios en memoria con la misma semántica de bloqueo que
// PostgreSQL: bloqueo de fila hasta el fin de la transacción, espera acotada por lock timeout y
// rollback completo. Lo usan los tests de aplicación y el modo local sin base de datos.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/inventory"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.TxRunner = (*DB)(nil)

const defaultLockTimeout = 2 * time.Second

type seqKey struct {
	family entity.SequenceFamily
	key    string
}

// DB guarda todas las tablas. mu protege los datos; los bloqueos de fila viven en locks y se
// mantienen mientras dure la transacción que los tomó.
type DB struct {
	lockTimeout time.Duration

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	mu           sync.Mutex
	warehouses   map[string]entity.Warehouse
	stock        map[inventory.StockKey]entity.StockRecord
	movements    []entity.StockMovement
	sequences    map[seqKey]int64
	documents    map[string]entity.Document
	docNumbers   map[string]string
	docOrder     []string
	orders       map[string]entity.PurchaseOrder
	orderNumbers map[string]string
	lines        map[string]entity.PurchaseOrderLine
	orderLines   map[string][]string
	receipts     []entity.Receipt
	fulfillments map[string]entity.Fulfillment
}

// Option configura la base en memoria.
type Option func(*DB)

// WithLockTimeout fija la espera máxima por un bloqueo de fila.
func WithLockTimeout(d time.Duration) Option {
	return func(db *DB) {
		if d > 0 {
			db.lockTimeout = d
		}
	}
}

// New crea una base vacía.
func New(opts ...Option) *DB {
	db := &DB{
		lockTimeout:  defaultLockTimeout,
		locks:        make(map[string]chan struct{}),
		warehouses:   make(map[string]entity.Warehouse),
		stock:        make(map[inventory.StockKey]entity.StockRecord),
		sequences:    make(map[seqKey]int64),
		documents:    make(map[string]entity.Document),
		docNumbers:   make(map[string]string),
		orders:       make(map[string]entity.PurchaseOrder),
		orderNumbers: make(map[string]string),
		lines:        make(map[string]entity.PurchaseOrderLine),
		orderLines:   make(map[string][]string),
		fulfillments: make(map[string]entity.Fulfillment),
	}
	for _, o := range opts {
		o(db)
	}
	return db
}

// Run ejecuta fn en una transacción: los bloqueos se liberan al terminar, los cambios se deshacen
// si fn devuelve error (o entra en pánico) y los hooks AfterCommit corren solo tras confirmar.
func (db *DB) Run(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{db: db, locking: true, held: make(map[string]chan struct{})}
	committed := false
	defer func() {
		if !committed {
			t.rollback()
		}
	}()

	if err := fn(ctx, t); err != nil {
		return err
	}
	hooks := t.commit()
	committed = true
	for _, h := range hooks {
		h()
	}
	return nil
}

// Reader devuelve un Store sin transacción: no bloquea, escribe de inmediato y ejecuta los
// hooks AfterCommit en el acto. Equivale a usar el pool fuera de una transacción.
func (db *DB) Reader() repository.Store {
	return &tx{db: db}
}

// tx implementa repository.Store para una transacción (locking) o para lecturas directas.
type tx struct {
	db      *DB
	locking bool
	held    map[string]chan struct{}
	undo    []func()
	hooks   []func()
}

func (t *tx) Warehouses() repository.WarehouseRepository         { return warehouseRepo{t} }
func (t *tx) Stock() repository.StockRepository                  { return stockRepo{t} }
func (t *tx) Movements() repository.StockMovementRepository      { return movementRepo{t} }
func (t *tx) Sequences() repository.SequenceRepository           { return sequenceRepo{t} }
func (t *tx) Documents() repository.DocumentRepository           { return documentRepo{t} }
func (t *tx) PurchaseOrders() repository.PurchaseOrderRepository { return purchaseOrderRepo{t} }
func (t *tx) Receipts() repository.ReceiptRepository             { return receiptRepo{t} }
func (t *tx) Fulfillments() repository.FulfillmentRepository     { return fulfillmentRepo{t} }

func (t *tx) AfterCommit(fn func()) {
	if !t.locking {
		fn()
		return
	}
	t.hooks = append(t.hooks, fn)
}

// lock toma el bloqueo de la fila key hasta el fin de la transacción. Fuera de transacción no hace nada.
func (t *tx) lock(ctx context.Context, key string) error {
	if !t.locking {
		return ctx.Err()
	}
	if _, ok := t.held[key]; ok {
		return nil
	}
	ch, err := t.db.acquire(ctx, key)
	if err != nil {
		return err
	}
	t.held[key] = ch
	return nil
}

// acquire espera el bloqueo de key como mucho lockTimeout. Liberar con <-ch.
func (db *DB) acquire(ctx context.Context, key string) (chan struct{}, error) {
	db.locksMu.Lock()
	ch, ok := db.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		db.locks[key] = ch
	}
	db.locksMu.Unlock()

	timer := time.NewTimer(db.lockTimeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return ch, nil
	case <-timer.C:
		return nil, domain.ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// write ejecuta apply bajo el mutex de datos y registra su inversa para el rollback.
// Si apply falla no debe haber modificado nada.
func (t *tx) write(apply func() (undo func(), err error)) error {
	t.db.mu.Lock()
	u, err := apply()
	t.db.mu.Unlock()
	if err != nil {
		return err
	}
	if t.locking && u != nil {
		t.undo = append(t.undo, u)
	}
	return nil
}

func (t *tx) read(fn func()) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	fn()
}

func (t *tx) commit() []func() {
	hooks := t.hooks
	t.undo = nil
	t.hooks = nil
	t.release()
	return hooks
}

func (t *tx) rollback() {
	t.db.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.db.mu.Unlock()
	t.undo = nil
	t.hooks = nil
	t.release()
}

func (t *tx) release() {
	for k, ch := range t.held {
		<-ch
		delete(t.held, k)
	}
}
