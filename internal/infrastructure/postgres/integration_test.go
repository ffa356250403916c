//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/taller-core/internal/application/documents"
	"github.com/jhoicas/taller-core/internal/application/fulfillment"
	"github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/application/purchasing"
	"github.com/jhoicas/taller-core/internal/application/sequence"
	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	"github.com/jhoicas/taller-core/internal/infrastructure/migration"
	"github.com/jhoicas/taller-core/internal/infrastructure/postgres"
	"github.com/jhoicas/taller-core/migrations"
	"github.com/jhoicas/taller-core/pkg/config"
	"github.com/jhoicas/taller-core/pkg/logger"
)

const actor = "integracion"

var dsn string

// TestMain levanta un PostgreSQL efímero para todo el paquete y aplica las migraciones.
func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "iniciar contenedor:", err)
		os.Exit(1)
	}
	dsn, err = container.ConnectionString(ctx, "sslmode=disable")
	if err == nil {
		err = migrateUp(dsn)
	}
	code := 1
	if err != nil {
		fmt.Fprintln(os.Stderr, "preparar base:", err)
	} else {
		code = m.Run()
	}
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func migrateUp(dsn string) error {
	mg, err := migration.New(migrations.FS, dsn, logger.Nop())
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}

type fixture struct {
	pool   *pgxpool.Pool
	tx     *postgres.TxRunner
	reader repository.Store
	ledger *inventory.Ledger
	issuer *documents.Issuer
}

// setup conecta un pool nuevo sobre tablas vacías y con el depósito "main".
func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 8}, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	seqPool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 2}, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(seqPool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE warehouses, stock_records, stock_movements, document_sequences, documents,
		purchase_orders, purchase_order_lines, receipts, receipt_lines, fulfillments, fulfillment_lines CASCADE`)
	require.NoError(t, err)

	reader := postgres.NewReader(pool)
	require.NoError(t, reader.Warehouses().Create(ctx, &entity.Warehouse{
		ID: "main", Name: "Main", Principal: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))

	tx := postgres.NewTxRunner(pool, 2*time.Second, 3, logger.Nop(), nil).WithSequencePool(seqPool)
	cfg := sequence.DefaultConfig()
	gen, err := sequence.NewGenerator(tx, reader, cfg, logger.Nop(), nil)
	require.NoError(t, err)
	return fixture{
		pool:   pool,
		tx:     tx,
		reader: reader,
		ledger: inventory.NewLedger(tx, reader, inventory.Config{}, nil, logger.Nop(), nil),
		issuer: documents.NewIssuer(tx, reader, gen, logger.Nop()),
	}
}

func TestConcurrentDecrementNeverOversells(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.ledger.Increment(ctx, inventory.MovementInput{ProductID: "P1", WarehouseID: "main", Quantity: 10, ActorID: actor})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, short int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.ledger.Decrement(ctx, inventory.MovementInput{
				ProductID: "P1", WarehouseID: "main", Quantity: 1, ActorID: actor,
				Reference: entity.SaleRef(fmt.Sprintf("S%d", i)),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				short++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, short)
	qty, err := f.ledger.Available(ctx, "P1", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(0), qty)

	movs, err := f.ledger.Movements(ctx, repository.MovementFilter{ProductID: "P1", Limit: 100})
	require.NoError(t, err)
	assert.Len(t, movs, 11)
	last := movs[len(movs)-1]
	assert.Equal(t, int64(0), last.QuantityAfter)
}

func TestStockCheckRejectsNegativeBalance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	err := f.tx.Run(ctx, func(ctx context.Context, s repository.Store) error {
		rec, err := s.Stock().GetForUpdate(ctx, "P1", "main")
		if err != nil {
			return err
		}
		rec.Quantity = -1
		return s.Stock().Save(ctx, rec)
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestRolledBackNumberIsBurned(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	boom := errors.New("falla posterior")

	err := f.tx.Run(ctx, func(ctx context.Context, s repository.Store) error {
		if _, err := f.issuer.IssueInTx(ctx, s, documents.IssueInput{
			Entity: entity.SaleRef("S1"), Type: entity.DocumentTicket, ActorID: actor,
		}, time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = f.issuer.Current(ctx, entity.SaleRef("S1"), entity.DocumentTicket)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	doc, err := f.issuer.Issue(ctx, documents.IssueInput{Entity: entity.SaleRef("S2"), Type: entity.DocumentTicket, ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "V0001-000002", doc.Number)
}

func TestConcurrentAllocationsAreUnique(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const n = 30
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := f.issuer.Issue(ctx, documents.IssueInput{
				Entity: entity.RepairRef(fmt.Sprintf("R%d", i)), Type: entity.DocumentRepairOrder, ActorID: actor,
			})
			if assert.NoError(t, err) {
				numbers <- doc.Number
			}
		}(i)
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "número repetido %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen[fmt.Sprintf("R0001-%06d", n)])
}

func TestReceivedCheckRejectsExcess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rec := purchasing.NewReconciler(f.tx, f.reader, f.ledger, f.issuer, logger.Nop())
	o, err := rec.CreateOrder(ctx, purchasing.CreateOrderInput{
		SupplierID: "prov-1", ActorID: actor,
		Lines: []purchasing.OrderLineInput{{ProductID: "Q", Quantity: 100, UnitPrice: decimal.RequireFromString("9.99")}},
	})
	require.NoError(t, err)

	line := o.Lines[0]
	line.QuantityReceived = 101
	err = postgres.NewPurchaseOrderRepository(f.pool).UpdateLineReceived(ctx, &line)
	assert.ErrorIs(t, err, domain.ErrExceedsOrdered)

	_, err = rec.RegisterLineReceipt(ctx, line.ID, 40, actor)
	require.NoError(t, err)
	_, err = rec.RegisterLineReceipt(ctx, line.ID, 70, actor)
	assert.ErrorIs(t, err, domain.ErrExceedsOrdered)

	got, err := rec.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.Lines[0].QuantityReceived)
	assert.Equal(t, "9.99", got.Lines[0].UnitPrice)
	qty, err := f.ledger.Available(ctx, "Q", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(40), qty)
}

func TestFulfillmentUnknownWarehouseIsNotFound(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := fulfillment.NewService(f.tx, f.reader, f.ledger, fulfillment.Config{}, logger.Nop())

	_, err := svc.Apply(ctx, fulfillment.ApplyInput{
		Order:   entity.SaleRef("S-404"),
		Lines:   []entity.FulfillmentLine{{ProductID: "P1", WarehouseID: "ghost", Quantity: 1}},
		ActorID: actor,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	var rows int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(*) FROM stock_records WHERE warehouse_id = 'ghost'`).Scan(&rows))
	assert.Zero(t, rows)
}

func TestConcurrentFulfillmentAppliesOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.ledger.Increment(ctx, inventory.MovementInput{ProductID: "P1", WarehouseID: "main", Quantity: 10, ActorID: actor})
	require.NoError(t, err)
	svc := fulfillment.NewService(f.tx, f.reader, f.ledger, fulfillment.Config{}, logger.Nop())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Apply(ctx, fulfillment.ApplyInput{
				Order:   entity.SaleRef("S1"),
				Lines:   []entity.FulfillmentLine{{ProductID: "P1", WarehouseID: "main", Quantity: 2}},
				ActorID: actor,
			})
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrAlreadyApplied)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	qty, err := f.ledger.Available(ctx, "P1", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(8), qty)

	_, err = svc.Reverse(ctx, fulfillment.ReverseInput{Order: entity.SaleRef("S1"), Reason: "cliente desiste", ActorID: actor})
	require.NoError(t, err)
	qty, err = f.ledger.Available(ctx, "P1", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(10), qty)
}

func TestSinglePrincipalWarehouse(t *testing.T) {
	f := setup(t)
	err := f.reader.Warehouses().Create(context.Background(), &entity.Warehouse{
		ID: "norte", Name: "Norte", Principal: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}
