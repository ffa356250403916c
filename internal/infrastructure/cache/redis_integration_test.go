//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/infrastructure/cache"
	"github.com/jhoicas/taller-core/internal/infrastructure/memory"
	"github.com/jhoicas/taller-core/pkg/config"
	"github.com/jhoicas/taller-core/pkg/logger"
)

func startRedis(t *testing.T) *cache.RedisBalanceCache {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	addr, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	rc, err := cache.NewRedisBalanceCache(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestRedisBalanceCache(t *testing.T) {
	rc := startRedis(t)
	ctx := context.Background()

	_, ok, err := rc.Get(ctx, "P1", "main")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.Set(ctx, "P1", "main", 12, time.Minute))
	qty, ok, err := rc.Get(ctx, "P1", "main")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(12), qty)

	require.NoError(t, rc.Invalidate(ctx, "P1", "main"))
	_, ok, err = rc.Get(ctx, "P1", "main")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerInvalidaTrasCommit(t *testing.T) {
	rc := startRedis(t)
	ctx := context.Background()
	db := memory.New()
	require.NoError(t, db.Reader().Warehouses().Create(ctx, &entity.Warehouse{ID: "main", Name: "Main", Principal: true}))
	ledger := inventory.NewLedger(db, db.Reader(), inventory.Config{CacheTTL: time.Minute}, rc, logger.Nop(), nil)

	_, err := ledger.Increment(ctx, inventory.MovementInput{ProductID: "P1", WarehouseID: "main", Quantity: 5, ActorID: "u1"})
	require.NoError(t, err)
	qty, err := ledger.Available(ctx, "P1", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(5), qty)

	cached, ok, err := rc.Get(ctx, "P1", "main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), cached)

	_, err = ledger.Decrement(ctx, inventory.MovementInput{ProductID: "P1", WarehouseID: "main", Quantity: 2, ActorID: "u1"})
	require.NoError(t, err)
	_, ok, err = rc.Get(ctx, "P1", "main")
	require.NoError(t, err)
	assert.False(t, ok, "el saldo cacheado se invalida tras el commit")

	qty, err = ledger.Available(ctx, "P1", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(3), qty)
}
