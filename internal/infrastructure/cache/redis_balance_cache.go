package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/pkg/config"
)

var _ inventory.BalanceCache = (*RedisBalanceCache)(nil)

const defaultKeyPrefix = "ledger:balance:"

// RedisBalanceCache guarda saldos para lecturas de Available. Es una copia tolerante a retrasos:
// el libro la invalida después de cada commit y nunca la consulta para decidir una salida.
type RedisBalanceCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisBalanceCache conecta con Redis y verifica la conexión.
func NewRedisBalanceCache(ctx context.Context, cfg config.RedisConfig) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar a Redis: %w", err)
	}
	return NewRedisBalanceCacheWithClient(client, ""), nil
}

// NewRedisBalanceCacheWithClient usa un cliente existente. keyPrefix vacío usa "ledger:balance:".
func NewRedisBalanceCacheWithClient(client *redis.Client, keyPrefix string) *RedisBalanceCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisBalanceCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisBalanceCache) key(productID, warehouseID string) string {
	return c.keyPrefix + warehouseID + ":" + productID
}

// Get devuelve el saldo cacheado; ok es false si no hay entrada.
func (c *RedisBalanceCache) Get(ctx context.Context, productID, warehouseID string) (int64, bool, error) {
	v, err := c.client.Get(ctx, c.key(productID, warehouseID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("leer saldo cacheado: %w", err)
	}
	qty, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("saldo cacheado inválido %q: %w", v, err)
	}
	return qty, true, nil
}

// Set guarda el saldo con vencimiento ttl.
func (c *RedisBalanceCache) Set(ctx context.Context, productID, warehouseID string, qty int64, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(productID, warehouseID), qty, ttl).Err(); err != nil {
		return fmt.Errorf("guardar saldo cacheado: %w", err)
	}
	return nil
}

// Invalidate borra la entrada del saldo.
func (c *RedisBalanceCache) Invalidate(ctx context.Context, productID, warehouseID string) error {
	if err := c.client.Del(ctx, c.key(productID, warehouseID)).Err(); err != nil {
		return fmt.Errorf("invalidar saldo cacheado: %w", err)
	}
	return nil
}

// Ping verifica la conexión (para /health).
func (c *RedisBalanceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close cierra el cliente.
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}
