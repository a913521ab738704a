package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"pricefeed/internal/provider"
)

const DefaultKeyPrefix = "pricefeed:quote:"

// RedisStore shares cached quotes between instances. Values are JSON and
// expire through Redis TTLs.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

type record struct {
	Symbol      string           `json:"symbol"`
	Name        string           `json:"name"`
	Price       decimal.Decimal  `json:"price"`
	Change24h   decimal.Decimal  `json:"change_24h"`
	MarketCap   *decimal.Decimal `json:"market_cap,omitempty"`
	Volume24h   *decimal.Decimal `json:"volume_24h,omitempty"`
	LastUpdated *time.Time       `json:"last_updated,omitempty"`
}

func (r *RedisStore) key(symbol string) string { return r.prefix + symbol }

func (r *RedisStore) Get(ctx context.Context, symbol string) (provider.Quote, bool, error) {
	raw, err := r.client.Get(ctx, r.key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return provider.Quote{}, false, nil
	}
	if err != nil {
		return provider.Quote{}, false, fmt.Errorf("get %s: %w", symbol, err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return provider.Quote{}, false, fmt.Errorf("decode %s: %w", symbol, err)
	}
	return provider.Quote(rec), true, nil
}

func (r *RedisStore) Set(ctx context.Context, q provider.Quote, ttl time.Duration) error {
	raw, err := json.Marshal(record(q))
	if err != nil {
		return fmt.Errorf("encode %s: %w", q.Symbol, err)
	}
	if err := r.client.Set(ctx, r.key(q.Symbol), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", q.Symbol, err)
	}
	return nil
}

// Ping checks connectivity at startup.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
