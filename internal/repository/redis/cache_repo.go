package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/market-crawler/internal/cfg"
	"github.com/DRSN-tech/market-crawler/internal/domain"
	"github.com/DRSN-tech/market-crawler/internal/repository/redis/converter"
	"github.com/DRSN-tech/market-crawler/pkg/clients"
	"github.com/DRSN-tech/market-crawler/pkg/e"
	"github.com/DRSN-tech/market-crawler/pkg/logger"
	"github.com/jimlawless/whereami"
	goredis "github.com/redis/go-redis/v9"
)

// CacheRepo хранит курсы валют в Redis с коротким TTL.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ExchangeRateConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Get возвращает курс из кэша или e.ErrNotFound при промахе.
// Повреждённая запись удаляется и считается промахом.
func (r *CacheRepo) Get(ctx context.Context, currency domain.Currency) (*domain.ExchangeRate, error) {
	key := r.rateKey(currency)

	data, err := r.client.Client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, e.ErrNotFound
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.ExchangeRateRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		r.dropBroken(ctx, key, err)
		return nil, e.ErrNotFound
	}

	rate, err := r.conv.ToDomain(&model)
	if err != nil || rate.Currency != currency {
		r.dropBroken(ctx, key, fmt.Errorf("cached rate for %s is invalid: %v", currency, err))
		return nil, e.ErrNotFound
	}

	return rate, nil
}

// Set кэширует курс с TTL из конфигурации.
func (r *CacheRepo) Set(ctx context.Context, rate *domain.ExchangeRate) error {
	data, err := json.Marshal(r.conv.ToRedisModel(rate))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := r.client.Client.Set(ctx, r.rateKey(rate.Currency), data, r.cfg.ExchangeRateTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// Invalidate удаляет курсы из кэша
func (r *CacheRepo) Invalidate(ctx context.Context, currencies []domain.Currency) error {
	if len(currencies) == 0 {
		return nil
	}

	keys := make([]string, len(currencies))
	for i, c := range currencies {
		keys[i] = r.rateKey(c)
	}

	if err := r.client.Client.Del(ctx, keys...).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

func (r *CacheRepo) dropBroken(ctx context.Context, key string, cause error) {
	r.logger.Warnf("Redis cache entry %s is broken: %v", key, cause)
	if err := r.client.Client.Del(ctx, key).Err(); err != nil {
		r.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// rateKey возвращает Redis-ключ для курса валюты
func (r *CacheRepo) rateKey(currency domain.Currency) string {
	return fmt.Sprintf("exchange_rate:%s", currency)
}
