package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/nimbus-retail/kioskd/internal/model"
)

// Lookuper is the storage side of a price check.
type Lookuper interface {
	Lookup(ctx context.Context, code string) (*model.Product, error)
}

// Service validates codes and fronts the store with a short-TTL cache, so a
// shopper re-scanning the same product does not hammer the retail DB.
type Service struct {
	store Lookuper
	cache *redis.Client
	ttl   time.Duration
}

func NewService(store Lookuper, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{store: store, cache: cache, ttl: ttl}
}

func cacheKey(code string) string { return "kiosk:price:" + code }

// Check resolves a scanned code to a product. Errors are ErrInvalidCode,
// ErrNotFound, or an internal failure.
func (s *Service) Check(ctx context.Context, code string) (*model.Product, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey(code)).Bytes(); err == nil {
			var product model.Product
			if err := json.Unmarshal(cached, &product); err == nil {
				return &product, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("price cache read failed")
		}
	}

	product, err := s.store.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(product); err == nil {
			if err := s.cache.Set(ctx, cacheKey(code), payload, s.ttl).Err(); err != nil {
				log.Warn().Err(err).Msg("price cache write failed")
			}
		}
	}
	return product, nil
}
