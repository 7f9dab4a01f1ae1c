package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"parkflow/backend/services/parking-service/internal/models"
	"parkflow/backend/services/parking-service/internal/service"
)

// QuoteStore keeps issued quotes in redis so any instance can start a session
// from them.
type QuoteStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuoteStore returns redis-backed store.
func NewQuoteStore(client *redis.Client, ttl time.Duration) *QuoteStore {
	return &QuoteStore{client: client, ttl: ttl}
}

func quoteKey(id string) string {
	return fmt.Sprintf("parking:quotes:%s", id)
}

// remainingTTL is how long quote may still live in redis.
func remainingTTL(quote models.Quote, ttl time.Duration, now time.Time) time.Duration {
	return service.QuoteExpiry(quote, ttl, now).Sub(now)
}

// Save stores quote until its issue time plus the store TTL.
func (s *QuoteStore) Save(ctx context.Context, quote models.Quote) error {
	ttl := remainingTTL(quote, s.ttl, time.Now())
	if ttl <= 0 {
		if err := s.client.Del(ctx, quoteKey(quote.ID)).Err(); err != nil {
			return err
		}
		return service.ErrQuoteNotFound
	}
	data, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, quoteKey(quote.ID), data, ttl).Err()
}

// Get returns the quote or service.ErrQuoteNotFound.
func (s *QuoteStore) Get(ctx context.Context, id string) (models.Quote, error) {
	result, err := s.client.Get(ctx, quoteKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Quote{}, service.ErrQuoteNotFound
	}
	if err != nil {
		return models.Quote{}, err
	}
	var quote models.Quote
	if err := json.Unmarshal([]byte(result), &quote); err != nil {
		return models.Quote{}, err
	}
	return quote, nil
}

// Delete removes quote.
func (s *QuoteStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, quoteKey(id)).Err()
}
