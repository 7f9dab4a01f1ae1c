package service

import (
	"context"
	"sync"
	"time"

	"parkflow/backend/services/parking-service/internal/models"
)

// QuoteStore keeps issued quotes until a session is started from them or they
// expire.
type QuoteStore interface {
	Save(ctx context.Context, quote models.Quote) error
	Get(ctx context.Context, id string) (models.Quote, error)
	Delete(ctx context.Context, id string) error
}

type storedQuote struct {
	quote     models.Quote
	expiresAt time.Time
}

// MemoryQuoteStore is a process-local QuoteStore for single-instance runs.
type MemoryQuoteStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]storedQuote
}

// NewMemoryQuoteStore returns initialized store.
func NewMemoryQuoteStore(ttl time.Duration) *MemoryQuoteStore {
	return &MemoryQuoteStore{
		ttl:  ttl,
		data: make(map[string]storedQuote),
	}
}

// QuoteExpiry is the issue time of quote plus ttl. Quotes without an issue
// time count from now.
func QuoteExpiry(quote models.Quote, ttl time.Duration, now time.Time) time.Time {
	if quote.IssuedAt.IsZero() {
		return now.Add(ttl)
	}
	return quote.IssuedAt.Add(ttl)
}

// Save stores quote, replacing any quote with the same id. The expiry counts
// from the quote's issue time, so saving again does not extend it. Expired
// entries are dropped on the way.
func (s *MemoryQuoteStore) Save(_ context.Context, quote models.Quote) error {
	now := nowFunc()
	expiresAt := QuoteExpiry(quote, s.ttl, now)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range s.data {
		if now.After(q.expiresAt) {
			delete(s.data, id)
		}
	}
	if now.After(expiresAt) {
		delete(s.data, quote.ID)
		return ErrQuoteNotFound
	}
	s.data[quote.ID] = storedQuote{quote: quote, expiresAt: expiresAt}
	return nil
}

// Get returns the quote or ErrQuoteNotFound.
func (s *MemoryQuoteStore) Get(_ context.Context, id string) (models.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.data[id]
	if !ok || nowFunc().After(q.expiresAt) {
		return models.Quote{}, ErrQuoteNotFound
	}
	return q.quote, nil
}

// Delete removes the quote.
func (s *MemoryQuoteStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// Len returns number of stored quotes, expired ones included.
func (s *MemoryQuoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
