package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	libredis "parkflow/backend/libs/redis"
	"parkflow/backend/services/parking-service/internal/models"
	"parkflow/backend/services/parking-service/internal/service"
	"parkflow/backend/services/parking-service/internal/tariff"
)

func TestQuoteKey(t *testing.T) {
	if got := quoteKey("abc"); got != "parking:quotes:abc" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestRemainingTTLCountsFromIssue(t *testing.T) {
	issued := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	quote := models.Quote{ID: "q", IssuedAt: issued}

	if got := remainingTTL(quote, 15*time.Minute, issued.Add(10*time.Minute)); got != 5*time.Minute {
		t.Fatalf("re-save must keep the original expiry, got %s", got)
	}
	if got := remainingTTL(quote, 15*time.Minute, issued.Add(20*time.Minute)); got > 0 {
		t.Fatalf("expired quote must not get a ttl, got %s", got)
	}
	if got := remainingTTL(models.Quote{ID: "q"}, time.Minute, issued); got != time.Minute {
		t.Fatalf("quote without issue time gets the full ttl, got %s", got)
	}
}

// Needs a disposable redis; set PARKFLOW_TEST_REDIS_ADDR to run.
func TestQuoteStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("PARKFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PARKFLOW_TEST_REDIS_ADDR not set")
	}
	client, err := libredis.NewRedisClient(libredis.Options{Addr: addr})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	store := NewQuoteStore(client, time.Minute)
	ctx := context.Background()
	quote := models.Quote{
		ID:               "test-" + time.Now().Format("150405.000000"),
		UserID:           "u1",
		Zone:             tariff.ZoneYellow,
		RequestedMinutes: 300,
		WalletBalance:    decimal.NewNullDecimal(decimal.RequireFromString("12.50")),
	}
	if err := store.Save(ctx, quote); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, quote.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u1" || got.RequestedMinutes != 300 || !got.WalletBalance.Decimal.Equal(quote.WalletBalance.Decimal) {
		t.Fatalf("unexpected quote %+v", got)
	}
	if err := store.Delete(ctx, quote.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, quote.ID); !errors.Is(err, service.ErrQuoteNotFound) {
		t.Fatalf("expected ErrQuoteNotFound, got %v", err)
	}
}
