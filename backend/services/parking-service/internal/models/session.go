package models

import (
	"time"

	"github.com/shopspring/decimal"

	"parkflow/backend/services/parking-service/internal/tariff"
)

// SessionStatus is the status reported by the remote session store.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusExpired   SessionStatus = "expired"
)

// Session is a parking occupancy as last reported by the remote store.
type Session struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	SpotID          string          `json:"spot_id"`
	Zone            tariff.Zone     `json:"zone"`
	PlateNumber     string          `json:"plate_number"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	DurationMinutes int             `json:"duration_minutes"`
	DurationLabel   string          `json:"duration_label"`
	Cost            decimal.Decimal `json:"cost"`
	Status          SessionStatus   `json:"status"`
	IdempotencyKey  string          `json:"idempotency_key,omitempty"`
}

// IsActive reports whether the store considers the session running.
func (s Session) IsActive() bool {
	return s.Status == SessionStatusActive
}

// ExtensionResult is what a successful extension returns. AdditionalCost is
// the amount the store charged and stays invalid when the store did not say;
// EstimatedCost is the local price sent along with the request.
type ExtensionResult struct {
	SessionID        string              `json:"session_id"`
	AddedMinutes     int                 `json:"added_minutes"`
	NewEndTime       time.Time           `json:"new_end_time"`
	EstimatedCost    decimal.Decimal     `json:"estimated_cost"`
	AdditionalCost   decimal.NullDecimal `json:"additional_cost"`
	RemainingBalance decimal.NullDecimal `json:"remaining_balance"`
}
