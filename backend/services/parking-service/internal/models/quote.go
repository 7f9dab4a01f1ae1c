package models

import (
	"time"

	"github.com/shopspring/decimal"

	"parkflow/backend/services/parking-service/internal/pricing"
	"parkflow/backend/services/parking-service/internal/tariff"
)

// Quote is an unpersisted price offer for a session. Its ID doubles as the
// idempotency key of the session start it leads to.
type Quote struct {
	ID               string              `json:"id"`
	UserID           string              `json:"user_id"`
	SpotID           string              `json:"spot_id"`
	Zone             tariff.Zone         `json:"zone"`
	RequestedMinutes int                 `json:"requested_minutes"`
	StartTime        time.Time           `json:"start_time"`
	EndTime          time.Time           `json:"end_time"`
	Breakdown        pricing.Breakdown   `json:"breakdown"`
	Labels           pricing.Labels      `json:"labels"`
	WalletBalance    decimal.NullDecimal `json:"wallet_balance"`
	Confirmed        bool                `json:"confirmed"`
	IssuedAt         time.Time           `json:"issued_at"`
}

// CoveredByWallet reports whether the known wallet balance pays the total. An
// unknown balance is not treated as zero, so the second result is false then.
func (q Quote) CoveredByWallet() (covered bool, known bool) {
	if !q.WalletBalance.Valid {
		return false, false
	}
	return q.WalletBalance.Decimal.GreaterThanOrEqual(q.Breakdown.TotalCost), true
}
