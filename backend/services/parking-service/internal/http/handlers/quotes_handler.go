package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/durationfmt"
	"parkflow/backend/services/parking-service/internal/models"
	"parkflow/backend/services/parking-service/internal/pricing"
	"parkflow/backend/services/parking-service/internal/service"
	"parkflow/backend/services/parking-service/internal/tariff"
)

type createQuoteRequest struct {
	SpotID   string `json:"spot_id"`
	Zone     string `json:"zone"`
	Duration string `json:"duration"`
}

type quoteResponse struct {
	ID                  string         `json:"id"`
	SpotID              string         `json:"spot_id"`
	Zone                tariff.Zone    `json:"zone"`
	Duration            string         `json:"duration"`
	StartTime           time.Time      `json:"start_time"`
	EndTime             time.Time      `json:"end_time"`
	FirstPeriodCost     string         `json:"first_period_cost"`
	SecondPeriodCost    *string        `json:"second_period_cost"`
	TotalCost           string         `json:"total_cost"`
	Labels              pricing.Labels `json:"labels"`
	WalletBalance       *string        `json:"wallet_balance"`
	CoveredByWallet     *bool          `json:"covered_by_wallet"`
	Confirmed           bool           `json:"confirmed"`
	ExceedsZoneMaxLimit bool           `json:"exceeds_zone_max"`
}

func newQuoteResponse(q models.Quote) quoteResponse {
	resp := quoteResponse{
		ID:              q.ID,
		SpotID:          q.SpotID,
		Zone:            q.Zone,
		Duration:        durationfmt.FormatClock(q.RequestedMinutes),
		StartTime:       q.StartTime,
		EndTime:         q.EndTime,
		FirstPeriodCost: pricing.FormatAmount(q.Breakdown.FirstPeriodCost),
		TotalCost:       pricing.FormatAmount(q.Breakdown.TotalCost),
		Labels:          q.Labels,
		Confirmed:       q.Confirmed,
	}
	if q.Breakdown.HasSecondPeriod {
		second := pricing.FormatAmount(q.Breakdown.SecondPeriodCost)
		resp.SecondPeriodCost = &second
	}
	if covered, known := q.CoveredByWallet(); known {
		balance := pricing.FormatAmount(q.WalletBalance.Decimal)
		resp.WalletBalance = &balance
		resp.CoveredByWallet = &covered
	}
	if s, err := tariff.Lookup(q.Zone); err == nil {
		resp.ExceedsZoneMaxLimit = s.ExceedsMax(q.RequestedMinutes)
	}
	return resp
}

// NewCreateQuoteHandler returns POST /api/quotes handler.
func NewCreateQuoteHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req createQuoteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		zone, err := tariff.ParseZone(req.Zone)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		minutes, err := parseDuration(req.Duration)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		q, err := svc.IssueQuote(r.Context(), service.QuoteInput{
			UserID:  userID,
			SpotID:  req.SpotID,
			Zone:    zone,
			Minutes: minutes,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newQuoteResponse(q))
	}
}

// NewConfirmQuoteHandler returns POST /api/quotes/{id}/confirm handler.
func NewConfirmQuoteHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		q, err := svc.ConfirmStored(r.Context(), userID, mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newQuoteResponse(q))
	}
}
