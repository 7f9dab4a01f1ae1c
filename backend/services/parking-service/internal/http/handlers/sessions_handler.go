package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/models"
	"parkflow/backend/services/parking-service/internal/pricing"
	"parkflow/backend/services/parking-service/internal/service"
)

type startSessionRequest struct {
	QuoteID     string `json:"quote_id"`
	PlateNumber string `json:"plate_number"`
}

type extendSessionRequest struct {
	AdditionalDuration string `json:"additional_duration"`
	IdempotencyKey     string `json:"idempotency_key,omitempty"`
}

type extensionResponse struct {
	SessionID        string    `json:"session_id"`
	AddedMinutes     int       `json:"added_minutes"`
	NewEndTime       time.Time `json:"new_end_time"`
	EstimatedCost    string    `json:"estimated_cost"`
	AdditionalCost   *string   `json:"additional_cost"`
	RemainingBalance *string   `json:"remaining_balance"`
}

func newExtensionResponse(res *models.ExtensionResult) extensionResponse {
	resp := extensionResponse{
		SessionID:     res.SessionID,
		AddedMinutes:  res.AddedMinutes,
		NewEndTime:    res.NewEndTime,
		EstimatedCost: pricing.FormatAmount(res.EstimatedCost),
	}
	if res.AdditionalCost.Valid {
		charged := pricing.FormatAmount(res.AdditionalCost.Decimal)
		resp.AdditionalCost = &charged
	}
	if res.RemainingBalance.Valid {
		balance := pricing.FormatAmount(res.RemainingBalance.Decimal)
		resp.RemainingBalance = &balance
	}
	return resp
}

// NewStartSessionHandler returns POST /api/sessions handler.
func NewStartSessionHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req startSessionRequest
		if err := decodeJSON(r, &req); err != nil || req.QuoteID == "" {
			writeError(w, http.StatusBadRequest, "quote_id and plate_number required")
			return
		}
		session, err := svc.StartQuoted(r.Context(), userID, req.QuoteID, req.PlateNumber)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	}
}

// NewActiveSessionsHandler returns GET /api/sessions/active handler.
func NewActiveSessionsHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		sessions, err := svc.ActiveSessions(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
	}
}

// NewSessionsMeHandler returns GET /api/sessions/me handler.
func NewSessionsMeHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		sessions, err := svc.History(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
	}
}

// NewExtendSessionHandler returns POST /api/sessions/{id}/extend handler. The
// extension is priced in the zone of the caller's session.
func NewExtendSessionHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var req extendSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		minutes, err := parseDuration(req.AdditionalDuration)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		res, err := svc.ExtendSession(r.Context(), service.ExtendInput{
			UserID:            userID,
			SessionID:         mux.Vars(r)["id"],
			AdditionalMinutes: minutes,
			IdempotencyKey:    req.IdempotencyKey,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newExtensionResponse(res))
	}
}

// NewEndSessionHandler returns POST /api/sessions/{id}/end handler.
func NewEndSessionHandler(svc *service.ParkingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		session, err := svc.EndSession(r.Context(), userID, mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}
