package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/durationfmt"
	"parkflow/backend/services/parking-service/internal/http/middleware"
	"parkflow/backend/services/parking-service/internal/pricing"
	"parkflow/backend/services/parking-service/internal/service"
	"parkflow/backend/services/parking-service/internal/tariff"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}

// parseDuration accepts "H:MM" and ISO "PT{H}H{M}M".
func parseDuration(raw string) (int, error) {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(raw)), "PT") {
		return durationfmt.ParseISOPeriod(raw)
	}
	return durationfmt.ParseClock(raw)
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		zoneErr      *tariff.UnknownZoneError
		formatErr    *durationfmt.FormatError
		limitErr     *service.DurationLimitError
		startErr     *service.StartError
		extendErr    *service.ExtendError
		remoteErr    *service.RemoteError
		transportErr *service.TransportError
	)
	switch {
	case errors.As(err, &zoneErr), errors.As(err, &formatErr),
		errors.Is(err, pricing.ErrNegativeDuration),
		errors.Is(err, service.ErrPlateRequired),
		errors.Is(err, service.ErrSessionIDRequired),
		errors.Is(err, service.ErrInvalidExtension):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &limitErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":       err.Error(),
			"max_minutes": limitErr.MaxMinutes,
		})
	case errors.Is(err, service.ErrQuoteNotFound):
		writeError(w, http.StatusNotFound, "quote not found or expired")
	case errors.Is(err, service.ErrQuoteOwner):
		writeError(w, http.StatusForbidden, "quote belongs to another user")
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "session is not active")
	case errors.As(err, &startErr):
		writeJSON(w, http.StatusConflict, map[string]string{"error": startErr.Reason, "code": startErr.Code})
	case errors.As(err, &extendErr):
		status := http.StatusConflict
		if extendErr.Kind == service.ExtendInsufficientBalance {
			status = http.StatusPaymentRequired
		}
		writeJSON(w, status, map[string]string{"error": extendErr.Message, "kind": string(extendErr.Kind)})
	case errors.As(err, &remoteErr):
		writeJSON(w, http.StatusConflict, map[string]string{"error": remoteErr.Message, "code": remoteErr.Code})
	case errors.As(err, &transportErr):
		logger.Error("session store unavailable", zap.String("op", transportErr.Op), zap.Error(transportErr.Err))
		writeError(w, http.StatusBadGateway, "session store unavailable")
	default:
		logger.Error("unexpected error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
