package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parkflow/backend/services/parking-service/internal/clients"
	"parkflow/backend/services/parking-service/internal/http/handlers"
	"parkflow/backend/services/parking-service/internal/service"
)

const testSecret = "test-secret"

type stubStore struct {
	mu        sync.Mutex
	starts    []clients.StartRequest
	extends   []clients.ExtendRequest
	ends      []clients.EndRequest
	extendEnv *clients.Envelope
}

// sessions the stub store knows, keyed by owner.
var stubSessions = map[string][]clients.SessionRecord{
	"u1":    {{ID: "sess-1", UserID: null.StringFrom("u1"), Zone: null.StringFrom("green"), Status: "active"}},
	"alice": {{ID: "alice-red-session", UserID: null.StringFrom("alice"), Zone: null.StringFrom("red"), Status: "active"}},
}

func (s *stubStore) CalculateCost(context.Context, clients.CostRequest) (*clients.Envelope, *clients.CostData, error) {
	return &clients.Envelope{Success: true}, &clients.CostData{
		TotalCost: decimal.NewNullDecimal(decimal.RequireFromString("6.36")),
	}, nil
}

func (s *stubStore) StartSession(_ context.Context, req clients.StartRequest) (*clients.Envelope, *clients.SessionRecord, error) {
	s.mu.Lock()
	s.starts = append(s.starts, req)
	s.mu.Unlock()
	return &clients.Envelope{Success: true, SessionID: null.StringFrom("sess-1")},
		&clients.SessionRecord{Status: "active"}, nil
}

func (s *stubStore) ExtendSession(_ context.Context, req clients.ExtendRequest) (*clients.Envelope, *clients.ExtendData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extends = append(s.extends, req)
	if s.extendEnv != nil {
		return s.extendEnv, nil, nil
	}
	return &clients.Envelope{Success: true}, &clients.ExtendData{
		NewEndTime:       null.StringFrom("2024-05-01T14:00:00Z"),
		AdditionalCost:   decimal.NewNullDecimal(decimal.RequireFromString("0.795")),
		RemainingBalance: decimal.NewNullDecimal(decimal.RequireFromString("9.5")),
	}, nil
}

func (s *stubStore) EndSession(_ context.Context, req clients.EndRequest) (*clients.Envelope, *clients.SessionRecord, error) {
	s.mu.Lock()
	s.ends = append(s.ends, req)
	s.mu.Unlock()
	return &clients.Envelope{Success: true}, &clients.SessionRecord{ID: req.SessionID, Status: "completed"}, nil
}

func (s *stubStore) UserSessions(_ context.Context, req clients.SessionsRequest) (*clients.Envelope, []clients.SessionRecord, error) {
	return &clients.Envelope{Success: true}, stubSessions[req.UserID], nil
}

func newTestRouter(store service.SessionStore) http.Handler {
	logger := zap.NewNop()
	svc := service.NewParkingService(store, nil, service.NewMemoryQuoteStore(time.Minute), logger)
	return NewRouter(Routes{
		Health:         handlers.NewHealthHandler(),
		Zones:          handlers.NewZonesHandler(),
		CreateQuote:    handlers.NewCreateQuoteHandler(svc, logger),
		ConfirmQuote:   handlers.NewConfirmQuoteHandler(svc, logger),
		StartSession:   handlers.NewStartSessionHandler(svc, logger),
		ActiveSessions: handlers.NewActiveSessionsHandler(svc, logger),
		SessionsMe:     handlers.NewSessionsMeHandler(svc, logger),
		ExtendSession:  handlers.NewExtendSessionHandler(svc, logger),
		EndSession:     handlers.NewEndSessionHandler(svc, logger),
	}, testSecret, logger)
}

func token(t *testing.T, userID interface{}) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func do(t *testing.T, h http.Handler, method, path, bearer, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var payload map[string]interface{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	}
	return rec, payload
}

func TestPublicRoutes(t *testing.T) {
	h := newTestRouter(&stubStore{})

	rec, _ := do(t, h, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	rec, payload := do(t, h, http.MethodGet, "/api/zones", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("zones: %d", rec.Code)
	}
	if zones, _ := payload["zones"].([]interface{}); len(zones) != 4 {
		t.Fatalf("expected four zones, got %v", payload)
	}
	rec, _ = do(t, h, http.MethodPost, "/health", "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	h := newTestRouter(&stubStore{})
	rec, _ := do(t, h, http.MethodGet, "/api/sessions/active", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec, _ = do(t, h, http.MethodGet, "/api/sessions/active", "not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestQuoteThenStart(t *testing.T) {
	store := &stubStore{}
	h := newTestRouter(store)
	bearer := token(t, 42)

	rec, quote := do(t, h, http.MethodPost, "/api/quotes", bearer, `{"spot_id":"A1","zone":"Yellow","duration":"5:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("quote: %d %s", rec.Code, rec.Body.String())
	}
	if quote["total_cost"] != "6.36" || quote["second_period_cost"] != "2.12" {
		t.Fatalf("unexpected quote %v", quote)
	}
	if quote["wallet_balance"] != nil {
		t.Fatalf("unknown balance must be null, got %v", quote["wallet_balance"])
	}
	quoteID, _ := quote["id"].(string)

	rec, confirmed := do(t, h, http.MethodPost, "/api/quotes/"+quoteID+"/confirm", bearer, "")
	if rec.Code != http.StatusOK || confirmed["confirmed"] != true || confirmed["total_cost"] != "6.36" {
		t.Fatalf("confirm: %d %v", rec.Code, confirmed)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/sessions", token(t, "someone-else"), `{"quote_id":"`+quoteID+`","plate_number":"ab1"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign quote, got %d", rec.Code)
	}

	rec, session := do(t, h, http.MethodPost, "/api/sessions", bearer, `{"quote_id":"`+quoteID+`","plate_number":"ab1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	if session["id"] != "sess-1" || session["user_id"] != "42" {
		t.Fatalf("unexpected session %v", session)
	}
	if store.starts[0].IdempotencyKey != quoteID || store.starts[0].Duration != "5:00" {
		t.Fatalf("unexpected start request %+v", store.starts[0])
	}

	rec, _ = do(t, h, http.MethodPost, "/api/sessions", bearer, `{"quote_id":"`+quoteID+`","plate_number":"ab1"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("used quote must be gone, got %d", rec.Code)
	}
}

func TestQuoteValidation(t *testing.T) {
	h := newTestRouter(&stubStore{})
	bearer := token(t, "u1")

	cases := []struct {
		body   string
		status int
	}{
		{`{"zone":"purple","duration":"1:00"}`, http.StatusBadRequest},
		{`{"zone":"green","duration":"abc"}`, http.StatusBadRequest},
		{`{"zone":"green","duration":"1:00","extra":true}`, http.StatusBadRequest},
		{`{"zone":"red","duration":"PT3H"}`, http.StatusCreated},
	}
	for _, tc := range cases {
		rec, _ := do(t, h, http.MethodPost, "/api/quotes", bearer, tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.body, tc.status, rec.Code)
		}
	}
}

func TestStartOverZoneLimit(t *testing.T) {
	h := newTestRouter(&stubStore{})
	bearer := token(t, "u1")

	_, quote := do(t, h, http.MethodPost, "/api/quotes", bearer, `{"zone":"red","duration":"3:00"}`)
	if quote["exceeds_zone_max"] != true {
		t.Fatalf("quote must flag the zone limit: %v", quote)
	}
	rec, payload := do(t, h, http.MethodPost, "/api/sessions", bearer, `{"quote_id":"`+quote["id"].(string)+`","plate_number":"X"}`)
	if rec.Code != http.StatusUnprocessableEntity || payload["max_minutes"] != float64(120) {
		t.Fatalf("expected 422 with max, got %d %v", rec.Code, payload)
	}
}

func TestExtendSession(t *testing.T) {
	store := &stubStore{}
	h := newTestRouter(store)
	bearer := token(t, "u1")

	rec, payload := do(t, h, http.MethodPost, "/api/sessions/sess-1/extend", bearer, `{"additional_duration":"1:30"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("extend: %d %s", rec.Code, rec.Body.String())
	}
	if payload["additional_cost"] != "0.80" || payload["estimated_cost"] != "0.80" || payload["remaining_balance"] != "9.50" {
		t.Fatalf("unexpected extension %v", payload)
	}

	store.mu.Lock()
	store.extendEnv = &clients.Envelope{Message: "low funds", Code: null.StringFrom(clients.CodeInsufficientBalance)}
	store.mu.Unlock()
	rec, payload = do(t, h, http.MethodPost, "/api/sessions/sess-1/extend", bearer, `{"additional_duration":"1:30"}`)
	if rec.Code != http.StatusPaymentRequired || payload["kind"] != "insufficient_balance" {
		t.Fatalf("expected 402, got %d %v", rec.Code, payload)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/sessions/sess-1/extend", bearer, `{"zone":"disable","additional_duration":"1:30"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zone is not a client choice, got %d", rec.Code)
	}
}

func TestForeignSessionCannotBeExtendedOrEnded(t *testing.T) {
	store := &stubStore{}
	h := newTestRouter(store)
	bearer := token(t, "mallory")

	rec, _ := do(t, h, http.MethodPost, "/api/sessions/alice-red-session/extend", bearer, `{"additional_duration":"2:00"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("extend of a foreign session: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = do(t, h, http.MethodPost, "/api/sessions/alice-red-session/end", bearer, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("end of a foreign session: %d %s", rec.Code, rec.Body.String())
	}
	if len(store.extends) != 0 || len(store.ends) != 0 {
		t.Fatalf("foreign session reached the store: %+v %+v", store.extends, store.ends)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/sessions/alice-red-session/extend", token(t, "alice"), `{"additional_duration":"1:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner extend: %d %s", rec.Code, rec.Body.String())
	}
	if got := store.extends[0].EstimatedCost; got != "1.06" {
		t.Fatalf("extension must be priced in red, got %s", got)
	}
}

func TestSessionsListingAndEnd(t *testing.T) {
	h := newTestRouter(&stubStore{})
	bearer := token(t, "u1")

	for _, path := range []string{"/api/sessions/active", "/api/sessions/me"} {
		rec, payload := do(t, h, http.MethodGet, path, bearer, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: %d", path, rec.Code)
		}
		if sessions, _ := payload["sessions"].([]interface{}); len(sessions) != 1 {
			t.Fatalf("%s: unexpected payload %v", path, payload)
		}
	}

	rec, payload := do(t, h, http.MethodPost, "/api/sessions/sess-1/end", bearer, "")
	if rec.Code != http.StatusOK || payload["status"] != "completed" {
		t.Fatalf("end: %d %v", rec.Code, payload)
	}
}
