package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/http/middleware"
)

// Routes groups handlers.
type Routes struct {
	Health         http.HandlerFunc
	Zones          http.HandlerFunc
	CreateQuote    http.HandlerFunc
	ConfirmQuote   http.HandlerFunc
	StartSession   http.HandlerFunc
	ActiveSessions http.HandlerFunc
	SessionsMe     http.HandlerFunc
	ExtendSession  http.HandlerFunc
	EndSession     http.HandlerFunc
}

// NewRouter registers endpoints. Everything under /api except the zone table
// requires a bearer token.
func NewRouter(routes Routes, jwtSecret string, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Recover(logger))
	router.Use(middleware.RequestLogger(logger))
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	handle(router, "/health", http.MethodGet, routes.Health)

	api := router.PathPrefix("/api").Subrouter()
	handle(api, "/zones", http.MethodGet, routes.Zones)

	secured := api.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(jwtSecret))
	handle(secured, "/quotes", http.MethodPost, routes.CreateQuote)
	handle(secured, "/quotes/{id}/confirm", http.MethodPost, routes.ConfirmQuote)
	handle(secured, "/sessions", http.MethodPost, routes.StartSession)
	handle(secured, "/sessions/active", http.MethodGet, routes.ActiveSessions)
	handle(secured, "/sessions/me", http.MethodGet, routes.SessionsMe)
	handle(secured, "/sessions/{id}/extend", http.MethodPost, routes.ExtendSession)
	handle(secured, "/sessions/{id}/end", http.MethodPost, routes.EndSession)
	return router
}

func handle(r *mux.Router, path, method string, handler http.HandlerFunc) {
	if handler == nil {
		return
	}
	r.HandleFunc(path, handler).Methods(method)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}
