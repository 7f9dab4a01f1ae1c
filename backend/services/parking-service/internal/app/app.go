package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "parkflow/backend/libs/db"
	libredis "parkflow/backend/libs/redis"
	"parkflow/backend/services/parking-service/internal/clients"
	"parkflow/backend/services/parking-service/internal/config"
	httpserver "parkflow/backend/services/parking-service/internal/http"
	"parkflow/backend/services/parking-service/internal/http/handlers"
	redisstore "parkflow/backend/services/parking-service/internal/redis"
	"parkflow/backend/services/parking-service/internal/repository"
	"parkflow/backend/services/parking-service/internal/service"
)

// App wires parking-service dependencies.
type App struct {
	server      *httpserver.Server
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph. Postgres and Redis are optional; without
// them wallet balances come from the session store and quotes stay in memory.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	storeClient := clients.NewSessionStoreClient(
		cfg.SessionStore.URL,
		cfg.SessionStore.APIKey,
		clients.NewDefaultHTTPClient(cfg.SessionStore.Timeout),
		logger.Named("session-store"),
	)

	var wallet service.WalletReader = storeClient
	if cfg.Wallet.DSN != "" {
		sqlDB, err := libdb.NewPostgresDB(cfg.Wallet.DSN, libdb.Options{MaxOpenConns: cfg.Wallet.MaxOpenConns})
		if err != nil {
			return nil, err
		}
		a.db = sqlDB
		wallet = repository.NewWalletRepository(sqlDB)
		logger.Info("reading wallet balances from postgres")
	}

	var quotes service.QuoteStore
	if cfg.Redis.Addr != "" {
		redisClient, err := libredis.NewRedisClient(libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redisClient = redisClient
		quotes = redisstore.NewQuoteStore(redisClient, cfg.Quotes.TTL)
		logger.Info("keeping quotes in redis", zap.Duration("ttl", cfg.Quotes.TTL))
	} else {
		quotes = service.NewMemoryQuoteStore(cfg.Quotes.TTL)
		logger.Info("keeping quotes in memory", zap.Duration("ttl", cfg.Quotes.TTL))
	}

	parkingService := service.NewParkingService(storeClient, wallet, quotes, logger)

	routes := httpserver.Routes{
		Health:         handlers.NewHealthHandler(),
		Zones:          handlers.NewZonesHandler(),
		CreateQuote:    handlers.NewCreateQuoteHandler(parkingService, logger),
		ConfirmQuote:   handlers.NewConfirmQuoteHandler(parkingService, logger),
		StartSession:   handlers.NewStartSessionHandler(parkingService, logger),
		ActiveSessions: handlers.NewActiveSessionsHandler(parkingService, logger),
		SessionsMe:     handlers.NewSessionsMeHandler(parkingService, logger),
		ExtendSession:  handlers.NewExtendSessionHandler(parkingService, logger),
		EndSession:     handlers.NewEndSessionHandler(parkingService, logger),
	}

	router := httpserver.NewRouter(routes, cfg.Auth.JWTSecret, logger)
	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, cfg.HTTP.ShutdownTimeout, logger)
	return a, nil
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
