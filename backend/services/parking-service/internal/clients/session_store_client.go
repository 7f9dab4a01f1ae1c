package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"
)

// RPC paths of the remote session store.
const (
	pathCalculateCost = "/rpc/calculateCost"
	pathStartSession  = "/rpc/startParkingSession"
	pathExtendSession = "/rpc/extendParkingSession"
	pathEndSession    = "/rpc/endParkingSession"
	pathUserSessions  = "/rpc/getUserSessions"
	pathWalletBalance = "/rpc/getWalletBalance"
)

// Failure codes the store puts in Envelope.Code.
const (
	CodeSessionExpired      = "session_expired"
	CodeSessionInactive     = "session_inactive"
	CodeInsufficientBalance = "insufficient_balance"
	CodeSpotUnavailable     = "spot_unavailable"
)

// ErrMalformedResponse is returned when the store answers with something that
// is not an envelope.
var ErrMalformedResponse = errors.New("session store: malformed response")

// Envelope is the common shape of every store response.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Code      null.String     `json:"code"`
	SessionID null.String     `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// CostRequest asks the store to price a duration.
type CostRequest struct {
	Zone     string `json:"zone"`
	Duration string `json:"duration"`
}

// CostData is the server-side price of a duration.
type CostData struct {
	StartTime null.String         `json:"startTime"`
	EndTime   null.String         `json:"endTime"`
	Duration  null.String         `json:"duration"`
	TotalCost decimal.NullDecimal `json:"totalCost"`
	Breakdown struct {
		FirstPeriodCost  decimal.NullDecimal `json:"firstPeriodCost"`
		SecondPeriodCost decimal.NullDecimal `json:"secondPeriodCost"`
	} `json:"breakdown"`
}

// StartRequest opens a session.
type StartRequest struct {
	UserID         string `json:"userId"`
	PlateNumber    string `json:"plateNumber"`
	SpotID         string `json:"spotId"`
	Zone           string `json:"zone"`
	Duration       string `json:"duration"`
	EstimatedCost  string `json:"estimatedCost"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// SessionRecord is a session as the store serialises it.
type SessionRecord struct {
	ID          string              `json:"id"`
	UserID      null.String         `json:"userId"`
	SpotID      null.String         `json:"spotId"`
	Zone        null.String         `json:"zone"`
	PlateNumber null.String         `json:"plateNumber"`
	StartTime   null.String         `json:"startTime"`
	EndTime     null.String         `json:"endTime"`
	Duration    null.String         `json:"duration"`
	Cost        decimal.NullDecimal `json:"cost"`
	Status      string              `json:"status"`
}

// ExtendRequest lengthens an active session.
type ExtendRequest struct {
	SessionID          string `json:"sessionId"`
	AdditionalDuration string `json:"additionalDuration"`
	EstimatedCost      string `json:"estimatedCost"`
	IdempotencyKey     string `json:"idempotencyKey"`
}

// ExtendData is returned on a successful extension.
type ExtendData struct {
	NewEndTime       null.String         `json:"newEndTime"`
	AdditionalCost   decimal.NullDecimal `json:"additionalCost"`
	RemainingBalance decimal.NullDecimal `json:"remainingBalance"`
}

// EndRequest closes a session.
type EndRequest struct {
	SessionID string `json:"sessionId"`
}

// SessionsRequest lists sessions of a user, optionally by status.
type SessionsRequest struct {
	UserID string `json:"userId"`
	Status string `json:"status,omitempty"`
}

type sessionsData struct {
	Sessions []SessionRecord `json:"sessions"`
}

type walletRequest struct {
	UserID string `json:"userId"`
}

type walletData struct {
	Balance decimal.NullDecimal `json:"balance"`
}

// SessionStoreClient talks to the hosted session store over JSON RPC.
type SessionStoreClient struct {
	base   *BaseClient
	logger *zap.Logger
}

// NewSessionStoreClient returns client. apiKey may be empty.
func NewSessionStoreClient(baseURL, apiKey string, httpClient HTTPDoer, logger *zap.Logger) *SessionStoreClient {
	var headers map[string]string
	if apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + apiKey}
	}
	return &SessionStoreClient{
		base:   NewBaseClient(baseURL, httpClient, headers),
		logger: logger,
	}
}

// CalculateCost prices a clock duration in a zone on the server.
func (c *SessionStoreClient) CalculateCost(ctx context.Context, req CostRequest) (*Envelope, *CostData, error) {
	var data CostData
	env, err := c.call(ctx, pathCalculateCost, req, &data)
	if err != nil || !env.Success {
		return env, nil, err
	}
	return env, &data, nil
}

// StartSession asks the store to open a session.
func (c *SessionStoreClient) StartSession(ctx context.Context, req StartRequest) (*Envelope, *SessionRecord, error) {
	var data SessionRecord
	env, err := c.call(ctx, pathStartSession, req, &data)
	if err != nil || !env.Success {
		return env, nil, err
	}
	return env, &data, nil
}

// ExtendSession asks the store to lengthen a session.
func (c *SessionStoreClient) ExtendSession(ctx context.Context, req ExtendRequest) (*Envelope, *ExtendData, error) {
	var data ExtendData
	env, err := c.call(ctx, pathExtendSession, req, &data)
	if err != nil || !env.Success {
		return env, nil, err
	}
	return env, &data, nil
}

// EndSession asks the store to close a session.
func (c *SessionStoreClient) EndSession(ctx context.Context, req EndRequest) (*Envelope, *SessionRecord, error) {
	var data SessionRecord
	env, err := c.call(ctx, pathEndSession, req, &data)
	if err != nil || !env.Success {
		return env, nil, err
	}
	return env, &data, nil
}

// UserSessions lists sessions of a user.
func (c *SessionStoreClient) UserSessions(ctx context.Context, req SessionsRequest) (*Envelope, []SessionRecord, error) {
	var data sessionsData
	env, err := c.call(ctx, pathUserSessions, req, &data)
	if err != nil || !env.Success {
		return env, nil, err
	}
	return env, data.Sessions, nil
}

// WalletBalance reads the wallet of userID. A null balance means unknown.
func (c *SessionStoreClient) WalletBalance(ctx context.Context, userID string) (decimal.NullDecimal, error) {
	var data walletData
	env, err := c.call(ctx, pathWalletBalance, walletRequest{UserID: userID}, &data)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if !env.Success {
		return decimal.NullDecimal{}, fmt.Errorf("session store: wallet lookup rejected: %s", env.Message)
	}
	return data.Balance, nil
}

// call returns an error only for transport or decoding problems. A rejected
// call comes back as an envelope with Success false.
func (c *SessionStoreClient) call(ctx context.Context, path string, payload interface{}, data interface{}) (*Envelope, error) {
	status, body, err := c.base.PostJSON(ctx, path, payload)
	if err != nil {
		c.logger.Warn("session store request failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Warn("session store returned non-envelope body",
			zap.String("path", path),
			zap.Int("status", status),
		)
		return nil, fmt.Errorf("%w: status %d", ErrMalformedResponse, status)
	}

	if !env.Success {
		if status >= 500 {
			return nil, fmt.Errorf("session store: %s failed with status %d: %s", path, status, env.Message)
		}
		c.logger.Debug("session store rejected call",
			zap.String("path", path),
			zap.String("code", env.Code.ValueOrZero()),
			zap.String("message", env.Message),
		)
		return &env, nil
	}

	if data != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrMalformedResponse, err)
		}
	}
	return &env, nil
}
