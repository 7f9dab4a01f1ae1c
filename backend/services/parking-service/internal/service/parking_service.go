package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/clients"
	"parkflow/backend/services/parking-service/internal/durationfmt"
	"parkflow/backend/services/parking-service/internal/models"
	"parkflow/backend/services/parking-service/internal/pricing"
	"parkflow/backend/services/parking-service/internal/tariff"
)

var (
	idGenerator = func() string { return uuid.NewString() }
	nowFunc     = time.Now
)

// ErrInvalidExtension is returned for extensions of zero or negative length.
var ErrInvalidExtension = errors.New("parking: extension must add at least one minute")

// SessionStore is the remote session store contract.
type SessionStore interface {
	CalculateCost(ctx context.Context, req clients.CostRequest) (*clients.Envelope, *clients.CostData, error)
	StartSession(ctx context.Context, req clients.StartRequest) (*clients.Envelope, *clients.SessionRecord, error)
	ExtendSession(ctx context.Context, req clients.ExtendRequest) (*clients.Envelope, *clients.ExtendData, error)
	EndSession(ctx context.Context, req clients.EndRequest) (*clients.Envelope, *clients.SessionRecord, error)
	UserSessions(ctx context.Context, req clients.SessionsRequest) (*clients.Envelope, []clients.SessionRecord, error)
}

// WalletReader looks up wallet balances. An invalid NullDecimal means unknown.
type WalletReader interface {
	WalletBalance(ctx context.Context, userID string) (decimal.NullDecimal, error)
}

// ParkingService drives sessions through quote, start, extend and end.
type ParkingService struct {
	store  SessionStore
	wallet WalletReader
	quotes QuoteStore
	logger *zap.Logger
}

// NewParkingService builds service. wallet and quotes may be nil.
func NewParkingService(store SessionStore, wallet WalletReader, quotes QuoteStore, logger *zap.Logger) *ParkingService {
	return &ParkingService{
		store:  store,
		wallet: wallet,
		quotes: quotes,
		logger: logger,
	}
}

// QuoteInput is a checkout request.
type QuoteInput struct {
	UserID  string
	SpotID  string
	Zone    tariff.Zone
	Minutes int
}

// Quote prices a duration locally and attaches the current wallet balance. The
// session store is not contacted.
func (s *ParkingService) Quote(ctx context.Context, in QuoteInput) (models.Quote, error) {
	schedule, err := tariff.Lookup(in.Zone)
	if err != nil {
		return models.Quote{}, err
	}
	breakdown, err := pricing.ComputeWith(schedule, in.Minutes)
	if err != nil {
		return models.Quote{}, err
	}

	now := nowFunc().UTC()
	return models.Quote{
		ID:               idGenerator(),
		UserID:           in.UserID,
		SpotID:           in.SpotID,
		Zone:             schedule.Zone,
		RequestedMinutes: in.Minutes,
		StartTime:        now,
		EndTime:          now.Add(time.Duration(in.Minutes) * time.Minute),
		Breakdown:        breakdown,
		Labels:           pricing.LabelsFor(breakdown),
		WalletBalance:    s.readBalance(ctx, in.UserID),
		IssuedAt:         now,
	}, nil
}

// IssueQuote quotes and keeps the result in the quote store.
func (s *ParkingService) IssueQuote(ctx context.Context, in QuoteInput) (models.Quote, error) {
	q, err := s.Quote(ctx, in)
	if err != nil {
		return models.Quote{}, err
	}
	if s.quotes != nil {
		if err := s.quotes.Save(ctx, q); err != nil {
			return models.Quote{}, &TransportError{Op: "save quote", Err: err}
		}
	}
	s.logger.Debug("quote issued",
		zap.String("quote_id", q.ID),
		zap.String("zone", string(q.Zone)),
		zap.Int("minutes", q.RequestedMinutes),
		zap.String("total", pricing.FormatAmount(q.Breakdown.TotalCost)),
	)
	s.logTransition(q.ID, StateNoSession, EventQuote)
	return q, nil
}

// StoredQuote loads a quote issued to userID.
func (s *ParkingService) StoredQuote(ctx context.Context, userID, quoteID string) (models.Quote, error) {
	if s.quotes == nil {
		return models.Quote{}, ErrQuoteNotFound
	}
	q, err := s.quotes.Get(ctx, quoteID)
	if err != nil {
		return models.Quote{}, err
	}
	if q.UserID != userID {
		return models.Quote{}, ErrQuoteOwner
	}
	return q, nil
}

// Confirm re-prices the quote on the session store. The returned quote carries
// the server's total, times and period costs. Whether there is a second period
// follows the zone threshold, not the server; the local split is kept when the
// server sends no breakdown.
func (s *ParkingService) Confirm(ctx context.Context, q models.Quote) (models.Quote, error) {
	env, data, err := s.store.CalculateCost(ctx, clients.CostRequest{
		Zone:     string(q.Zone),
		Duration: durationfmt.FormatClock(q.RequestedMinutes),
	})
	if err != nil {
		return models.Quote{}, &TransportError{Op: "calculate cost", Err: err}
	}
	if !env.Success {
		return models.Quote{}, &RemoteError{Op: "calculate cost", Code: env.Code.ValueOrZero(), Message: env.Message}
	}

	if data == nil || !data.TotalCost.Valid {
		return models.Quote{}, &RemoteError{Op: "calculate cost", Message: "response carried no total cost"}
	}

	confirmed := q
	confirmed.Confirmed = true

	if t, ok := s.parseTime(data.StartTime.ValueOrZero(), "start_time"); ok {
		confirmed.StartTime = t
	}
	if t, ok := s.parseTime(data.EndTime.ValueOrZero(), "end_time"); ok {
		confirmed.EndTime = t
	}

	b := confirmed.Breakdown
	b.TotalCost = data.TotalCost.Decimal.Round(pricing.CurrencyPlaces)
	if split := data.Breakdown; split.FirstPeriodCost.Valid {
		schedule, err := tariff.Lookup(q.Zone)
		if err != nil {
			return models.Quote{}, err
		}
		b.FirstPeriodCost = split.FirstPeriodCost.Decimal.Round(pricing.CurrencyPlaces)
		b.FirstPeriodMinutes = q.RequestedMinutes
		b.HasSecondPeriod = false
		b.SecondPeriodMinutes = 0
		b.SecondPeriodCost = decimal.Zero
		if schedule.Rule == tariff.RuleTiered && q.RequestedMinutes > schedule.ThresholdMinutes {
			b.FirstPeriodMinutes = schedule.ThresholdMinutes
			b.HasSecondPeriod = true
			b.SecondPeriodMinutes = q.RequestedMinutes - schedule.ThresholdMinutes
			if split.SecondPeriodCost.Valid {
				b.SecondPeriodCost = split.SecondPeriodCost.Decimal.Round(pricing.CurrencyPlaces)
			} else {
				b.SecondPeriodCost = b.TotalCost.Sub(b.FirstPeriodCost)
			}
		} else if split.SecondPeriodCost.Valid && !split.SecondPeriodCost.Decimal.IsZero() {
			s.logger.Warn("server priced a second period below the zone threshold",
				zap.String("quote_id", q.ID),
				zap.String("second", pricing.FormatAmount(split.SecondPeriodCost.Decimal)),
			)
		}
	}
	if !b.TotalCost.Equal(q.Breakdown.TotalCost) {
		s.logger.Warn("server price differs from local estimate",
			zap.String("quote_id", q.ID),
			zap.String("local", pricing.FormatAmount(q.Breakdown.TotalCost)),
			zap.String("server", pricing.FormatAmount(b.TotalCost)),
		)
	}
	confirmed.Breakdown = b
	confirmed.Labels = pricing.LabelsFor(b)
	return confirmed, nil
}

// ConfirmStored confirms a stored quote and stores the confirmed version.
func (s *ParkingService) ConfirmStored(ctx context.Context, userID, quoteID string) (models.Quote, error) {
	q, err := s.StoredQuote(ctx, userID, quoteID)
	if err != nil {
		return models.Quote{}, err
	}
	confirmed, err := s.Confirm(ctx, q)
	if err != nil {
		return models.Quote{}, err
	}
	if err := s.quotes.Save(ctx, confirmed); err != nil {
		if errors.Is(err, ErrQuoteNotFound) {
			return models.Quote{}, err
		}
		return models.Quote{}, &TransportError{Op: "save quote", Err: err}
	}
	s.logTransition(quoteID, StateQuoted, EventQuote)
	return confirmed, nil
}

// StartSession opens a session from a quote. The quote id is sent as the
// idempotency key, so repeating a start with the same quote is safe.
func (s *ParkingService) StartSession(ctx context.Context, q models.Quote, plateNumber string) (*models.Session, error) {
	plate := strings.ToUpper(strings.TrimSpace(plateNumber))
	if plate == "" {
		return nil, ErrPlateRequired
	}
	schedule, err := tariff.Lookup(q.Zone)
	if err != nil {
		return nil, err
	}
	if schedule.ExceedsMax(q.RequestedMinutes) {
		return nil, &DurationLimitError{Zone: string(q.Zone), Requested: q.RequestedMinutes, MaxMinutes: schedule.MaxDurationMinutes}
	}
	if !q.Confirmed {
		s.logger.Info("starting session from unconfirmed estimate", zap.String("quote_id", q.ID))
	}

	env, rec, err := s.store.StartSession(ctx, clients.StartRequest{
		UserID:         q.UserID,
		PlateNumber:    plate,
		SpotID:         q.SpotID,
		Zone:           string(q.Zone),
		Duration:       durationfmt.FormatClock(q.RequestedMinutes),
		EstimatedCost:  pricing.FormatAmount(q.Breakdown.TotalCost),
		IdempotencyKey: q.ID,
	})
	if err != nil {
		s.logger.Error("start session failed", zap.String("quote_id", q.ID), zap.Error(err))
		return nil, &TransportError{Op: "start session", Err: err}
	}
	if !env.Success {
		return nil, &StartError{Reason: env.Message, Code: env.Code.ValueOrZero()}
	}

	if rec == nil {
		rec = &clients.SessionRecord{}
	}
	if rec.ID == "" {
		rec.ID = env.SessionID.ValueOrZero()
	}
	if rec.ID == "" {
		return nil, &RemoteError{Op: "start session", Message: "response carried no session id"}
	}

	session := s.sessionFromRecord(*rec, models.Session{
		UserID:          q.UserID,
		SpotID:          q.SpotID,
		Zone:            q.Zone,
		PlateNumber:     plate,
		StartTime:       q.StartTime,
		EndTime:         q.EndTime,
		DurationMinutes: q.RequestedMinutes,
		Cost:            q.Breakdown.TotalCost,
		Status:          models.SessionStatusActive,
		IdempotencyKey:  q.ID,
	})
	s.logTransition(session.ID, StateQuoted, EventStart)
	return &session, nil
}

// StartQuoted starts a session from a stored quote and drops the quote once
// the store accepted it.
func (s *ParkingService) StartQuoted(ctx context.Context, userID, quoteID, plateNumber string) (*models.Session, error) {
	q, err := s.StoredQuote(ctx, userID, quoteID)
	if err != nil {
		return nil, err
	}
	session, err := s.StartSession(ctx, q, plateNumber)
	if err != nil {
		return nil, err
	}
	if err := s.quotes.Delete(ctx, quoteID); err != nil {
		s.logger.Warn("failed to drop used quote", zap.String("quote_id", quoteID), zap.Error(err))
	}
	return session, nil
}

// EstimateExtension prices an extension as a fresh duration in zone.
func (s *ParkingService) EstimateExtension(zone tariff.Zone, additionalMinutes int) (pricing.Breakdown, error) {
	if additionalMinutes <= 0 {
		return pricing.Breakdown{}, ErrInvalidExtension
	}
	return pricing.Compute(zone, additionalMinutes)
}

// ExtendInput is an extension request. An empty IdempotencyKey gets a fresh one.
type ExtendInput struct {
	UserID            string
	SessionID         string
	AdditionalMinutes int
	IdempotencyKey    string
}

// OwnedSession returns the caller's session with the given id as the store
// reports it now, or ErrSessionNotFound.
func (s *ParkingService) OwnedSession(ctx context.Context, userID, sessionID string) (models.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return models.Session{}, ErrSessionIDRequired
	}
	sessions, err := s.History(ctx, userID)
	if err != nil {
		return models.Session{}, err
	}
	for _, sess := range sessions {
		if sess.ID == sessionID && sess.UserID == userID {
			return sess, nil
		}
	}
	return models.Session{}, ErrSessionNotFound
}

// ExtendSession lengthens an active session of in.UserID. The extension is
// priced in the session's own zone. It is all or nothing: on any error the
// session is left as it was.
func (s *ParkingService) ExtendSession(ctx context.Context, in ExtendInput) (*models.ExtensionResult, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, ErrSessionIDRequired
	}
	if in.AdditionalMinutes <= 0 {
		return nil, ErrInvalidExtension
	}
	session, err := s.OwnedSession(ctx, in.UserID, in.SessionID)
	if err != nil {
		return nil, err
	}
	from := StateOf(session.Status)
	if _, err := Advance(from, EventExtend); err != nil {
		extErr := extendErrorFor(session.Status)
		s.logger.Info("extension refused",
			zap.String("session_id", in.SessionID),
			zap.String("status", string(session.Status)),
			zap.String("kind", string(extErr.Kind)),
		)
		return nil, extErr
	}
	estimate, err := s.EstimateExtension(session.Zone, in.AdditionalMinutes)
	if err != nil {
		return nil, err
	}
	key := in.IdempotencyKey
	if key == "" {
		key = idGenerator()
	}

	env, data, err := s.store.ExtendSession(ctx, clients.ExtendRequest{
		SessionID:          in.SessionID,
		AdditionalDuration: durationfmt.FormatISOPeriod(in.AdditionalMinutes),
		EstimatedCost:      pricing.FormatAmount(estimate.TotalCost),
		IdempotencyKey:     key,
	})
	if err != nil {
		s.logger.Error("extend session failed", zap.String("session_id", in.SessionID), zap.Error(err))
		return nil, &TransportError{Op: "extend session", Err: err}
	}
	if !env.Success {
		extErr := classifyExtendFailure(env)
		s.logger.Info("extension rejected",
			zap.String("session_id", in.SessionID),
			zap.String("kind", string(extErr.Kind)),
		)
		s.logTransition(in.SessionID, from, EventExtendFailed)
		return nil, extErr
	}

	result := &models.ExtensionResult{
		SessionID:     in.SessionID,
		AddedMinutes:  in.AdditionalMinutes,
		EstimatedCost: estimate.TotalCost,
	}
	if data != nil {
		if t, ok := s.parseTime(data.NewEndTime.ValueOrZero(), "new_end_time"); ok {
			result.NewEndTime = t
		}
		if data.AdditionalCost.Valid {
			result.AdditionalCost = decimal.NewNullDecimal(data.AdditionalCost.Decimal.Round(pricing.CurrencyPlaces))
		}
		result.RemainingBalance = data.RemainingBalance
	}
	if !result.AdditionalCost.Valid {
		s.logger.Warn("extension response carried no charged amount", zap.String("session_id", in.SessionID))
	}
	s.logTransition(in.SessionID, from, EventExtend)
	return result, nil
}

// EndSession asks the store to close an active session of userID.
func (s *ParkingService) EndSession(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	current, err := s.OwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	from := StateOf(current.Status)
	if _, err := Advance(from, EventEnd); err != nil {
		return nil, err
	}
	env, rec, err := s.store.EndSession(ctx, clients.EndRequest{SessionID: sessionID})
	if err != nil {
		return nil, &TransportError{Op: "end session", Err: err}
	}
	if !env.Success {
		return nil, &RemoteError{Op: "end session", Code: env.Code.ValueOrZero(), Message: env.Message}
	}
	base := current
	base.Status = models.SessionStatusCompleted
	session := base
	if rec != nil {
		if rec.ID == "" {
			rec.ID = sessionID
		}
		session = s.sessionFromRecord(*rec, base)
	}
	s.logTransition(sessionID, from, EventEnd)
	return &session, nil
}

// ActiveSessions re-reads the caller's active sessions on every call.
func (s *ParkingService) ActiveSessions(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := s.userSessions(ctx, userID, string(models.SessionStatusActive))
	if err != nil {
		return nil, err
	}
	active := sessions[:0]
	for _, sess := range sessions {
		if sess.IsActive() {
			active = append(active, sess)
		}
	}
	return active, nil
}

// History returns every session of the user the store knows about.
func (s *ParkingService) History(ctx context.Context, userID string) ([]models.Session, error) {
	return s.userSessions(ctx, userID, "")
}

func (s *ParkingService) userSessions(ctx context.Context, userID, status string) ([]models.Session, error) {
	env, records, err := s.store.UserSessions(ctx, clients.SessionsRequest{UserID: userID, Status: status})
	if err != nil {
		return nil, &TransportError{Op: "list sessions", Err: err}
	}
	if !env.Success {
		return nil, &RemoteError{Op: "list sessions", Code: env.Code.ValueOrZero(), Message: env.Message}
	}
	sessions := make([]models.Session, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, s.sessionFromRecord(rec, models.Session{UserID: userID}))
	}
	return sessions, nil
}

// sessionFromRecord overlays every field the store sent on base. Fields that do
// not parse are skipped and logged.
func (s *ParkingService) sessionFromRecord(rec clients.SessionRecord, base models.Session) models.Session {
	out := base
	out.ID = rec.ID
	if rec.UserID.Valid {
		out.UserID = rec.UserID.String
	}
	if rec.SpotID.Valid {
		out.SpotID = rec.SpotID.String
	}
	if rec.Zone.Valid {
		if zone, err := tariff.ParseZone(rec.Zone.String); err == nil {
			out.Zone = zone
		} else {
			s.logger.Warn("session carries unknown zone", zap.String("session_id", rec.ID), zap.String("zone", rec.Zone.String))
		}
	}
	if rec.PlateNumber.Valid {
		out.PlateNumber = rec.PlateNumber.String
	}
	if t, ok := s.parseTime(rec.StartTime.ValueOrZero(), "start_time"); ok {
		out.StartTime = t
	}
	if t, ok := s.parseTime(rec.EndTime.ValueOrZero(), "end_time"); ok {
		out.EndTime = t
	}
	if rec.Duration.Valid {
		if minutes, err := durationfmt.ParseClock(rec.Duration.String); err == nil {
			out.DurationMinutes = minutes
		} else {
			s.logger.Warn("skipping malformed duration", zap.String("session_id", rec.ID), zap.Error(err))
		}
	}
	if rec.Cost.Valid {
		out.Cost = rec.Cost.Decimal.Round(pricing.CurrencyPlaces)
	}
	if rec.Status != "" {
		out.Status = models.SessionStatus(strings.ToLower(rec.Status))
	}
	out.DurationLabel = durationfmt.FormatMinutes(out.DurationMinutes)
	return out
}

func (s *ParkingService) parseTime(raw, field string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := durationfmt.ParseTimestamp(raw, "")
	if err != nil {
		s.logger.Warn("skipping malformed timestamp", zap.String("field", field), zap.Error(err))
		return time.Time{}, false
	}
	return t, true
}

func (s *ParkingService) readBalance(ctx context.Context, userID string) decimal.NullDecimal {
	if s.wallet == nil || userID == "" {
		return decimal.NullDecimal{}
	}
	balance, err := s.wallet.WalletBalance(ctx, userID)
	if err != nil {
		s.logger.Warn("wallet balance unavailable", zap.String("user_id", userID), zap.Error(err))
		return decimal.NullDecimal{}
	}
	return balance
}

func (s *ParkingService) logTransition(sessionID string, from State, ev Event) {
	to, err := Advance(from, ev)
	if err != nil {
		s.logger.Error("unexpected session transition", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	s.logger.Info("session transition",
		zap.String("session_id", sessionID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("event", string(ev)),
	)
}
