package service

import (
	"errors"
	"fmt"
	"strings"

	"parkflow/backend/services/parking-service/internal/clients"
	"parkflow/backend/services/parking-service/internal/models"
)

var (
	// ErrPlateRequired is returned when a start carries no plate number.
	ErrPlateRequired = errors.New("parking: plate number required")
	// ErrQuoteNotFound means the quote expired, was already used or never existed.
	ErrQuoteNotFound = errors.New("parking: quote not found")
	// ErrQuoteOwner means a user tried to use someone else's quote.
	ErrQuoteOwner = errors.New("parking: quote belongs to another user")
	// ErrSessionIDRequired is returned for extend/end calls without an id.
	ErrSessionIDRequired = errors.New("parking: session id required")
	// ErrSessionNotFound means the caller has no session with that id.
	ErrSessionNotFound = errors.New("parking: session not found")
	// ErrInvalidTransition is returned when a lifecycle event does not apply to the current state.
	ErrInvalidTransition = errors.New("parking: invalid session transition")
)

// DurationLimitError rejects a start longer than the zone maximum.
type DurationLimitError struct {
	Zone       string
	Requested  int
	MaxMinutes int
}

func (e *DurationLimitError) Error() string {
	return fmt.Sprintf("parking: %d minutes exceeds the %d minute limit of zone %s", e.Requested, e.MaxMinutes, e.Zone)
}

// TransportError wraps a failed round trip to a collaborator. Nothing is
// retried; the outcome of a start or extend is unknown after one of these.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("parking: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a rejection of a call other than start or extend.
type RemoteError struct {
	Op      string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("parking: %s rejected: %s", e.Op, e.Message)
}

// StartError carries the store's rejection message verbatim.
type StartError struct {
	Reason string
	Code   string
}

func (e *StartError) Error() string {
	return "parking: start rejected: " + e.Reason
}

// ExtendKind classifies a rejected extension.
type ExtendKind string

const (
	ExtendExpired             ExtendKind = "expired"
	ExtendInactive            ExtendKind = "inactive"
	ExtendInsufficientBalance ExtendKind = "insufficient_balance"
	ExtendUnknown             ExtendKind = "unknown"
)

var extendMessages = map[ExtendKind]string{
	ExtendExpired:             "This parking session has already expired and can no longer be extended.",
	ExtendInactive:            "This parking session is no longer active.",
	ExtendInsufficientBalance: "Your wallet balance is too low to cover this extension.",
}

// ExtendError is a rejected extension. Message is a fixed text per kind, except
// for ExtendUnknown where it echoes the store.
type ExtendError struct {
	Kind    ExtendKind
	Message string
}

func (e *ExtendError) Error() string {
	return fmt.Sprintf("parking: extend rejected (%s): %s", e.Kind, e.Message)
}

// classifyExtendFailure maps the store's failure code onto a kind. Envelopes
// without a code fall back to matching the message text.
func classifyExtendFailure(env *clients.Envelope) *ExtendError {
	var kind ExtendKind
	switch env.Code.ValueOrZero() {
	case clients.CodeSessionExpired:
		kind = ExtendExpired
	case clients.CodeSessionInactive:
		kind = ExtendInactive
	case clients.CodeInsufficientBalance:
		kind = ExtendInsufficientBalance
	case "":
		kind = kindFromMessage(env.Message)
	default:
		kind = ExtendUnknown
	}
	if kind == ExtendUnknown {
		msg := env.Message
		if msg == "" {
			msg = "extension failed"
		}
		return &ExtendError{Kind: ExtendUnknown, Message: msg}
	}
	return &ExtendError{Kind: kind, Message: extendMessages[kind]}
}

func kindFromMessage(message string) ExtendKind {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "expired"):
		return ExtendExpired
	case strings.Contains(msg, "not active"), strings.Contains(msg, "inactive"):
		return ExtendInactive
	case strings.Contains(msg, "insufficient balance"):
		return ExtendInsufficientBalance
	default:
		return ExtendUnknown
	}
}

// extendErrorFor rejects an extension locally from the status the store
// reported for the session.
func extendErrorFor(status models.SessionStatus) *ExtendError {
	kind := ExtendInactive
	if status == models.SessionStatusExpired {
		kind = ExtendExpired
	}
	return &ExtendError{Kind: kind, Message: extendMessages[kind]}
}
