// SPDX-License-Identifier: MIT

// Package audit provides structured audit logging for payment and
// security-sensitive operations. It follows the WHO/WHAT/WHEN pattern for
// reconciliation and forensics.
package audit

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeitlabs/payfort/internal/log"
)

// Action names what happened. Payment actions are shared by every gateway.
type Action string

const (
	ActionCartFulfillmentError  Action = "cart_fulfillment_error"
	ActionUserEnrolled          Action = "user_enrolled"
	ActionUserEnrolledError     Action = "user_enrolled_error"
	ActionRedirectToPayment     Action = "redirect_to_payment_gateway"
	ActionDuplicateTransaction  Action = "duplicate_transaction_detected"
	ActionBadResponseSignature  Action = "bad_response_signature"
	ActionReceivedResponse      Action = "received_gateway_response"
	ActionResponseInvalidCart   Action = "response_for_invalid_cart"
	ActionTransactionRolledBack Action = "transaction_rolled_back"
	ActionCartStatusUpdated     Action = "cart_status_updated"
	ActionCartFulfilled         Action = "cart_fulfilled"

	// Service events
	ActionConfigReload Action = "config.reload"
	ActionAuthFailure  Action = "auth.failure"
	ActionAuthMissing  Action = "auth.missing"
	ActionRateLimit    Action = "api.ratelimit"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    Action            `json:"action"`
	Actor     string            `json:"actor"`             // WHO: user, remote address or "system"
	Gateway   string            `json:"gateway,omitempty"` // payment gateway slug
	CartID    int64             `json:"cart_id,omitempty"` // 0 when no cart could be resolved
	Result    string            `json:"result,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Sink persists audit events beyond the log stream.
type Sink interface {
	Append(ctx context.Context, ev Event) error
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
	sink   Sink
}

// NewLogger creates a new audit logger with a dedicated "audit" component.
// sink may be nil.
func NewLogger(sink Sink) *Logger {
	auditLogger := log.WithComponent("audit").With().
		Str("log_type", "audit").
		Logger()

	return &Logger{
		logger: auditLogger,
		sink:   sink,
	}
}

// Log writes an audit event to the audit log and the sink.
func (l *Logger) Log(ctx context.Context, event Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = log.RequestIDFromContext(ctx)
	}
	if event.Actor == "" {
		event.Actor = "system"
	}

	logEvent := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("action", string(event.Action)).
		Str("actor", event.Actor)

	if event.Gateway != "" {
		logEvent.Str(log.FieldGateway, event.Gateway)
	}
	if event.CartID != 0 {
		logEvent.Int64(log.FieldCartID, event.CartID)
	}
	if event.Result != "" {
		logEvent.Str("result", event.Result)
	}
	if event.RequestID != "" {
		logEvent.Str(log.FieldRequestID, event.RequestID)
	}
	for key, value := range event.Details {
		logEvent.Str(key, value)
	}
	logEvent.Msg("audit event")

	if l.sink != nil {
		if err := l.sink.Append(ctx, event); err != nil {
			l.logger.Error().Err(err).Str("action", string(event.Action)).Msg("failed to persist audit event")
		}
	}
}

// Payment logs a gateway action against a cart. cartID 0 means no cart.
func (l *Logger) Payment(ctx context.Context, action Action, cartID int64, gateway string, details map[string]string) {
	l.Log(ctx, Event{
		Action:  action,
		Gateway: gateway,
		CartID:  cartID,
		Details: details,
	})
}

// ConfigReload logs a configuration reload event.
func (l *Logger) ConfigReload(ctx context.Context, result string, details map[string]string) {
	l.Log(ctx, Event{
		Action:  ActionConfigReload,
		Result:  result,
		Details: details,
	})
}

// AuthFailure logs a failed authentication attempt.
func (l *Logger) AuthFailure(ctx context.Context, remoteAddr, endpoint, reason string) {
	l.Log(ctx, Event{
		Action: ActionAuthFailure,
		Actor:  remoteAddr,
		Result: "failure",
		Details: map[string]string{
			"endpoint": endpoint,
			"reason":   reason,
		},
	})
}

// AuthMissing logs a request without authentication.
func (l *Logger) AuthMissing(ctx context.Context, remoteAddr, endpoint string) {
	l.Log(ctx, Event{
		Action:  ActionAuthMissing,
		Actor:   remoteAddr,
		Result:  "denied",
		Details: map[string]string{"endpoint": endpoint},
	})
}

// RateLimitExceeded logs rate limit violations.
func (l *Logger) RateLimitExceeded(ctx context.Context, remoteAddr, endpoint string) {
	l.Log(ctx, Event{
		Action:  ActionRateLimit,
		Actor:   remoteAddr,
		Result:  "denied",
		Details: map[string]string{"endpoint": endpoint},
	})
}

// FlattenForm renders form data for the details map, omitting the
// signature so journals never store it.
func FlattenForm(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		if strings.EqualFold(k, "signature") {
			continue
		}
		out["data."+k] = v
	}
	return out
}

// CartDetails is a small helper for the cart status context used by
// response_for_invalid_cart events.
func CartDetails(status, required string) map[string]string {
	return map[string]string{
		"cart_status":         status,
		"required_cart_state": required,
	}
}
