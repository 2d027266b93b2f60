package charge

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nenidan/points-charge/internal/common"
	"github.com/nenidan/points-charge/internal/ledger"
	"github.com/nenidan/points-charge/internal/obs"
)

// Ledger is the contract the coordinator expects from the backend
// confirmation endpoint. The endpoint must be idempotent per order reference
// on the ledger side.
type Ledger interface {
	Confirm(ctx context.Context, req ledger.ConfirmRequest, bearer string) (ledger.Settlement, error)
}

// Settled is invoked after a session reaches CONFIRMED, e.g. to enqueue a
// settlement notification. Errors are logged, never propagated: notification
// is best effort and must not disturb the terminal outcome.
type Settled func(ctx context.Context, s *Session) error

// Outcome reports the terminal result of a confirmation attempt.
type Outcome struct {
	OrderRef   string
	PaymentKey string
	Amount     int64
	State      State
	Reason     FailureReason
	Settlement *ledger.Settlement
}

// Coordinator performs exactly one authoritative ledger confirmation per
// order reference. It never retries: a rejected confirmation is final, and an
// unreachable ledger leaves retrying to an explicit fresh attempt with a new
// order reference.
type Coordinator struct {
	Ledger    Ledger
	Store     *Store
	OnSettled Settled
	Logger    zerolog.Logger
}

// Confirm resolves a successfully interpreted callback into a terminal
// outcome. Re-entry for an already-terminal order reference reports the
// cached outcome without issuing a second network call.
func (c *Coordinator) Confirm(ctx context.Context, cb SuccessCallback, bearer string) (Outcome, error) {
	var zero Outcome
	if c == nil || c.Ledger == nil || c.Store == nil {
		return zero, common.NewAppError("CHARGE_NOT_CONFIGURED", "confirmation coordinator unavailable", http.StatusInternalServerError, nil)
	}
	ctx, span := otel.Tracer("charge.Coordinator").Start(ctx, "Coordinator.Confirm")
	defer span.End()
	span.SetAttributes(
		attribute.String("charge.order_ref", cb.OrderRef),
		attribute.Int64("charge.amount", cb.Amount),
	)

	s, acquired, err := c.Store.BeginConfirm(cb.OrderRef, cb.Amount, cb.PaymentKey)
	if err != nil {
		switch {
		case errors.Is(err, ErrConfirmInFlight):
			return zero, common.NewAppError("CONFIRM_IN_FLIGHT", "confirmation already in progress", http.StatusConflict, err)
		case errors.Is(err, ErrAmountMismatch):
			span.RecordError(err)
			return zero, common.NewAppError(string(ReasonMalformedCallback), "callback amount does not match the initiated charge", http.StatusBadRequest, err)
		}
		return zero, err
	}
	if !acquired {
		out := outcomeOf(s)
		// Duplicate invocation after the outcome settled, e.g. back-button
		// navigation re-triggering the callback handler.
		c.Logger.Debug().Str("order_ref", out.OrderRef).Str("state", string(out.State)).Msg("confirm_replayed")
		return out, nil
	}

	start := time.Now()
	settlement, err := c.Ledger.Confirm(ctx, ledger.ConfirmRequest{
		PaymentKey: cb.PaymentKey,
		OrderID:    cb.OrderRef,
		Amount:     cb.Amount,
	}, bearer)
	result := "confirmed"
	switch {
	case err == nil:
		_ = s.Confirmed(settlement)
	case ledger.IsRejected(err):
		_ = s.Fail(ReasonConfirmationRejected)
		result = string(ReasonConfirmationRejected)
		span.RecordError(err)
	default:
		_ = s.Fail(ReasonConfirmationUnreachable)
		result = string(ReasonConfirmationUnreachable)
		span.RecordError(err)
	}
	span.SetAttributes(attribute.String("charge.confirm.result", result))
	if obs.ChargeConfirmTotal != nil {
		obs.ChargeConfirmTotal.WithLabelValues(result).Inc()
	}
	if obs.ChargeConfirmLatency != nil {
		obs.ChargeConfirmLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}

	out := outcomeOf(s)
	evt := c.Logger.Info().
		Str("order_ref", out.OrderRef).
		Str("state", string(out.State)).
		Int64("amount", out.Amount)
	if err != nil {
		evt = evt.Err(err).Str("reason", string(out.Reason))
	}
	evt.Msg("charge_confirm")

	if out.State == StateConfirmed && c.OnSettled != nil {
		if notifyErr := c.OnSettled(ctx, s); notifyErr != nil {
			c.Logger.Error().Err(notifyErr).Str("order_ref", out.OrderRef).Msg("settlement notification enqueue failed")
		}
	}
	return out, nil
}

// outcomeOf snapshots the session under its lock, so a replayed caller never
// observes a half-written resolution.
func outcomeOf(s *Session) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Outcome{
		OrderRef:   s.OrderRef,
		PaymentKey: s.PaymentKey,
		Amount:     s.Amount,
		State:      s.State,
		Reason:     s.Reason,
		Settlement: s.Settlement,
	}
}
