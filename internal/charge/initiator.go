package charge

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nenidan/points-charge/internal/common"
	"github.com/nenidan/points-charge/internal/obs"
	"github.com/nenidan/points-charge/internal/processor"
)

// ChargeAmounts is the fixed top-up menu offered by the amount selection
// step. The core accepts any positive amount; the menu is presentational.
var ChargeAmounts = []AmountOption{
	{Value: 10_000},
	{Value: 30_000, Popular: true},
	{Value: 50_000},
	{Value: 100_000},
}

// AmountOption is one entry of the top-up menu.
type AmountOption struct {
	Value   int64 `json:"value"`
	Popular bool  `json:"popular"`
}

type initiateInput struct {
	Amount int64 `validate:"required,gt=0"`
}

// Initiator drives a charge attempt up to the processor handoff.
type Initiator struct {
	Processor  processor.Processor
	Store      *Store
	ReturnURLs processor.ReturnURLs
	Validate   *validator.Validate
}

// Initiate allocates a new session for the requested amount and surrenders
// control to the processor's hosted checkout. The returned session is in
// AWAITING_CALLBACK with the checkout URL set, or FAILED when the handoff
// could not start. Validation failures reject the request before any session
// is tracked.
func (i *Initiator) Initiate(ctx context.Context, client string, amount int64) (*Session, error) {
	if i == nil || i.Processor == nil || i.Store == nil {
		return nil, common.NewAppError("CHARGE_NOT_CONFIGURED", "charge initiator unavailable", http.StatusInternalServerError, nil)
	}
	ctx, span := otel.Tracer("charge.Initiator").Start(ctx, "Initiator.Initiate")
	defer span.End()

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("charge.initiate.result", result))
		if obs.ChargeSessionTotal != nil {
			obs.ChargeSessionTotal.WithLabelValues(result).Inc()
		}
	}()

	validate := i.Validate
	if validate == nil {
		validate = validator.New()
	}
	if err := validate.Struct(initiateInput{Amount: amount}); err != nil {
		result = string(ReasonValidation)
		return nil, common.NewAppError(string(ReasonValidation),
			fmt.Sprintf("requested amount must be a positive integer, got %d", amount),
			http.StatusBadRequest, err)
	}

	s := NewSession(amount)
	span.SetAttributes(attribute.String("charge.order_ref", s.OrderRef), attribute.Int64("charge.amount", amount))
	if err := i.Store.Track(client, s); err != nil {
		result = "in_flight"
		return nil, common.NewAppError("SESSION_IN_FLIGHT", "another charge is already in flight", http.StatusConflict, err)
	}

	desc := processor.Descriptor{
		Amount:    amount,
		OrderRef:  s.OrderRef,
		OrderName: fmt.Sprintf("포인트 %s원 충전", FormatAmount(amount)),
	}

	// The handoff is the suspension point of the whole protocol: control
	// returns only via a fresh request at one of the return URLs.
	_ = s.AwaitCallback()
	handoff, err := i.Processor.InitiateHandoff(ctx, desc, i.ReturnURLs)
	if err != nil {
		span.RecordError(err)
		_ = s.Fail(ReasonProcessorUnavailable)
		result = string(ReasonProcessorUnavailable)
		return s, common.NewAppError(string(ReasonProcessorUnavailable),
			"payment processor unavailable, please pick an amount again",
			http.StatusBadGateway, err)
	}
	s.SetCheckoutURL(handoff.CheckoutURL)
	result = "success"
	return s, nil
}
