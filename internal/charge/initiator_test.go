package charge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/nenidan/points-charge/internal/common"
	"github.com/nenidan/points-charge/internal/processor"
)

type fakeProcessor struct {
	err   error
	calls int
	desc  processor.Descriptor
}

func (f *fakeProcessor) InitiateHandoff(_ context.Context, desc processor.Descriptor, _ processor.ReturnURLs) (processor.Handoff, error) {
	f.calls++
	f.desc = desc
	if f.err != nil {
		return processor.Handoff{}, f.err
	}
	return processor.Handoff{Processor: "fake", CheckoutURL: "https://checkout.example/" + desc.OrderRef}, nil
}

func newTestInitiator(p processor.Processor) (*Initiator, *Store) {
	st := NewStore()
	return &Initiator{
		Processor: p,
		Store:     st,
		ReturnURLs: processor.ReturnURLs{
			Success: "http://localhost:8080/payments/success",
			Fail:    "http://localhost:8080/payments/fail",
		},
	}, st
}

func TestInitiateHappyPath(t *testing.T) {
	fp := &fakeProcessor{}
	init, st := newTestInitiator(fp)

	s, err := init.Initiate(context.Background(), "user-1", 30000)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if s.State != StateAwaitingCallback {
		t.Fatalf("expected AWAITING_CALLBACK, got %s", s.State)
	}
	if s.CheckoutURL == "" {
		t.Fatal("checkout url not set")
	}
	if fp.calls != 1 {
		t.Fatalf("expected one handoff, got %d", fp.calls)
	}
	if !strings.Contains(fp.desc.OrderName, "30,000") {
		t.Fatalf("order name missing formatted amount: %q", fp.desc.OrderName)
	}
	if _, ok := st.Get(s.OrderRef); !ok {
		t.Fatal("session not tracked")
	}
}

func TestInitiateRejectsNonPositiveAmount(t *testing.T) {
	fp := &fakeProcessor{}
	init, _ := newTestInitiator(fp)

	for _, amount := range []int64{0, -100} {
		_, err := init.Initiate(context.Background(), "user-1", amount)
		var appErr *common.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("expected AppError for amount %d, got %v", amount, err)
		}
		if appErr.Code != string(ReasonValidation) {
			t.Fatalf("unexpected code: %s", appErr.Code)
		}
		if appErr.HTTPStatus != http.StatusBadRequest {
			t.Fatalf("unexpected status: %d", appErr.HTTPStatus)
		}
	}
	if fp.calls != 0 {
		t.Fatal("processor must not be reached on validation failure")
	}
}

func TestInitiateRejectsSecondInFlightSession(t *testing.T) {
	init, _ := newTestInitiator(&fakeProcessor{})

	if _, err := init.Initiate(context.Background(), "user-1", 10000); err != nil {
		t.Fatalf("first initiate: %v", err)
	}
	_, err := init.Initiate(context.Background(), "user-1", 10000)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "SESSION_IN_FLIGHT" {
		t.Fatalf("expected SESSION_IN_FLIGHT, got %v", err)
	}
}

func TestInitiateFailsSessionWhenHandoffFails(t *testing.T) {
	fp := &fakeProcessor{err: errors.New("processor down")}
	init, st := newTestInitiator(fp)

	s, err := init.Initiate(context.Background(), "user-1", 10000)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != string(ReasonProcessorUnavailable) {
		t.Fatalf("expected PROCESSOR_UNAVAILABLE, got %v", err)
	}
	if s == nil || s.State != StateFailed || s.Reason != ReasonProcessorUnavailable {
		t.Fatalf("unexpected session: %+v", s)
	}

	// The failed attempt must not block a fresh one.
	fp.err = nil
	if _, err := init.Initiate(context.Background(), "user-1", 10000); err != nil {
		t.Fatalf("retry after processor failure: %v", err)
	}
	if got, _ := st.Get(s.OrderRef); got != nil && got.State != StateFailed {
		t.Fatalf("original session mutated: %+v", got)
	}
}

func TestChargeAmountsMenu(t *testing.T) {
	if len(ChargeAmounts) != 4 {
		t.Fatalf("unexpected menu size: %d", len(ChargeAmounts))
	}
	var popular int64
	for _, opt := range ChargeAmounts {
		if opt.Popular {
			popular = opt.Value
		}
	}
	if popular != 30000 {
		t.Fatalf("expected 30000 marked popular, got %d", popular)
	}
}
