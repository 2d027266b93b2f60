package processor

import "context"

// Descriptor captures the payment intent handed to the hosted checkout.
type Descriptor struct {
	Amount    int64
	OrderRef  string
	OrderName string
}

// ReturnURLs are the application-owned redirect targets the processor sends
// the browser back to with outcome data appended as query parameters.
type ReturnURLs struct {
	Success string
	Fail    string
}

// Handoff represents the minimal information needed to surrender control to
// the processor's hosted checkout.
type Handoff struct {
	Processor   string
	CheckoutURL string
}

// Processor abstracts the redirect-based handoff to an external payment
// processor. Implementations never treat the eventual callback as proof of
// payment; they only open the checkout.
type Processor interface {
	InitiateHandoff(ctx context.Context, desc Descriptor, ret ReturnURLs) (Handoff, error)
}
