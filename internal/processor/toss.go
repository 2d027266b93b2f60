package processor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Toss implements the Processor interface for a Toss Payments style hosted
// checkout. The handoff builds the checkout URL without a network call; the
// processor takes over only when the browser navigates to it.
type Toss struct {
	ClientKey string
	BaseURL   string
}

// InitiateHandoff constructs the hosted-checkout URL for the descriptor.
func (t Toss) InitiateHandoff(_ context.Context, desc Descriptor, ret ReturnURLs) (Handoff, error) {
	if strings.TrimSpace(t.ClientKey) == "" {
		return Handoff{}, errors.New("toss: client key not configured")
	}
	if strings.TrimSpace(desc.OrderRef) == "" {
		return Handoff{}, errors.New("toss: order reference is required")
	}
	if desc.Amount <= 0 {
		return Handoff{}, fmt.Errorf("toss: invalid amount %d", desc.Amount)
	}
	if strings.TrimSpace(ret.Success) == "" || strings.TrimSpace(ret.Fail) == "" {
		return Handoff{}, errors.New("toss: return urls are required")
	}

	q := url.Values{}
	q.Set("clientKey", t.ClientKey)
	q.Set("orderId", desc.OrderRef)
	q.Set("orderName", desc.OrderName)
	q.Set("amount", strconv.FormatInt(desc.Amount, 10))
	q.Set("successUrl", ret.Success)
	q.Set("failUrl", ret.Fail)

	return Handoff{
		Processor:   "toss",
		CheckoutURL: fmt.Sprintf("%s/v1/checkout?%s", strings.TrimRight(t.host(), "/"), q.Encode()),
	}, nil
}

func (t Toss) host() string {
	host := strings.TrimSpace(t.BaseURL)
	if host == "" {
		return "https://checkout-stub.tosspayments"
	}
	return host
}
