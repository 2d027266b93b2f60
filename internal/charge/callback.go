package charge

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedCallback is returned when a success callback is missing
// required fields or carries a non-positive amount.
var ErrMalformedCallback = errors.New("charge: malformed callback")

// Sentinels used when a failure callback omits optional parameters.
const (
	DefaultFailureCode    = "USER_CANCEL"
	DefaultFailureMessage = "payment was cancelled by the user"
	UnknownOrderRef       = "unknown"
)

// SuccessCallback carries the parameters the processor appends to the
// success return URL. It is never proof of payment; it only feeds the
// server-side confirmation.
type SuccessCallback struct {
	PaymentKey string
	OrderRef   string
	Amount     int64
}

// FailureCallback carries the parameters of a failure redirect, with
// sentinels substituted for absent values.
type FailureCallback struct {
	Code     string
	Message  string
	OrderRef string
	Reason   FailureReason
}

// ParseSuccess interprets the query parameters of a success redirect. The
// interpretation fails when either reference is missing or the amount is not
// a positive integer; callers must treat that as FAILED/MALFORMED_CALLBACK,
// never as success.
func ParseSuccess(q url.Values) (SuccessCallback, error) {
	var zero SuccessCallback
	paymentKey := strings.TrimSpace(q.Get("paymentKey"))
	if paymentKey == "" {
		return zero, fmt.Errorf("%w: missing paymentKey", ErrMalformedCallback)
	}
	orderRef := strings.TrimSpace(q.Get("orderId"))
	if orderRef == "" {
		return zero, fmt.Errorf("%w: missing orderId", ErrMalformedCallback)
	}
	rawAmount := strings.TrimSpace(q.Get("amount"))
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		return zero, fmt.Errorf("%w: amount %q is not an integer", ErrMalformedCallback, rawAmount)
	}
	if amount <= 0 {
		return zero, fmt.Errorf("%w: amount %d is not positive", ErrMalformedCallback, amount)
	}
	return SuccessCallback{PaymentKey: paymentKey, OrderRef: orderRef, Amount: amount}, nil
}

// ParseFailure interprets the query parameters of a failure redirect. The
// interpretation is total: absent values fall back to sentinels and
// unrecognised codes classify as OTHER.
func ParseFailure(q url.Values) FailureCallback {
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		code = DefaultFailureCode
	}
	message := strings.TrimSpace(q.Get("message"))
	if message == "" {
		message = DefaultFailureMessage
	}
	orderRef := strings.TrimSpace(q.Get("orderId"))
	if orderRef == "" {
		orderRef = UnknownOrderRef
	}
	return FailureCallback{
		Code:     code,
		Message:  message,
		OrderRef: orderRef,
		Reason:   ClassifyFailureCode(code),
	}
}

// ClassifyFailureCode maps a processor failure code onto a failure reason,
// defaulting to OTHER for unrecognised codes.
func ClassifyFailureCode(code string) FailureReason {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "USER_CANCEL", "PAY_PROCESS_CANCELED":
		return ReasonUserCancelled
	case "INSUFFICIENT_FUNDS":
		return ReasonInsufficientFunds
	case "INVALID_CARD":
		return ReasonInvalidInstrument
	case "NETWORK_ERROR":
		return ReasonNetworkError
	default:
		return ReasonOther
	}
}
