package charge

import (
	"errors"
	"sync"
	"time"

	"github.com/nenidan/points-charge/internal/ledger"
)

// State enumerates the lifecycle states of a charge session.
type State string

const (
	StateInitiated        State = "INITIATED"
	StateAwaitingCallback State = "AWAITING_CALLBACK"
	StateConfirming       State = "CONFIRMING"
	StateConfirmed        State = "CONFIRMED"
	StateFailed           State = "FAILED"
)

// FailureReason classifies why a session reached the FAILED state. The set is
// closed: every failure path maps onto one of these values.
type FailureReason string

const (
	ReasonValidation              FailureReason = "VALIDATION"
	ReasonProcessorUnavailable    FailureReason = "PROCESSOR_UNAVAILABLE"
	ReasonMalformedCallback       FailureReason = "MALFORMED_CALLBACK"
	ReasonConfirmationRejected    FailureReason = "CONFIRMATION_REJECTED"
	ReasonConfirmationUnreachable FailureReason = "CONFIRMATION_UNREACHABLE"

	// Processor-supplied categories, classified from the failure callback code.
	ReasonUserCancelled     FailureReason = "USER_CANCELLED"
	ReasonInsufficientFunds FailureReason = "INSUFFICIENT_FUNDS"
	ReasonInvalidInstrument FailureReason = "INVALID_INSTRUMENT"
	ReasonNetworkError      FailureReason = "NETWORK_ERROR"
	ReasonOther             FailureReason = "OTHER"
)

// ErrTerminalState is returned when a transition is attempted out of a
// terminal session state.
var ErrTerminalState = errors.New("charge: session already terminal")

// ErrAmountMismatch is returned when a success callback carries an amount
// different from the one the session was initiated with.
var ErrAmountMismatch = errors.New("charge: callback amount does not match session")

// Session represents one charge attempt from amount selection through its
// terminal outcome. Sessions are process-local and are never persisted; a
// fresh attempt always allocates a new order reference.
//
// A session is shared between the request that initiated it and the requests
// delivering its callbacks, so all state transitions and reads of mutable
// fields go through the methods below, which serialise on the session's own
// mutex.
type Session struct {
	mu sync.Mutex

	OrderRef    string
	Amount      int64
	State       State
	CheckoutURL string

	// Client identifies the session owner for in-flight scoping and
	// settlement notification. Empty for sessions recreated from callback
	// data alone.
	Client string

	// PaymentKey is the processor's payment reference, present only after a
	// successful callback.
	PaymentKey string

	Reason     FailureReason
	Settlement *ledger.Settlement

	resolvedAt time.Time
}

// NewSession allocates a session in INITIATED with a fresh order reference.
func NewSession(amount int64) *Session {
	return &Session{
		OrderRef: NewOrderRef(),
		Amount:   amount,
		State:    StateInitiated,
	}
}

// Terminal reports whether the session reached CONFIRMED or FAILED.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminalLocked()
}

// InFlight reports whether the session is between handoff and resolution.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State == StateAwaitingCallback || s.State == StateConfirming
}

func (s *Session) terminalLocked() bool {
	return s.State == StateConfirmed || s.State == StateFailed
}

// AwaitCallback marks the instant control is handed to the processor.
func (s *Session) AwaitCallback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminalLocked() {
		return ErrTerminalState
	}
	s.State = StateAwaitingCallback
	return nil
}

// SetCheckoutURL records the hosted-checkout redirect after a successful
// handoff.
func (s *Session) SetCheckoutURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CheckoutURL = u
}

// BeginConfirm marks the return callback as parsed and confirmation pending.
func (s *Session) BeginConfirm(paymentKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminalLocked() {
		return ErrTerminalState
	}
	s.State = StateConfirming
	s.PaymentKey = paymentKey
	return nil
}

// acquireConfirm atomically decides the session's disposition for a
// confirmation attempt: acquired when the caller now owns the single ledger
// call, (false, nil) when the outcome is already terminal and can be
// replayed, ErrConfirmInFlight for a concurrent duplicate, and
// ErrAmountMismatch (resolving the session as malformed) when the callback
// amount disagrees with the amount the session was initiated for.
func (s *Session) acquireConfirm(amount int64, paymentKey string) (acquired bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminalLocked() {
		return false, nil
	}
	if s.State == StateConfirming {
		return false, ErrConfirmInFlight
	}
	if s.Amount != amount {
		s.State = StateFailed
		s.Reason = ReasonMalformedCallback
		s.resolvedAt = time.Now()
		return false, ErrAmountMismatch
	}
	s.State = StateConfirming
	s.PaymentKey = paymentKey
	return true, nil
}

// Confirmed resolves the session with the ledger's settlement details.
func (s *Session) Confirmed(settlement ledger.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminalLocked() {
		return ErrTerminalState
	}
	s.State = StateConfirmed
	s.Settlement = &settlement
	s.resolvedAt = time.Now()
	return nil
}

// Fail resolves the session as FAILED with the given reason.
func (s *Session) Fail(reason FailureReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminalLocked() {
		return ErrTerminalState
	}
	s.State = StateFailed
	s.Reason = reason
	s.resolvedAt = time.Now()
	return nil
}

// expiredBy reports whether the session resolved before the cutoff.
func (s *Session) expiredBy(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminalLocked() && !s.resolvedAt.IsZero() && s.resolvedAt.Before(cutoff)
}
