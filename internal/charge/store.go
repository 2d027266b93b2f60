package charge

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrSessionInFlight is returned when a client requests a new session
	// while another one of its sessions is still between handoff and
	// resolution.
	ErrSessionInFlight = errors.New("charge: another session is in flight")
	// ErrConfirmInFlight is returned when a confirmation is already being
	// issued for the same order reference.
	ErrConfirmInFlight = errors.New("charge: confirmation already in flight")
)

// defaultRetention bounds how long a terminal session stays replayable. Long
// enough for back-button and reload duplicates, short enough that resolved
// sessions do not pile up for the life of the process.
const defaultRetention = 30 * time.Minute

// Store is the process-local session state store. It de-duplicates
// confirmation attempts within one process lifetime and enforces the
// one-in-flight-session-per-client invariant. It is not durable: reload-level
// protection is delegated to the ledger's own idempotency per order
// reference.
//
// Terminal sessions are kept for the retention window so duplicate callbacks
// replay the cached outcome, then evicted. Eviction is amortised over Track
// and BeginConfirm, so no background goroutine is needed.
type Store struct {
	mu        sync.Mutex
	retention time.Duration
	sessions  map[string]*Session
	inflight  map[string]string // client -> order reference
}

// NewStore constructs an empty session store with the default terminal
// retention window.
func NewStore() *Store {
	return &Store{
		retention: defaultRetention,
		sessions:  make(map[string]*Session),
		inflight:  make(map[string]string),
	}
}

// WithRetention overrides how long terminal sessions stay replayable.
func (st *Store) WithRetention(d time.Duration) *Store {
	st.mu.Lock()
	defer st.mu.Unlock()
	if d > 0 {
		st.retention = d
	}
	return st
}

// Track registers a freshly initiated session for a client. It fails when the
// client already has a session in flight, so no client ever holds two
// concurrent charges.
func (st *Store) Track(client string, s *Session) error {
	if st == nil || s == nil {
		return errors.New("charge: store not configured")
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked(time.Now())
	if ref, ok := st.inflight[client]; ok {
		if prior, found := st.sessions[ref]; found && prior.InFlight() {
			return ErrSessionInFlight
		}
	}
	s.mu.Lock()
	s.Client = client
	s.mu.Unlock()
	st.sessions[s.OrderRef] = s
	st.inflight[client] = s.OrderRef
	return nil
}

// Get returns the session for the given order reference if known.
func (st *Store) Get(orderRef string) (*Session, bool) {
	if st == nil {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[orderRef]
	return s, ok
}

// BeginConfirm acquires the confirmation guard for an order reference and
// returns the session that owns it. When the session is already terminal the
// cached session is returned with acquired=false so the caller can report the
// prior outcome without issuing a second network call. A session unknown to
// the store (the original object did not survive the handoff) is recreated in
// CONFIRMING entirely from the callback data.
func (st *Store) BeginConfirm(orderRef string, amount int64, paymentKey string) (s *Session, acquired bool, err error) {
	if st == nil {
		return nil, false, errors.New("charge: store not configured")
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked(time.Now())

	s, ok := st.sessions[orderRef]
	if !ok {
		s = &Session{
			OrderRef:   orderRef,
			Amount:     amount,
			State:      StateConfirming,
			PaymentKey: paymentKey,
		}
		st.sessions[orderRef] = s
		return s, true, nil
	}
	acquired, err = s.acquireConfirm(amount, paymentKey)
	return s, acquired, err
}

// Resolve moves a tracked session into a terminal failure under the store's
// lock, so a concurrent confirmation never observes a half-written session.
// Unknown order references and already-terminal sessions are left untouched.
func (st *Store) Resolve(orderRef string, reason FailureReason) (*Session, bool) {
	if st == nil {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[orderRef]
	if !ok {
		return nil, false
	}
	_ = s.Fail(reason)
	return s, true
}

// Sweep evicts terminal sessions that resolved before now minus the retention
// window and returns how many were removed.
func (st *Store) Sweep(now time.Time) int {
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sweepLocked(now)
}

func (st *Store) sweepLocked(now time.Time) int {
	cutoff := now.Add(-st.retention)
	evicted := 0
	for ref, s := range st.sessions {
		if !s.expiredBy(cutoff) {
			continue
		}
		delete(st.sessions, ref)
		evicted++
	}
	for client, ref := range st.inflight {
		if _, ok := st.sessions[ref]; !ok {
			delete(st.inflight, client)
		}
	}
	return evicted
}
