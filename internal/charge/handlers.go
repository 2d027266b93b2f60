package charge

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nenidan/points-charge/internal/common"
	"github.com/nenidan/points-charge/internal/obs"
)

// Handler exposes HTTP endpoints for charge initiation and the processor's
// return URLs.
type Handler struct {
	Initiator   *Initiator
	Coordinator *Coordinator
	Store       *Store
	Logger      zerolog.Logger
}

type initiateReq struct {
	Amount int64 `json:"amount"`
}

type initiateResp struct {
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Amounts returns the fixed top-up menu.
func (h *Handler) Amounts(w http.ResponseWriter, _ *http.Request) {
	common.JSONData(w, http.StatusOK, ChargeAmounts)
}

// Initiate starts a new charge session for the authenticated user and returns
// the hosted-checkout redirect.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Initiator == nil {
		common.JSONError(w, http.StatusInternalServerError, "CHARGE_NOT_CONFIGURED", "charge handler unavailable", nil)
		return
	}
	bearer, ok := common.Bearer(r.Context())
	if !ok || strings.TrimSpace(bearer) == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "login required", nil)
		return
	}
	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}

	client := clientKey(r)
	s, err := h.Initiator.Initiate(r.Context(), client, req.Amount)
	if err != nil {
		renderAppError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, initiateResp{
		OrderID:     s.OrderRef,
		Amount:      s.Amount,
		CheckoutURL: s.CheckoutURL,
	})
}

// Success handles the processor's success redirect: it interprets the
// callback and performs the single authoritative ledger confirmation.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Coordinator == nil {
		common.JSONError(w, http.StatusInternalServerError, "CHARGE_NOT_CONFIGURED", "charge handler unavailable", nil)
		return
	}
	cb, err := ParseSuccess(r.URL.Query())
	if err != nil {
		h.failKnownSession(r.URL.Query().Get("orderId"), ReasonMalformedCallback)
		countCallback("success", string(ReasonMalformedCallback))
		p := Present(ReasonMalformedCallback)
		common.JSONError(w, http.StatusBadRequest, string(ReasonMalformedCallback), p.Title, map[string]any{
			"icon":        p.Icon,
			"description": p.Description,
			"error":       err.Error(),
		})
		return
	}
	countCallback("success", "interpreted")

	bearer, _ := common.Bearer(r.Context())
	outcome, err := h.Coordinator.Confirm(r.Context(), cb, bearer)
	if err != nil {
		renderAppError(w, err)
		return
	}
	if outcome.State == StateConfirmed {
		settlement := outcome.Settlement
		common.JSONData(w, http.StatusOK, map[string]any{
			"orderId":       outcome.OrderRef,
			"paymentKey":    outcome.PaymentKey,
			"amount":        settlement.Amount,
			"displayAmount": FormatAmount(settlement.Amount),
			"method":        settlement.Method,
			"orderName":     settlement.OrderName,
			"approvedAt":    settlement.ApprovedAt,
			"status":        settlement.Status,
		})
		return
	}

	p := Present(outcome.Reason)
	status := http.StatusBadRequest
	if outcome.Reason == ReasonConfirmationUnreachable {
		status = http.StatusBadGateway
	}
	common.JSONError(w, status, string(outcome.Reason), p.Title, map[string]any{
		"icon":        p.Icon,
		"description": p.Description,
		"orderId":     outcome.OrderRef,
	})
}

// Fail handles the processor's failure redirect. The interpretation is total
// and has no side effects beyond classification.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request) {
	cb := ParseFailure(r.URL.Query())
	h.failKnownSession(cb.OrderRef, cb.Reason)
	countCallback("fail", string(cb.Reason))

	p := Present(cb.Reason)
	common.JSONData(w, http.StatusOK, map[string]any{
		"code":        cb.Code,
		"message":     cb.Message,
		"orderId":     cb.OrderRef,
		"reason":      cb.Reason,
		"icon":        p.Icon,
		"title":       p.Title,
		"description": p.Description,
		"occurredAt":  time.Now().UTC().Format(time.RFC3339),
	})
}

// failKnownSession terminates a tracked session when a callback resolves it
// without going through the coordinator. Resolution runs under the store lock
// so it cannot interleave with a concurrent confirmation.
func (h *Handler) failKnownSession(orderRef string, reason FailureReason) {
	if h == nil || h.Store == nil {
		return
	}
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" || orderRef == UnknownOrderRef {
		return
	}
	h.Store.Resolve(orderRef, reason)
}

func clientKey(r *http.Request) string {
	if userID, ok := common.UserID(r.Context()); ok && strings.TrimSpace(userID) != "" {
		return userID
	}
	return common.ClientIP(r)
}

func countCallback(path, result string) {
	if obs.ChargeCallbackTotal != nil {
		obs.ChargeCallbackTotal.WithLabelValues(path, result).Inc()
	}
}

func renderAppError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.StatusOr(http.StatusInternalServerError), appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
}
