package charge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nenidan/points-charge/internal/common"
	"github.com/nenidan/points-charge/internal/ledger"
	"github.com/nenidan/points-charge/internal/processor"
)

func newTestHandler(lg Ledger, proc processor.Processor) (*Handler, *Store) {
	st := NewStore()
	init := &Initiator{
		Processor: proc,
		Store:     st,
		ReturnURLs: processor.ReturnURLs{
			Success: "http://localhost:8080/payments/success",
			Fail:    "http://localhost:8080/payments/fail",
		},
	}
	coord := &Coordinator{Ledger: lg, Store: st, Logger: zerolog.Nop()}
	return &Handler{Initiator: init, Coordinator: coord, Store: st, Logger: zerolog.Nop()}, st
}

func withBearer(r *http.Request, token string) *http.Request {
	ctx := common.WithBearer(r.Context(), token)
	ctx = common.WithUserID(ctx, "user-1")
	return r.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error envelope: %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestInitiateRequiresBearer(t *testing.T) {
	h, _ := newTestHandler(&stubLedger{}, &fakeProcessor{})
	req := httptest.NewRequest(http.MethodPost, "/api/charge", strings.NewReader(`{"amount":10000}`))
	rec := httptest.NewRecorder()

	h.Initiate(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "UNAUTHENTICATED" {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestInitiateReturnsCheckoutURL(t *testing.T) {
	h, st := newTestHandler(&stubLedger{}, &fakeProcessor{})
	req := withBearer(httptest.NewRequest(http.MethodPost, "/api/charge", strings.NewReader(`{"amount":30000}`)), "token-1")
	rec := httptest.NewRecorder()

	h.Initiate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, ok := decodeBody(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data envelope: %s", rec.Body.String())
	}
	orderID, _ := data["orderId"].(string)
	checkoutURL, _ := data["checkoutUrl"].(string)
	if orderID == "" || checkoutURL == "" {
		t.Fatalf("incomplete response: %v", data)
	}
	if s, ok := st.Get(orderID); !ok || s.State != StateAwaitingCallback {
		t.Fatalf("session not awaiting callback: %+v", s)
	}
}

func TestInitiateRejectsInvalidBody(t *testing.T) {
	h, _ := newTestHandler(&stubLedger{}, &fakeProcessor{})
	req := withBearer(httptest.NewRequest(http.MethodPost, "/api/charge", strings.NewReader(`not json`)), "token-1")
	rec := httptest.NewRecorder()

	h.Initiate(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSuccessCallbackConfirms(t *testing.T) {
	lg := &stubLedger{settlement: ledger.Settlement{Amount: 30000, Method: "카드", OrderName: "포인트 30,000원 충전", Status: "DONE"}}
	h, st := newTestHandler(lg, &fakeProcessor{})
	s := awaitingSession(st, 30000)

	target := "/payments/success?paymentKey=pk_1&orderId=" + s.OrderRef + "&amount=30000"
	req := withBearer(httptest.NewRequest(http.MethodGet, target, nil), "token-1")
	rec := httptest.NewRecorder()

	h.Success(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := decodeBody(t, rec)["data"].(map[string]any)
	if data["status"] != "DONE" || data["displayAmount"] != "30,000" {
		t.Fatalf("unexpected payload: %v", data)
	}
	if lg.calls != 1 {
		t.Fatalf("expected one ledger call, got %d", lg.calls)
	}
}

func TestSuccessCallbackMalformed(t *testing.T) {
	h, st := newTestHandler(&stubLedger{}, &fakeProcessor{})
	s := awaitingSession(st, 30000)

	target := "/payments/success?orderId=" + s.OrderRef + "&amount=30000"
	rec := httptest.NewRecorder()
	h.Success(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(ReasonMalformedCallback) {
		t.Fatalf("unexpected code: %s", code)
	}
	if got, _ := st.Get(s.OrderRef); got.State != StateFailed || got.Reason != ReasonMalformedCallback {
		t.Fatalf("session not failed as malformed: %+v", got)
	}
}

func TestSuccessCallbackAmountMismatch(t *testing.T) {
	lg := &stubLedger{settlement: ledger.Settlement{Amount: 30000, Status: "DONE"}}
	h, st := newTestHandler(lg, &fakeProcessor{})
	s := awaitingSession(st, 30000)

	target := "/payments/success?paymentKey=pk_1&orderId=" + s.OrderRef + "&amount=31000"
	rec := httptest.NewRecorder()
	h.Success(rec, withBearer(httptest.NewRequest(http.MethodGet, target, nil), "token-1"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(ReasonMalformedCallback) {
		t.Fatalf("unexpected code: %s", code)
	}
	if lg.calls != 0 {
		t.Fatalf("mismatched amount reached the ledger: %d calls", lg.calls)
	}
	if got, _ := st.Get(s.OrderRef); got.State != StateFailed || got.Reason != ReasonMalformedCallback {
		t.Fatalf("session not failed as malformed: %s/%s", got.State, got.Reason)
	}
}

func TestSuccessCallbackRejectedConfirmation(t *testing.T) {
	lg := &stubLedger{err: &ledger.RejectedError{HTTPStatus: 400, Code: "EXPIRED", Message: "session expired"}}
	h, st := newTestHandler(lg, &fakeProcessor{})
	s := awaitingSession(st, 30000)

	target := "/payments/success?paymentKey=pk_1&orderId=" + s.OrderRef + "&amount=30000"
	rec := httptest.NewRecorder()
	h.Success(rec, withBearer(httptest.NewRequest(http.MethodGet, target, nil), "token-1"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(ReasonConfirmationRejected) {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestSuccessCallbackUnreachableLedger(t *testing.T) {
	lg := &stubLedger{err: context.DeadlineExceeded}
	h, st := newTestHandler(lg, &fakeProcessor{})
	s := awaitingSession(st, 30000)

	target := "/payments/success?paymentKey=pk_1&orderId=" + s.OrderRef + "&amount=30000"
	rec := httptest.NewRecorder()
	h.Success(rec, withBearer(httptest.NewRequest(http.MethodGet, target, nil), "token-1"))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(ReasonConfirmationUnreachable) {
		t.Fatalf("unexpected code: %s", code)
	}
}

func TestFailCallbackDefaults(t *testing.T) {
	h, _ := newTestHandler(&stubLedger{}, &fakeProcessor{})
	rec := httptest.NewRecorder()
	h.Fail(rec, httptest.NewRequest(http.MethodGet, "/payments/fail", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, _ := decodeBody(t, rec)["data"].(map[string]any)
	if data["code"] != DefaultFailureCode || data["orderId"] != UnknownOrderRef {
		t.Fatalf("sentinels not applied: %v", data)
	}
	if data["reason"] != string(ReasonUserCancelled) {
		t.Fatalf("unexpected reason: %v", data["reason"])
	}
}

func TestFailCallbackResolvesTrackedSession(t *testing.T) {
	h, st := newTestHandler(&stubLedger{}, &fakeProcessor{})
	s := awaitingSession(st, 10000)

	target := "/payments/fail?code=INSUFFICIENT_FUNDS&message=balance+too+low&orderId=" + s.OrderRef
	rec := httptest.NewRecorder()
	h.Fail(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if got, _ := st.Get(s.OrderRef); got.State != StateFailed || got.Reason != ReasonInsufficientFunds {
		t.Fatalf("session not resolved: %+v", got)
	}
}

func TestAmountsEndpoint(t *testing.T) {
	h, _ := newTestHandler(&stubLedger{}, &fakeProcessor{})
	rec := httptest.NewRecorder()
	h.Amounts(rec, httptest.NewRequest(http.MethodGet, "/api/charge/amounts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, ok := decodeBody(t, rec)["data"].([]any)
	if !ok || len(data) != len(ChargeAmounts) {
		t.Fatalf("unexpected menu payload: %s", rec.Body.String())
	}
}
