package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/nenidan/points-charge/internal/common"
	"github.com/nenidan/points-charge/internal/obs"
)

// EmailWorker delivers settlement notices from the task queue.
type EmailWorker struct {
	Mail   common.EmailSender
	From   string
	Logger zerolog.Logger
}

// HandleSettlement processes one settlement notice task. Tasks without a
// recipient are dropped: sessions recreated purely from callback data have no
// known owner and the ledger already holds the authoritative record.
func (w EmailWorker) HandleSettlement(ctx context.Context, task *asynq.Task) error {
	var p SettlementPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		countDelivery("malformed")
		return fmt.Errorf("notify: decode settlement payload: %w", err)
	}
	to := strings.TrimSpace(p.To)
	if to == "" || w.Mail == nil {
		countDelivery("skipped")
		return nil
	}

	subject := fmt.Sprintf("포인트 충전 완료: %s", p.OrderName)
	body := settlementBody(p)
	if err := w.Mail.Send(to, subject, body); err != nil {
		countDelivery("error")
		w.Logger.Error().Err(err).Str("order_ref", p.OrderRef).Msg("settlement notice delivery failed")
		return err
	}
	countDelivery("sent")
	w.Logger.Info().Str("order_ref", p.OrderRef).Str("to", to).Msg("settlement notice sent")
	return nil
}

func settlementBody(p SettlementPayload) string {
	approved := p.ApprovedAt
	if approved.IsZero() {
		approved = time.Now().UTC()
	}
	return fmt.Sprintf(
		"<p>%s</p><p>결제수단: %s</p><p>금액: %d원</p><p>주문번호: %s</p><p>승인시각: %s</p>",
		p.OrderName, p.Method, p.Amount, p.OrderRef, approved.Format(time.RFC3339),
	)
}

func countDelivery(result string) {
	if obs.NotifyDeliveriesTotal != nil {
		obs.NotifyDeliveriesTotal.WithLabelValues(result).Inc()
	}
}

// NewMux registers the worker's handlers on a fresh asynq mux.
func NewMux(w EmailWorker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSettlementEmail, w.HandleSettlement)
	return mux
}
