package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeSettlementEmail is the asynq task type for settlement notices.
const TypeSettlementEmail = "notify:settlement_email"

// SettlementPayload carries everything the email worker needs to compose a
// settlement notice without reaching back into the session store.
type SettlementPayload struct {
	To         string    `json:"to"`
	OrderRef   string    `json:"orderRef"`
	Amount     int64     `json:"amount"`
	Method     string    `json:"method"`
	OrderName  string    `json:"orderName"`
	ApprovedAt time.Time `json:"approvedAt"`
}

// NewSettlementTask packs the payload into an asynq task.
func NewSettlementTask(p SettlementPayload) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("notify: encode settlement payload: %w", err)
	}
	return asynq.NewTask(TypeSettlementEmail, body, asynq.MaxRetry(5)), nil
}
