package notify

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Enqueuer hands settlement notices to the task queue. Delivery is best
// effort: the charge outcome is already terminal when this runs.
type Enqueuer struct {
	Client  *asynq.Client
	Enabled bool
	Logger  zerolog.Logger
}

// EnqueueSettlement queues one settlement notice. Disabled or unconfigured
// enqueuers drop the notice silently.
func (e Enqueuer) EnqueueSettlement(ctx context.Context, p SettlementPayload) error {
	if !e.Enabled || e.Client == nil {
		return nil
	}
	task, err := NewSettlementTask(p)
	if err != nil {
		return err
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("notify: enqueue settlement: %w", err)
	}
	e.Logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Str("order_ref", p.OrderRef).
		Msg("settlement notice enqueued")
	return nil
}
