package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// DefaultMaxRetry is how many times an inbound message task is retried before
// the customer gets the processing apology.
const DefaultMaxRetry = 3

// QueueInbound is the queue inbound message tasks run on.
const QueueInbound = "inbound"

// Enqueuer submits inbound message tasks from the webhook to Redis.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates an Enqueuer talking to the given Redis address.
func NewEnqueuer(redisAddr string) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// EnqueueInbound queues one inbound message. The task ID is the Twilio
// message SID, so a webhook redelivery never queues the same message twice.
func (e *Enqueuer) EnqueueInbound(ctx context.Context, msg InboundMessage) error {
	task, err := NewInboundTask(msg)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueInbound),
		asynq.MaxRetry(DefaultMaxRetry),
		asynq.TaskID(msg.MessageSID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Debug("Enqueuer.EnqueueInbound: duplicate webhook delivery ignored", "sid", msg.MessageSID)
		return nil
	}
	if err != nil {
		slog.Error("Enqueuer.EnqueueInbound failed", "error", err, "sid", msg.MessageSID)
		return fmt.Errorf("enqueue inbound message: %w", err)
	}
	slog.Debug("Enqueuer.EnqueueInbound succeeded", "sid", msg.MessageSID, "from", msg.From)
	return nil
}

// Close releases the underlying Redis connections.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
