package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"

	"github.com/phenrril/storefront/internal/domain"
)

// TemporalNotifier starts one OrderNotificationWorkflow per event.
type TemporalNotifier struct {
	client    client.Client
	taskQueue string
}

func NewTemporalNotifier(c client.Client, taskQueue string) *TemporalNotifier {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &TemporalNotifier{client: c, taskQueue: taskQueue}
}

func (n *TemporalNotifier) start(ctx context.Context, id string, msg OrderEmail) error {
	run, err := n.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: n.taskQueue,
	}, OrderNotificationWorkflow, msg)
	if err != nil {
		return fmt.Errorf("start notification workflow %s: %w", id, err)
	}
	log.Debug().Str("workflow_id", run.GetID()).Str("run_id", run.GetRunID()).Msg("notification workflow started")
	return nil
}

func (n *TemporalNotifier) OrderPlaced(ctx context.Context, o *domain.Order) error {
	msg := newOrderEmail(KindOrderPlaced, o)
	return n.start(ctx, "order-"+msg.OrderID+"-placed", msg)
}

func (n *TemporalNotifier) OrderStatusChanged(ctx context.Context, o *domain.Order, from domain.OrderStatus) error {
	msg := newOrderEmail(KindStatusChanged, o)
	msg.FromStatus = string(from)
	return n.start(ctx, fmt.Sprintf("order-%s-%s-v%d", msg.OrderID, msg.Status, o.Version), msg)
}

// LogNotifier is used when no Temporal host is configured.
type LogNotifier struct{}

func (LogNotifier) OrderPlaced(_ context.Context, o *domain.Order) error {
	log.Info().Str("order_id", o.ID.String()).Str("email", o.Email).Float64("total", o.Total).Msg("order placed")
	return nil
}

func (LogNotifier) OrderStatusChanged(_ context.Context, o *domain.Order, from domain.OrderStatus) error {
	log.Info().Str("order_id", o.ID.String()).Str("from", string(from)).Str("to", string(o.Status)).Msg("order status changed")
	return nil
}
