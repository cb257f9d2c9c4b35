package notify

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const sendOrderEmailActivity = "SendOrderEmail"

func OrderNotificationWorkflow(ctx workflow.Context, msg OrderEmail) error {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        5 * time.Minute,
			MaximumAttempts:        8,
			NonRetryableErrorTypes: []string{ErrTypeInvalidAddress},
		},
	})

	if err := workflow.ExecuteActivity(ctx, sendOrderEmailActivity, msg).Get(ctx, nil); err != nil {
		logger.Error("order email failed", "orderID", msg.OrderID, "kind", msg.Kind, "error", err)
		return err
	}
	logger.Info("order email sent", "orderID", msg.OrderID, "kind", msg.Kind)
	return nil
}
