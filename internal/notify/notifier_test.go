package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"github.com/phenrril/storefront/internal/domain"
)

func TestTemporalNotifier_StartsWorkflow(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("wf")
	run.On("GetRunID").Return("run")

	o := &domain.Order{ID: uuid.New(), TenantID: uuid.New(), Email: "a@b.io", Status: domain.OrderStatusPaid, Version: 2}
	var gotOpts client.StartWorkflowOptions
	var gotMsg OrderEmail
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotOpts = args.Get(1).(client.StartWorkflowOptions)
			gotMsg = args.Get(3).(OrderEmail)
		}).
		Return(run, nil)

	n := NewTemporalNotifier(c, "")
	assert.NoError(t, n.OrderStatusChanged(context.Background(), o, domain.OrderStatusPending))
	assert.Equal(t, DefaultTaskQueue, gotOpts.TaskQueue)
	assert.Equal(t, "order-"+o.ID.String()+"-paid-v2", gotOpts.ID)
	assert.Equal(t, KindStatusChanged, gotMsg.Kind)
	assert.Equal(t, "pending", gotMsg.FromStatus)
}

func TestTemporalNotifier_WrapsStartError(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("unavailable"))
	n := NewTemporalNotifier(c, "q")
	err := n.OrderPlaced(context.Background(), &domain.Order{ID: uuid.New()})
	assert.ErrorContains(t, err, "unavailable")
}
