package notify

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type recordingSend struct {
	failures int
	calls    int
	last     []byte
	to       []string
}

func (r *recordingSend) send(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
	r.calls++
	if r.calls <= r.failures {
		return errors.New("421 try again later")
	}
	r.to, r.last = to, msg
	return nil
}

type WorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
}

func TestWorkflowSuite(t *testing.T) { suite.Run(t, new(WorkflowSuite)) }

func (s *WorkflowSuite) newEnv(rec *recordingSend) *testsuite.TestWorkflowEnvironment {
	env := s.NewTestWorkflowEnvironment()
	m := NewMailer(SMTPConfig{Host: "smtp.test", Port: "25", From: "shop@test.io"})
	m.send = rec.send
	env.RegisterActivity(m)
	env.RegisterWorkflow(OrderNotificationWorkflow)
	return env
}

func sampleEmail() OrderEmail {
	return OrderEmail{
		Kind:     KindOrderPlaced,
		OrderID:  "o-1",
		To:       "Buyer@Example.com",
		Status:   "pending",
		Subtotal: 20,
		Total:    20,
		Lines:    []EmailLine{{Name: "Mug", Quantity: 2, UnitPrice: 10}},
	}
}

func (s *WorkflowSuite) TestSendsEmail() {
	rec := &recordingSend{}
	env := s.newEnv(rec)
	env.ExecuteWorkflow(OrderNotificationWorkflow, sampleEmail())

	s.True(env.IsWorkflowCompleted())
	s.NoError(env.GetWorkflowError())
	s.Equal(1, rec.calls)
	s.Equal([]string{"buyer@example.com"}, rec.to)
	s.Contains(string(rec.last), "Subject: Order o-1 received")
	s.Contains(string(rec.last), "- Mug x2 $10.00")
}

func (s *WorkflowSuite) TestRetriesTransientFailures() {
	rec := &recordingSend{failures: 2}
	env := s.newEnv(rec)
	env.ExecuteWorkflow(OrderNotificationWorkflow, sampleEmail())

	s.True(env.IsWorkflowCompleted())
	s.NoError(env.GetWorkflowError())
	s.Equal(3, rec.calls)
}

func (s *WorkflowSuite) TestInvalidAddressIsNotRetried() {
	rec := &recordingSend{}
	env := s.newEnv(rec)
	msg := sampleEmail()
	msg.To = "not-an-address"
	env.ExecuteWorkflow(OrderNotificationWorkflow, msg)

	s.True(env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	s.Require().Error(err)
	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(ErrTypeInvalidAddress, appErr.Type())
	s.Equal(0, rec.calls)
}

func TestRender_StatusChanged(t *testing.T) {
	msg := sampleEmail()
	msg.Kind = KindStatusChanged
	msg.FromStatus = "pending"
	msg.Status = "paid"
	out := string(render("shop@test.io", "buyer@example.com", msg))
	assert.True(t, strings.HasPrefix(out, "Subject: Order o-1 is now paid\r\n"))
	assert.Contains(t, out, "Status: pending -> paid")
}

func TestMailer_UnconfiguredSkips(t *testing.T) {
	var env testsuite.WorkflowTestSuite
	aenv := env.NewTestActivityEnvironment()
	m := NewMailer(SMTPConfig{})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	aenv.RegisterActivity(m)
	_, err := aenv.ExecuteActivity(m.SendOrderEmail, sampleEmail())
	require.NoError(t, err)
}
