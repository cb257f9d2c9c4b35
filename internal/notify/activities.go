package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/phenrril/storefront/internal/domain"
)

type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func (c SMTPConfig) configured() bool { return c.Host != "" && c.Port != "" }

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer holds the SMTP activity. Register it on a worker with
// RegisterActivity so its methods become activities.
type Mailer struct {
	cfg  SMTPConfig
	send sendFunc
}

func NewMailer(cfg SMTPConfig) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

func (m *Mailer) SendOrderEmail(ctx context.Context, msg OrderEmail) error {
	logger := activity.GetLogger(ctx)
	to, err := domain.NormalizeEmail(msg.To)
	if err != nil {
		return temporal.NewNonRetryableApplicationError("invalid recipient "+msg.To, ErrTypeInvalidAddress, err)
	}
	if !m.cfg.configured() {
		logger.Warn("SMTP not configured, skipping order email", "orderID", msg.OrderID)
		return nil
	}
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	body := render(m.cfg.From, to, msg)
	if err := m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, []string{to}, body); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func subject(msg OrderEmail) string {
	if msg.Kind == KindStatusChanged {
		return fmt.Sprintf("Order %s is now %s", msg.OrderID, msg.Status)
	}
	return fmt.Sprintf("Order %s received", msg.OrderID)
}

func render(from, to string, msg OrderEmail) []byte {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Subject: %s\r\n", subject(msg))
	_, _ = fmt.Fprintf(&buf, "From: %s\r\n", from)
	_, _ = fmt.Fprintf(&buf, "To: %s\r\n", to)
	buf.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	_, _ = fmt.Fprintf(&buf, "Order: %s\n", msg.OrderID)
	if msg.Kind == KindStatusChanged {
		_, _ = fmt.Fprintf(&buf, "Status: %s -> %s\n", msg.FromStatus, msg.Status)
	} else {
		_, _ = fmt.Fprintf(&buf, "Status: %s\n", msg.Status)
	}
	buf.WriteString("Items:\n")
	for _, l := range msg.Lines {
		_, _ = fmt.Fprintf(&buf, "- %s x%d $%.2f\n", l.Name, l.Quantity, l.UnitPrice)
	}
	_, _ = fmt.Fprintf(&buf, "Subtotal: $%.2f\nTax: $%.2f\nShipping: $%.2f\nTotal: $%.2f\n",
		msg.Subtotal, msg.Tax, msg.Shipping, msg.Total)
	return buf.Bytes()
}
