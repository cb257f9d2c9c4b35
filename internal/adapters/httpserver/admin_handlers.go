package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/storefront/internal/adapters/payments/stripe"
	"github.com/phenrril/storefront/internal/domain"
)

func (s *Server) orderSummary(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sums, err := s.queries.OrderSummaries(r.Context(), tenantFrom(r.Context()).ID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sums == nil {
		sums = []domain.OrderStatusSummary{}
	}
	writeJSON(w, http.StatusOK, sums)
}

var exportColumns = []any{
	"id", "created_at", "status", "email", "subtotal", "tax", "shipping",
	"total", "total_cost", "profit", "margin",
}

func (s *Server) exportOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t := tenantFrom(r.Context())
	orders, err := s.queries.AllOrders(r.Context(), t.ID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	x := excelize.NewFile()
	defer x.Close()
	const sheet = "Orders"
	if err := x.SetSheetName("Sheet1", sheet); err != nil {
		writeError(w, r, fmt.Errorf("export: %w", err))
		return
	}
	if err := x.SetSheetRow(sheet, "A1", &exportColumns); err != nil {
		writeError(w, r, fmt.Errorf("export header: %w", err))
		return
	}
	for i := range orders {
		o := &orders[i]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			writeError(w, r, err)
			return
		}
		row := []any{
			o.ID.String(), o.CreatedAt.UTC().Format(time.RFC3339), string(o.Status), o.Email,
			o.Subtotal, o.Tax, o.ShippingCost, o.Total, o.TotalCost(), o.Profit(), o.ProfitMargin(),
		}
		if err := x.SetSheetRow(sheet, cell, &row); err != nil {
			writeError(w, r, fmt.Errorf("export row %d: %w", i+2, err))
			return
		}
	}

	name := fmt.Sprintf("orders-%s-%s.xlsx", t.Slug, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := x.Write(w); err != nil {
		log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("write orders export")
	}
}

// stripeWebhook marks orders paid from checkout events. Deliveries that can
// never succeed are acknowledged so Stripe stops retrying them.
func (s *Server) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.webhooks.Configured() {
		writeError(w, r, domain.Unavailable("stripe webhook secret is not configured"))
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, r, domain.Invalid("", "unreadable body"))
		return
	}
	if err := s.webhooks.Verify(payload, r.Header.Get(stripe.SignatureHeader)); err != nil {
		log.Warn().Err(err).Msg("stripe signature rejected")
		writeErr(w, http.StatusBadRequest, "invalid_signature", err.Error())
		return
	}
	ev, err := stripe.ParseEvent(payload)
	if err != nil {
		writeError(w, r, domain.Invalid("", err.Error()))
		return
	}
	lg := log.With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()
	if ev.Type != stripe.EventCheckoutCompleted && ev.Type != stripe.EventPaymentSucceeded {
		lg.Debug().Msg("stripe event ignored")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	sess, err := ev.Session()
	if err != nil {
		writeError(w, r, domain.Invalid("data.object", err.Error()))
		return
	}
	if sess.PaymentStatus != "" && sess.PaymentStatus != "paid" {
		lg.Info().Str("payment_status", sess.PaymentStatus).Msg("checkout not paid yet")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	orderID, err := uuid.Parse(sess.Metadata["order_id"])
	if err != nil {
		lg.Warn().Msg("stripe event without order metadata")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	var o *domain.Order
	if tenantID, perr := uuid.Parse(sess.Metadata["tenant_id"]); perr == nil {
		o, err = s.orders.UpdatePayment(r.Context(), tenantID, orderID, sess.PaymentIntent)
	} else {
		o, err = s.orders.PayByID(r.Context(), orderID, sess.PaymentIntent)
	}
	switch {
	case err == nil:
		lg.Info().Str("order_id", o.ID.String()).Str("payment_id", o.PaymentID).Msg("order paid")
	case errors.Is(err, domain.ErrNotFound), domain.IsValidation(err):
		lg.Warn().Err(err).Str("order_id", orderID.String()).Msg("stripe payment not applied")
	default:
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
