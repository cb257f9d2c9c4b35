package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

type checkoutRequest struct {
	CartID          uuid.UUID         `json:"cart_id"`
	Email           string            `json:"email"`
	ShippingAddress *domain.Address   `json:"shipping_address"`
	Metadata        map[string]string `json:"metadata"`
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CartID == uuid.Nil {
		writeError(w, r, domain.Invalid("cart_id", "required"))
		return
	}
	if req.ShippingAddress == nil {
		writeError(w, r, domain.Invalid("shipping_address", "required"))
		return
	}
	in := usecase.CheckoutInput{
		CartID:          req.CartID,
		Email:           req.Email,
		ShippingAddress: *req.ShippingAddress,
		Metadata:        req.Metadata,
	}
	if c := claimsFrom(r.Context()); c != nil {
		uid := c.UserID
		in.UserID = &uid
	}
	o, err := s.orders.CreateFromCart(r.Context(), tenantFrom(r.Context()).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOrder(r.Context(), o))
}

func parseTime(r *http.Request, name string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, domain.Invalid(name, "must be RFC3339 or YYYY-MM-DD")
}

func orderFilter(r *http.Request) (domain.OrderFilter, error) {
	var (
		f   domain.OrderFilter
		err error
	)
	if v := r.URL.Query().Get("status"); v != "" {
		if f.Status, err = domain.ParseOrderStatus(v); err != nil {
			return f, err
		}
	}
	if f.From, err = parseTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = parseTime(r, "to"); err != nil {
		return f, err
	}
	if f.Page, f.PageSize, err = paging(r); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := orderFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !isStaff(r.Context()) {
		uid := claimsFrom(r.Context()).UserID
		f.UserID = &uid
	}
	list, total, err := s.orders.List(r.Context(), tenantFrom(r.Context()).ID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(viewOrders(r.Context(), list), total, f.Page, f.PageSize, 20, 100))
}

// loadOrder reads through the cache and hides foreign orders as not found.
func (s *Server) loadOrder(r *http.Request) (*domain.Order, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	o, err := s.queries.OrderDetail(r.Context(), tenantFrom(r.Context()).ID, id)
	if err != nil {
		return nil, err
	}
	if !ownsOrder(r.Context(), o) {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.loadOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(r.Context(), o))
}

func (s *Server) orderItems(w http.ResponseWriter, r *http.Request) {
	o, err := s.loadOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.queries.OrderItemsWithProducts(r.Context(), o.TenantID, o.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewItems(r.Context(), items))
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.orders.UpdateStatus(r.Context(), tenantFrom(r.Context()).ID, id, st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(r.Context(), o))
}

func (s *Server) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		PaymentID string `json:"payment_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.orders.UpdatePayment(r.Context(), tenantFrom(r.Context()).ID, id, req.PaymentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(r.Context(), o))
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.loadOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err = s.orders.Cancel(r.Context(), o.TenantID, o.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(r.Context(), o))
}

func (s *Server) addOrderNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Body     string `json:"body"`
		Internal bool   `json:"internal"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	author := claimsFrom(r.Context()).UserID.String()
	n, err := s.orders.AddNote(r.Context(), tenantFrom(r.Context()).ID, id, author, req.Body, req.Internal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}
