package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

type shipmentRequest struct {
	ShippingMethod    string            `json:"shipping_method"`
	TrackingNumber    string            `json:"tracking_number"`
	Carrier           string            `json:"carrier"`
	ShippingAddress   *domain.Address   `json:"shipping_address"`
	ShippingCost      float64           `json:"shipping_cost"`
	TrackingURL       string            `json:"tracking_url"`
	LabelURL          string            `json:"label_url"`
	EstimatedDelivery *time.Time        `json:"estimated_delivery"`
	Metadata          map[string]string `json:"metadata"`
}

func (s *Server) createShipment(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req shipmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sh, err := s.shipments.Create(r.Context(), tenantFrom(r.Context()).ID, orderID, usecase.ShipmentInput{
		ShippingMethod:    req.ShippingMethod,
		TrackingNumber:    req.TrackingNumber,
		Carrier:           req.Carrier,
		ShippingAddress:   req.ShippingAddress,
		ShippingCost:      req.ShippingCost,
		TrackingURL:       req.TrackingURL,
		LabelURL:          req.LabelURL,
		EstimatedDelivery: req.EstimatedDelivery,
		Metadata:          req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sh)
}

func (s *Server) listShipments(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.shipments.ListForOrder(r.Context(), tenantFrom(r.Context()).ID, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Shipment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sh, err := s.shipments.Get(r.Context(), tenantFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

type shipmentItemsRequest struct {
	Items []struct {
		OrderItemID uuid.UUID  `json:"order_item_id"`
		ProductID   *uuid.UUID `json:"product_id"`
		Quantity    int        `json:"quantity"`
	} `json:"items"`
}

func (s *Server) addShipmentItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req shipmentItemsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	items := make([]usecase.ShipmentItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.ShipmentItemInput{OrderItemID: it.OrderItemID, ProductID: it.ProductID, Quantity: it.Quantity})
	}
	sh, err := s.shipments.AddItems(r.Context(), tenantFrom(r.Context()).ID, id, items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (s *Server) updateShipmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Status         string `json:"status"`
		TrackingNumber string `json:"tracking_number"`
		Carrier        string `json:"carrier"`
		TrackingURL    string `json:"tracking_url"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := domain.ParseShipmentStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sh, err := s.shipments.UpdateStatus(r.Context(), tenantFrom(r.Context()).ID, id, st, &usecase.TrackingUpdate{
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		TrackingURL:    req.TrackingURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (s *Server) createEstimate(w http.ResponseWriter, r *http.Request) {
	var in domain.Estimate
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.estimates.Create(r.Context(), tenantFrom(r.Context()).ID, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) listEstimates(w http.ResponseWriter, r *http.Request) {
	var (
		f   domain.EstimateFilter
		err error
	)
	if v := r.URL.Query().Get("status"); v != "" {
		if f.Status, err = domain.ParseEstimateStatus(v); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if f.Page, f.PageSize, err = paging(r); err != nil {
		writeError(w, r, err)
		return
	}
	list, total, err := s.estimates.List(r.Context(), tenantFrom(r.Context()).ID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(list, total, f.Page, f.PageSize, 20, 100))
}

func (s *Server) getEstimate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.estimates.Get(r.Context(), tenantFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) updateEstimate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.Estimate
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.estimates.Update(r.Context(), tenantFrom(r.Context()).ID, id, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) setEstimateStatus(w http.ResponseWriter, r *http.Request) {
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
	st, err := domain.ParseEstimateStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.estimates.SetStatus(r.Context(), tenantFrom(r.Context()).ID, id, st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) convertEstimate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.estimates.ConvertToOrder(r.Context(), tenantFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOrder(r.Context(), o))
}
