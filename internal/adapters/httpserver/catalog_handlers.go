package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Query:      strings.TrimSpace(q.Get("q")),
		Category:   strings.TrimSpace(q.Get("category")),
		Sort:       q.Get("sort"),
		ActiveOnly: !(isStaff(r.Context()) && q.Get("all") == "true"),
	}
	var err error
	if f.Material, err = queryBool(r, "material"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.Labor, err = queryBool(r, "labor"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.MinPrice, err = queryFloat(r, "min_price"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.MaxPrice, err = queryFloat(r, "max_price"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.Page, f.PageSize, err = paging(r); err != nil {
		writeError(w, r, err)
		return
	}
	list, total, err := s.products.List(r.Context(), tenantFrom(r.Context()).ID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(list, total, f.Page, f.PageSize, 20, 100))
}

func (s *Server) productCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.products.Categories(r.Context(), tenantFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// visible hides inactive products from shoppers.
func visible(r *http.Request, p *domain.Product) bool {
	return p.Active || isStaff(r.Context())
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.products.Get(r.Context(), tenantFrom(r.Context()).ID, id)
	if err == nil && !visible(r, p) {
		err = domain.ErrNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) productBySKU(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.GetBySKU(r.Context(), tenantFrom(r.Context()).ID, strings.TrimSpace(r.PathValue("sku")))
	if err == nil && !visible(r, p) {
		err = domain.ErrNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.products.Create(r.Context(), tenantFrom(r.Context()).ID, &p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) importProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL       string  `json:"url"`
		SKU       string  `json:"sku"`
		CostPrice float64 `json:"cost_price"`
		Stock     int     `json:"stock"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.products.Import(r.Context(), tenantFrom(r.Context()).ID, usecase.ImportInput{
		URL:       req.URL,
		SKU:       req.SKU,
		CostPrice: req.CostPrice,
		Stock:     req.Stock,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in domain.Product
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.products.Update(r.Context(), tenantFrom(r.Context()).ID, id, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.products.Delete(r.Context(), tenantFrom(r.Context()).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createCart(w http.ResponseWriter, r *http.Request) {
	var userID *uuid.UUID
	if c := claimsFrom(r.Context()); c != nil {
		uid := c.UserID
		userID = &uid
	}
	c, err := s.carts.Create(r.Context(), tenantFrom(r.Context()).ID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.carts.Get(r.Context(), tenantFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) cartTotals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.carts.CalculateTotals(r.Context(), tenantFrom(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type cartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cartItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == uuid.Nil {
		writeError(w, r, domain.Invalid("product_id", "required"))
		return
	}
	c, err := s.carts.AddItem(r.Context(), tenantFrom(r.Context()).ID, id, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pid, err := pathID(r, "product_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.carts.UpdateItem(r.Context(), tenantFrom(r.Context()).ID, id, pid, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pid, err := pathID(r, "product_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.carts.RemoveItem(r.Context(), tenantFrom(r.Context()).ID, id, pid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.carts.Clear(r.Context(), tenantFrom(r.Context()).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
