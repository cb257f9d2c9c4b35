package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/domain"
)

type EstimateUC struct {
	Estimates domain.EstimateRepo
	Orders    domain.OrderRepo
	Tenants   domain.TenantRepo
	Tx        domain.Transactor
	Cache     domain.OrderCacheInvalidator
	Metrics   OrderMetrics
}

func (uc *EstimateUC) enabled(ctx context.Context, tenantID uuid.UUID) error {
	t, err := uc.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !t.Settings.EstimatesOn() {
		return domain.Unavailable("estimates are disabled for tenant " + t.Slug)
	}
	return nil
}

func copyEstimateInput(dst, src *domain.Estimate) {
	dst.UserID = src.UserID
	dst.CustomerName = strings.TrimSpace(src.CustomerName)
	dst.CustomerEmail = strings.TrimSpace(src.CustomerEmail)
	dst.CustomerPhone = strings.TrimSpace(src.CustomerPhone)
	dst.CustomerAddress = strings.TrimSpace(src.CustomerAddress)
	dst.TaxRate = src.TaxRate
	dst.Notes = src.Notes
	dst.Materials = make([]domain.EstimateMaterial, len(src.Materials))
	for i, m := range src.Materials {
		m.ID, m.EstimateID = uuid.Nil, dst.ID
		dst.Materials[i] = m
	}
	dst.Labor = make([]domain.EstimateLabor, len(src.Labor))
	for i, l := range src.Labor {
		l.ID, l.EstimateID = uuid.Nil, dst.ID
		dst.Labor[i] = l
	}
	dst.RoundInputs()
}

func (uc *EstimateUC) Create(ctx context.Context, tenantID uuid.UUID, in *domain.Estimate) (*domain.Estimate, error) {
	if err := uc.enabled(ctx, tenantID); err != nil {
		return nil, err
	}
	e := &domain.Estimate{ID: uuid.New(), TenantID: tenantID, Status: domain.EstimateDraft}
	copyEstimateInput(e, in)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	e.CalculateTotals()
	if err := uc.Estimates.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create estimate: %w", err)
	}
	return e, nil
}

// Update replaces customer data and every line, then recomputes totals.
func (uc *EstimateUC) Update(ctx context.Context, tenantID, id uuid.UUID, in *domain.Estimate) (*domain.Estimate, error) {
	if err := uc.enabled(ctx, tenantID); err != nil {
		return nil, err
	}
	var e *domain.Estimate
	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		e, err = uc.Estimates.FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if e.Status == domain.EstimateConverted {
			return domain.Conflict("estimate %s was already converted", id)
		}
		copyEstimateInput(e, in)
		if err := e.Validate(); err != nil {
			return err
		}
		e.CalculateTotals()
		return uc.Estimates.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (uc *EstimateUC) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Estimate, error) {
	if err := uc.enabled(ctx, tenantID); err != nil {
		return nil, err
	}
	return uc.Estimates.FindByID(ctx, tenantID, id)
}

func (uc *EstimateUC) List(ctx context.Context, tenantID uuid.UUID, f domain.EstimateFilter) ([]domain.Estimate, int64, error) {
	if err := uc.enabled(ctx, tenantID); err != nil {
		return nil, 0, err
	}
	return uc.Estimates.List(ctx, tenantID, f)
}

// SetStatus moves an estimate between draft, sent, accepted and rejected.
// Converted is reached only through ConvertToOrder.
func (uc *EstimateUC) SetStatus(ctx context.Context, tenantID, id uuid.UUID, st domain.EstimateStatus) (*domain.Estimate, error) {
	if st == domain.EstimateConverted {
		return nil, domain.Invalid("status", "use convert to turn an estimate into an order")
	}
	if err := uc.enabled(ctx, tenantID); err != nil {
		return nil, err
	}
	var e *domain.Estimate
	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		e, err = uc.Estimates.FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if e.Status == domain.EstimateConverted {
			return domain.Conflict("estimate %s was already converted", id)
		}
		e.Status = st
		return uc.Estimates.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ConvertToOrder creates a pending order from the estimate lines and marks
// the estimate converted, once.
func (uc *EstimateUC) ConvertToOrder(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	if err := uc.enabled(ctx, tenantID); err != nil {
		return nil, err
	}
	var o *domain.Order
	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		e, err := uc.Estimates.FindByID(ctx, tenantID, id)
		if err != nil {
			return err
		}
		switch e.Status {
		case domain.EstimateConverted:
			return domain.Conflict("estimate %s was already converted", id)
		case domain.EstimateRejected:
			return domain.Conflict("estimate %s was rejected", id)
		}
		e.CalculateTotals()
		o = &domain.Order{
			ID:       uuid.New(),
			TenantID: tenantID,
			UserID:   e.UserID,
			Email:    e.CustomerEmail,
			Status:   domain.OrderStatusPending,
			Subtotal: e.Subtotal,
			Tax:      e.Tax,
			Total:    domain.Sum(e.Subtotal, e.Tax),
			Metadata: map[string]string{
				"estimate_id":   e.ID.String(),
				"customer_name": e.CustomerName,
			},
			Version: 1,
		}
		o.Items = e.OrderItems(o.ID)
		if err := uc.Orders.Create(ctx, o); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		orderID := o.ID
		e.Status = domain.EstimateConverted
		e.OrderID = &orderID
		return uc.Estimates.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	uc.Cache.InvalidateOrder(ctx, tenantID, o.ID)
	if uc.Metrics != nil {
		uc.Metrics.OrderCreated()
	}
	log.Info().Str("estimate_id", id.String()).Str("order_id", o.ID.String()).Msg("estimate converted")
	return o, nil
}
