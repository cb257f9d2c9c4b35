package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storefront/internal/domain"
)

func sampleEstimate() *domain.Estimate {
	return &domain.Estimate{
		CustomerName:  "Grace Hopper",
		CustomerEmail: "grace@example.com",
		TaxRate:       10,
		Materials: []domain.EstimateMaterial{
			{Name: "Oak board", Quantity: 2, CostPrice: 5, SellingPrice: 8},
		},
		Labor: []domain.EstimateLabor{
			{Description: "Assembly", Hours: 3, CostRate: 10, SellingRate: 20},
		},
	}
}

func TestEstimateLifecycle(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()

	e, err := f.estimates.Create(ctx, f.tenant.ID, sampleEstimate())
	require.NoError(t, err)
	assert.Equal(t, domain.EstimateDraft, e.Status)
	assert.Equal(t, 10.0, e.MaterialCost)
	assert.Equal(t, 16.0, e.MaterialPrice)
	assert.Equal(t, 30.0, e.LaborCost)
	assert.Equal(t, 60.0, e.LaborPrice)
	assert.Equal(t, 40.0, e.TotalCost)
	assert.Equal(t, 76.0, e.Subtotal)
	assert.Equal(t, 7.6, e.Tax)
	assert.Equal(t, 83.6, e.Total)
	assert.Equal(t, 36.0, e.TotalProfit)
	assert.Equal(t, 47.37, e.ProfitMargin)

	upd := sampleEstimate()
	upd.Materials[0].Quantity = 3
	e, err = f.estimates.Update(ctx, f.tenant.ID, e.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, 84.0, e.Subtotal)
	stored, err := f.estimates.Get(ctx, f.tenant.ID, e.ID)
	require.NoError(t, err)
	require.Len(t, stored.Materials, 1)
	assert.Equal(t, 3, stored.Materials[0].Quantity)

	_, err = f.estimates.SetStatus(ctx, f.tenant.ID, e.ID, domain.EstimateConverted)
	assert.True(t, domain.IsValidation(err))
	_, err = f.estimates.SetStatus(ctx, f.tenant.ID, e.ID, domain.EstimateAccepted)
	require.NoError(t, err)

	o, err := f.estimates.ConvertToOrder(ctx, f.tenant.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, 84.0, o.Subtotal)
	assert.Equal(t, 8.4, o.Tax)
	assert.Equal(t, 92.4, o.Total)
	assert.Equal(t, e.ID.String(), o.Metadata["estimate_id"])
	require.Len(t, o.Items, 2)
	assert.NoError(t, o.CheckTotals())

	order, err := f.orders.Get(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	assert.Len(t, order.Items, 2)

	converted, err := f.estimates.Get(ctx, f.tenant.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EstimateConverted, converted.Status)
	require.NotNil(t, converted.OrderID)
	assert.Equal(t, o.ID, *converted.OrderID)

	_, err = f.estimates.ConvertToOrder(ctx, f.tenant.ID, e.ID)
	assert.True(t, domain.IsConflict(err), "second conversion")
	_, err = f.estimates.Update(ctx, f.tenant.ID, e.ID, sampleEstimate())
	assert.True(t, domain.IsConflict(err))
	_, err = f.estimates.SetStatus(ctx, f.tenant.ID, e.ID, domain.EstimateSent)
	assert.True(t, domain.IsConflict(err))
}

func TestEstimateRejectedCannotConvert(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()
	e, err := f.estimates.Create(ctx, f.tenant.ID, sampleEstimate())
	require.NoError(t, err)
	_, err = f.estimates.SetStatus(ctx, f.tenant.ID, e.ID, domain.EstimateRejected)
	require.NoError(t, err)

	_, err = f.estimates.ConvertToOrder(ctx, f.tenant.ID, e.ID)
	assert.True(t, domain.IsConflict(err))

	list, total, err := f.estimates.List(ctx, f.tenant.ID, domain.EstimateFilter{Status: domain.EstimateRejected})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestEstimateValidation(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()
	in := sampleEstimate()
	in.CustomerName = ""
	_, err := f.estimates.Create(ctx, f.tenant.ID, in)
	assert.True(t, domain.IsValidation(err))
}

func TestEstimatesDisabledPerTenant(t *testing.T) {
	off := false
	f := newFixture(t, domain.TenantSettings{EstimatesEnabled: &off})
	ctx := context.Background()

	_, err := f.estimates.Create(ctx, f.tenant.ID, sampleEstimate())
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	_, err = f.estimates.ConvertToOrder(ctx, f.tenant.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestEstimateConvertWithFractionalHours(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()

	in := &domain.Estimate{
		CustomerName: "Ada",
		Labor: []domain.EstimateLabor{
			{Description: "Sanding", Hours: 0.5, CostRate: 6, SellingRate: 10.01},
			{Description: "Varnish", Hours: 0.5, CostRate: 6, SellingRate: 10.01},
			{Description: "Delivery", Hours: 1.255, CostRate: 4, SellingRate: 8},
		},
	}
	e, err := f.estimates.Create(ctx, f.tenant.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 1.26, e.Labor[2].Hours)
	assert.Equal(t, 20.10, e.Subtotal)

	stored, err := f.estimates.Get(ctx, f.tenant.ID, e.ID)
	require.NoError(t, err)
	stored.CalculateTotals()
	assert.Equal(t, e.Subtotal, stored.Subtotal, "reloaded lines give the same totals")
	assert.Equal(t, e.TotalCost, stored.TotalCost)

	o, err := f.estimates.ConvertToOrder(ctx, f.tenant.ID, e.ID)
	require.NoError(t, err)
	var sum float64
	for _, it := range o.Items {
		sum = domain.Sum(sum, it.TotalPrice)
	}
	assert.Equal(t, o.Subtotal, sum)
	assert.NoError(t, o.CheckTotals())
}
