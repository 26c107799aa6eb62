package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-orders/internal/postgres/pgtest"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

func sampleOrder(email string, at time.Time) Order {
	in := validInput()
	in.Customer.Email = email
	est := EstimateFor(pricing.ModeDelivery, at)
	return Order{
		ID:              uuid.NewString(),
		OrderNumber:     OrderNumber(at),
		Customer:        *in.Customer,
		Items:           in.Items,
		Pricing:         pricing.Calculate(cartLines(in.Items), pricing.ModeDelivery, pricing.Tip18),
		TipPercent:      pricing.Tip18,
		FulfillmentMode: pricing.ModeDelivery,
		PaymentMethod:   PaymentCash,
		PaymentStatus:   PaymentPending,
		OrderStatus:     StatusPending,
		Location:        "downtown",
		SubmittedAt:     at,
		EstimatedAt:     &est,
		UpdatedAt:       at,
	}
}

func TestRepo_CreateGetList(t *testing.T) {
	repo := &Repo{DB: pgtest.Start(t)}
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	first := sampleOrder("Ana@Example.com", base)
	first.Pricing.Tax = decimal.RequireFromString("2.2834")
	second := sampleOrder("bo@example.com", base.Add(time.Minute))
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.OrderNumber, got.OrderNumber)
	assert.Equal(t, "Ana@Example.com", got.Customer.Email)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, got.Pricing.Total.Equal(first.Pricing.Total))
	assert.True(t, got.Pricing.Tax.Equal(first.Pricing.Tax), "stored %s, want %s", got.Pricing.Tax, first.Pricing.Tax)
	assert.Equal(t, pricing.Tip18, got.TipPercent)
	require.NotNil(t, got.EstimatedAt)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	mine, err := repo.ListByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepo_DuplicateOrderNumber(t *testing.T) {
	repo := &Repo{DB: pgtest.Start(t)}
	ctx := context.Background()
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	a := sampleOrder("ana@example.com", at)
	b := sampleOrder("bo@example.com", at)
	require.NoError(t, repo.Create(ctx, &a))
	assert.ErrorIs(t, repo.Create(ctx, &b), ErrOrderNumberTaken)
}

func TestRepo_UpdateStatusIf(t *testing.T) {
	repo := &Repo{DB: pgtest.Start(t)}
	ctx := context.Background()
	o := sampleOrder("ana@example.com", time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(ctx, &o))

	from := StatusPair{Order: StatusPending, Payment: PaymentPending}
	to := StatusPair{Order: StatusConfirmed, Payment: PaymentPending}

	ok, err := repo.UpdateStatusIf(ctx, o.ID, from, to, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	// stale "from" loses
	ok, err = repo.UpdateStatusIf(ctx, o.ID, from, StatusPair{Order: StatusCancelled, Payment: PaymentPending}, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.OrderStatus)
}
