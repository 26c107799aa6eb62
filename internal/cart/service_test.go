package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-restaurant-orders/internal/catalog"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

type fakeItems map[string]catalog.MenuItem

func (f fakeItems) GetItem(_ context.Context, id string) (catalog.MenuItem, error) {
	it, ok := f[id]
	if !ok {
		return catalog.MenuItem{}, catalog.ErrItemNotFound
	}
	return it, nil
}

func menu() fakeItems {
	return fakeItems{
		"burger": {ID: "burger", Name: "Burger", Price: decimal.NewFromInt(10), Available: true,
			Variations: []catalog.ItemVariation{{Name: "Size", Options: []catalog.VariationOption{
				{Name: "Regular", Multiplier: decimal.NewFromInt(1)},
				{Name: "Double", Multiplier: decimal.RequireFromString("1.5")},
			}}}},
		"fries":   {ID: "fries", Name: "Fries", Price: decimal.NewFromInt(5), Available: true},
		"special": {ID: "special", Name: "Special", Price: decimal.NewFromInt(20), Available: false},
	}
}

func setupCartService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, time.Hour)
	return NewService(store, menu(), pricing.NewCalculator(pricing.DefaultDeliveryFee)), mr
}

func TestService_AddPersistsAndMerges(t *testing.T) {
	svc, mr := setupCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", Selection{ItemID: "burger", Quantity: 1, Variations: map[string]string{"Size": "Double"}})
	require.NoError(t, err)
	c, err := svc.Add(ctx, "s1", Selection{ItemID: "burger", Quantity: 1, Variations: map[string]string{"Size": "Double"}})
	require.NoError(t, err)

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.True(t, c.Lines[0].UnitPrice.Equal(decimal.NewFromInt(15)))
	assert.True(t, mr.Exists("cart:s1"))

	reloaded, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, c.Lines[0].Quantity, reloaded.Lines[0].Quantity)

	other, err := svc.Get(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestService_AddErrors(t *testing.T) {
	svc, _ := setupCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "", Selection{ItemID: "fries", Quantity: 1})
	assert.ErrorIs(t, err, ErrMissingSession)

	_, err = svc.Add(ctx, "s1", Selection{ItemID: "nope", Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrItemNotFound)

	_, err = svc.Add(ctx, "s1", Selection{ItemID: "special", Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)

	_, err = svc.Add(ctx, "s1", Selection{ItemID: "burger", Quantity: 1, Variations: map[string]string{"Size": "Triple"}})
	assert.ErrorIs(t, err, catalog.ErrInvalidSelection)

	_, err = svc.Add(ctx, "s1", Selection{ItemID: "fries", Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidLine)
}

func TestService_RemoveAndClear(t *testing.T) {
	svc, mr := setupCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", Selection{ItemID: "fries", Quantity: 1})
	require.NoError(t, err)

	c, err := svc.Remove(ctx, "s1", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	c, err = svc.Remove(ctx, "s1", 0)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.False(t, mr.Exists("cart:s1"))

	_, err = svc.Add(ctx, "s1", Selection{ItemID: "fries", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, "s1"))
	assert.False(t, mr.Exists("cart:s1"))
}

func TestService_SetQuantity(t *testing.T) {
	svc, _ := setupCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", Selection{ItemID: "fries", Quantity: 1})
	require.NoError(t, err)

	c, err := svc.SetQuantity(ctx, "s1", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Lines[0].Quantity)

	_, err = svc.SetQuantity(ctx, "s1", 4, 3)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestService_Quote(t *testing.T) {
	svc, _ := setupCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "s1", Selection{ItemID: "burger", Quantity: 2})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "s1", Selection{ItemID: "fries", Quantity: 1})
	require.NoError(t, err)

	q, err := svc.Quote(ctx, "s1", pricing.ModeDelivery, pricing.Tip15)
	require.NoError(t, err)
	assert.Equal(t, "25.00", q.Pricing.SubTotal.StringFixed(2))
	assert.Equal(t, "33.74", q.Pricing.Total.StringFixed(2))

	empty, err := svc.Quote(ctx, "nobody", pricing.ModePickup, pricing.TipNone)
	require.NoError(t, err)
	assert.True(t, empty.Pricing.Total.IsZero())
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("cart:s1", `{"lines":[{"itemId":"x","quantity":-1}]}`))
	_, err := NewRedisStore(client, time.Hour).Load(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrInvalidLine)
}

func TestService_BuildLeavesSessionsAlone(t *testing.T) {
	svc, mr := setupCartService(t)
	ctx := context.Background()

	c, err := svc.Build(ctx, []Selection{
		{ItemID: "fries", Quantity: 1},
		{ItemID: "burger", Quantity: 2},
		{ItemID: "fries", Quantity: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.Empty(t, mr.Keys())

	_, err = svc.Build(ctx, []Selection{{ItemID: "special", Quantity: 1}})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
}
