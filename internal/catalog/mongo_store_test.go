package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
)

func setupMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoStore(db, logging.Discard())
	require.NoError(t, store.CreateIndexes(ctx))
	return store
}

func TestMongoStore_ItemRoundTrip(t *testing.T) {
	store := setupMongoStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertItem(ctx, pizza()))

	got, err := store.GetItem(ctx, "margherita")
	require.NoError(t, err)
	assert.Equal(t, "Margherita", got.Name)
	assert.True(t, got.Price.Equal(d("10")))
	require.Len(t, got.Variations, 2)
	assert.True(t, got.Variations[0].Options[1].Multiplier.Equal(d("1.5")))

	_, err = store.GetItem(ctx, "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestMongoStore_SkipsMalformedOnList(t *testing.T) {
	store := setupMongoStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertItem(ctx, salad()))
	_, err := store.db.Collection(collItems).InsertOne(ctx, bson.M{"_id": "broken", "name": ""})
	require.NoError(t, err)

	items, err := store.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "salad", items[0].ID)

	_, err = store.GetItem(ctx, "broken")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestMongoStore_DeleteAndCategories(t *testing.T) {
	store := setupMongoStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertItem(ctx, salad()))
	require.NoError(t, store.DeleteItem(ctx, "salad"))
	assert.ErrorIs(t, store.DeleteItem(ctx, "salad"), ErrItemNotFound)

	require.NoError(t, store.UpsertCategory(ctx, Category{ID: "mains", Name: "Mains", Position: 2}))
	require.NoError(t, store.UpsertCategory(ctx, Category{ID: "starters", Name: "Starters", Position: 1}))
	cats, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "starters", cats[0].ID)
}
