package catalog

import "context"

type Store interface {
	ListItems(ctx context.Context) ([]MenuItem, error)
	GetItem(ctx context.Context, id string) (MenuItem, error)
	UpsertItem(ctx context.Context, item MenuItem) error
	DeleteItem(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]Category, error)
	UpsertCategory(ctx context.Context, c Category) error

	ListDietaryTags(ctx context.Context) ([]DietaryTag, error)
	ListVariationTypes(ctx context.Context) ([]VariationType, error)
}
