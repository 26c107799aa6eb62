package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

type Filter struct {
	CategoryID         string
	DietaryTag         string
	IncludeUnavailable bool
}

func (f Filter) match(m MenuItem) bool {
	if !f.IncludeUnavailable && !m.Available {
		return false
	}
	if f.CategoryID != "" && m.CategoryID != f.CategoryID {
		return false
	}
	if f.DietaryTag != "" && !m.HasTag(f.DietaryTag) {
		return false
	}
	return true
}

type Service struct {
	store Store
	cache Cache
	log   *slog.Logger
	sf    singleflight.Group
	now   func() time.Time
}

func NewService(store Store, cache Cache, log *slog.Logger) *Service {
	return &Service{store: store, cache: cache, log: log, now: time.Now}
}

func (s *Service) ListItems(ctx context.Context, f Filter) ([]MenuItem, error) {
	all, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MenuItem, 0, len(all))
	for _, m := range all {
		if f.match(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) allItems(ctx context.Context) ([]MenuItem, error) {
	items, err := s.cache.GetItems(ctx)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.log.Warn("catalog cache read failed", "error", err)
	}

	v, err, _ := s.sf.Do(itemsKey, func() (any, error) {
		items, err := s.store.ListItems(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetItems(ctx, items); err != nil {
			s.log.Warn("catalog cache write failed", "error", err)
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]MenuItem), nil
}

func (s *Service) GetItem(ctx context.Context, id string) (MenuItem, error) {
	return s.store.GetItem(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *Service) ListDietaryTags(ctx context.Context) ([]DietaryTag, error) {
	return s.store.ListDietaryTags(ctx)
}

func (s *Service) ListVariationTypes(ctx context.Context) ([]VariationType, error) {
	return s.store.ListVariationTypes(ctx)
}

func (s *Service) UpsertItem(ctx context.Context, item MenuItem) (MenuItem, error) {
	now := s.now().UTC()
	existing, err := s.store.GetItem(ctx, item.ID)
	switch {
	case err == nil:
		item.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrMalformedRecord):
		item.CreatedAt = now
	default:
		return MenuItem{}, err
	}
	item.UpdatedAt = now

	if err := item.Validate(); err != nil {
		return MenuItem{}, err
	}
	if err := s.store.UpsertItem(ctx, item); err != nil {
		return MenuItem{}, err
	}
	s.invalidate(ctx)
	return item, nil
}

func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (MenuItem, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return MenuItem{}, err
	}
	item.Available = available
	item.UpdatedAt = s.now().UTC()
	if err := s.store.UpsertItem(ctx, item); err != nil {
		return MenuItem{}, err
	}
	s.invalidate(ctx)
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) UpsertCategory(ctx context.Context, c Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.store.UpsertCategory(ctx, c)
}

// invalidate is best-effort; the TTL bounds staleness if Redis is down.
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("catalog cache invalidation failed", "error", err)
	}
}
