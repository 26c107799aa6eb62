package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-restaurant-orders/internal/catalog"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

var (
	ErrMissingSession = errors.New("missing cart session")
	ErrLineNotFound   = errors.New("cart line not found")
)

type ItemSource interface {
	GetItem(ctx context.Context, id string) (catalog.MenuItem, error)
}

type Selection struct {
	ItemID       string            `json:"itemId"`
	Quantity     int               `json:"quantity"`
	Variations   map[string]string `json:"variations,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
}

type Quote struct {
	Cart    Cart                    `json:"cart"`
	Mode    pricing.FulfillmentMode `json:"fulfillmentMode"`
	Tip     pricing.Tip             `json:"tipPercent"`
	Pricing pricing.Breakdown       `json:"pricing"`
}

type Service struct {
	store   Store
	items   ItemSource
	pricing pricing.Calculator
}

func NewService(store Store, items ItemSource, calc pricing.Calculator) *Service {
	return &Service{store: store, items: items, pricing: calc}
}

func (s *Service) Get(ctx context.Context, session string) (Cart, error) {
	if session == "" {
		return Cart{}, ErrMissingSession
	}
	return s.store.Load(ctx, session)
}

// Add prices the selection from the catalog, never from the client.
func (s *Service) Add(ctx context.Context, session string, sel Selection) (Cart, error) {
	c, err := s.Get(ctx, session)
	if err != nil {
		return Cart{}, err
	}
	line, err := s.line(ctx, sel)
	if err != nil {
		return Cart{}, err
	}
	if err := c.AddLine(line); err != nil {
		return Cart{}, err
	}
	if err := s.store.Save(ctx, session, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Build prices explicit selections into a cart without touching any session.
func (s *Service) Build(ctx context.Context, sels []Selection) (Cart, error) {
	var c Cart
	for _, sel := range sels {
		line, err := s.line(ctx, sel)
		if err != nil {
			return Cart{}, err
		}
		if err := c.AddLine(line); err != nil {
			return Cart{}, err
		}
	}
	return c, nil
}

func (s *Service) line(ctx context.Context, sel Selection) (Line, error) {
	item, err := s.items.GetItem(ctx, sel.ItemID)
	if err != nil {
		return Line{}, err
	}
	if !item.Available {
		return Line{}, fmt.Errorf("%w: %s", catalog.ErrUnavailable, item.ID)
	}
	unit, err := item.UnitPrice(sel.Variations)
	if err != nil {
		return Line{}, err
	}
	return Line{
		ItemID:       item.ID,
		Name:         item.Name,
		ImageURL:     item.ImageURL,
		UnitPrice:    unit,
		Quantity:     sel.Quantity,
		Variations:   sel.Variations,
		Instructions: sel.Instructions,
	}, nil
}

// Remove is a no-op for an out-of-range index.
func (s *Service) Remove(ctx context.Context, session string, index int) (Cart, error) {
	c, err := s.Get(ctx, session)
	if err != nil {
		return Cart{}, err
	}
	if !c.RemoveLine(index) {
		return c, nil
	}
	if err := s.store.Save(ctx, session, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (s *Service) SetQuantity(ctx context.Context, session string, index, qty int) (Cart, error) {
	c, err := s.Get(ctx, session)
	if err != nil {
		return Cart{}, err
	}
	if !c.SetQuantity(index, qty) {
		return Cart{}, fmt.Errorf("%w: index %d", ErrLineNotFound, index)
	}
	if err := s.store.Save(ctx, session, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (s *Service) Clear(ctx context.Context, session string) error {
	if session == "" {
		return ErrMissingSession
	}
	return s.store.Delete(ctx, session)
}

func (s *Service) Quote(ctx context.Context, session string, mode pricing.FulfillmentMode, tip pricing.Tip) (Quote, error) {
	c, err := s.Get(ctx, session)
	if err != nil {
		return Quote{}, err
	}
	b := s.pricing.Calculate(c.PricingLines(), mode, tip)
	return Quote{Cart: c, Mode: mode, Tip: tip, Pricing: b}, nil
}
