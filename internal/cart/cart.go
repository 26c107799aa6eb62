package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

var ErrInvalidLine = errors.New("invalid cart line")

// Line is one selected purchasable unit. Name, ImageURL and UnitPrice are a
// snapshot of the catalog at the time the line was added.
type Line struct {
	ItemID       string            `json:"itemId"`
	Name         string            `json:"name"`
	ImageURL     string            `json:"imageUrl,omitempty"`
	UnitPrice    decimal.Decimal   `json:"unitPrice"`
	Quantity     int               `json:"quantity"`
	Variations   map[string]string `json:"variations,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
}

// sameSelection reports whether two lines merge: same item, same variation
// choices, same instructions.
func (l Line) sameSelection(o Line) bool {
	if l.ItemID != o.ItemID || l.Instructions != o.Instructions {
		return false
	}
	if len(l.Variations) != len(o.Variations) {
		return false
	}
	for k, v := range l.Variations {
		if ov, ok := o.Variations[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (l Line) validate() error {
	if l.ItemID == "" {
		return fmt.Errorf("%w: missing item id", ErrInvalidLine)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive for %s", ErrInvalidLine, l.ItemID)
	}
	if l.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: negative price for %s", ErrInvalidLine, l.ItemID)
	}
	return nil
}

// Cart is owned by one session and passed explicitly to whoever needs it.
type Cart struct {
	Lines []Line `json:"lines"`
}

// AddLine merges into an existing line with the same selection or appends.
func (c *Cart) AddLine(l Line) error {
	l.Instructions = strings.TrimSpace(l.Instructions)
	if len(l.Variations) == 0 {
		l.Variations = nil
	}
	if err := l.validate(); err != nil {
		return err
	}
	for i := range c.Lines {
		if c.Lines[i].sameSelection(l) {
			c.Lines[i].Quantity += l.Quantity
			return nil
		}
	}
	c.Lines = append(c.Lines, l)
	return nil
}

// RemoveLine drops the line at index; an out-of-range index is a no-op.
func (c *Cart) RemoveLine(index int) bool {
	if index < 0 || index >= len(c.Lines) {
		return false
	}
	c.Lines = append(c.Lines[:index], c.Lines[index+1:]...)
	return true
}

// SetQuantity updates a line in place; qty <= 0 removes it.
func (c *Cart) SetQuantity(index, qty int) bool {
	if index < 0 || index >= len(c.Lines) {
		return false
	}
	if qty <= 0 {
		return c.RemoveLine(index)
	}
	c.Lines[index].Quantity = qty
	return true
}

func (c *Cart) Clear() { c.Lines = nil }

func (c Cart) Len() int { return len(c.Lines) }

func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Quantity is the number of units across all lines.
func (c Cart) Quantity() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) PricingLines() []pricing.Line {
	out := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		out = append(out, pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	return out
}

func (c Cart) Marshal() ([]byte, error) {
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return json.Marshal(c)
}

// Unmarshal is the deserialization boundary; malformed lines reject the whole payload.
func Unmarshal(data []byte) (Cart, error) {
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	for _, l := range c.Lines {
		if err := l.validate(); err != nil {
			return Cart{}, err
		}
	}
	return c, nil
}
