package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound     = errors.New("menu item not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrMalformedRecord  = errors.New("malformed catalog record")
	ErrInvalidSelection = errors.New("invalid variation selection")
	ErrUnavailable      = errors.New("menu item unavailable")
)

// RecordError describes why a catalog record was rejected; it matches ErrMalformedRecord.
type RecordError struct {
	Kind   string
	ID     string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.ID, e.Reason)
}

func (e *RecordError) Is(target error) bool { return target == ErrMalformedRecord }

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return &RecordError{Kind: "category", Reason: "missing id"}
	}
	if strings.TrimSpace(c.Name) == "" {
		return &RecordError{Kind: "category", ID: c.ID, Reason: "missing name"}
	}
	return nil
}

type DietaryTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

func (t DietaryTag) Validate() error {
	if t.ID == "" || t.Code == "" {
		return &RecordError{Kind: "dietary tag", ID: t.ID, Reason: "missing id or code"}
	}
	return nil
}

type VariationOption struct {
	Name       string          `json:"name"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

type VariationType struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Options []VariationOption `json:"options"`
}

func (v VariationType) Validate() error {
	if v.ID == "" || v.Name == "" {
		return &RecordError{Kind: "variation type", ID: v.ID, Reason: "missing id or name"}
	}
	if err := validateOptions(v.Options); err != "" {
		return &RecordError{Kind: "variation type", ID: v.ID, Reason: err}
	}
	return nil
}

// ItemVariation is one option group offered on an item, e.g. "Size".
type ItemVariation struct {
	TypeID  string            `json:"typeId"`
	Name    string            `json:"name"`
	Options []VariationOption `json:"options"`
}

func (v ItemVariation) option(name string) (VariationOption, bool) {
	for _, o := range v.Options {
		if o.Name == name {
			return o, true
		}
	}
	return VariationOption{}, false
}

type AreaFee struct {
	Area string          `json:"area"`
	Fee  decimal.Decimal `json:"fee"`
}

type MenuItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	ImageURL     string          `json:"imageUrl"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   string          `json:"categoryId"`
	DietaryTags  []string        `json:"dietaryTags"`
	Variations   []ItemVariation `json:"variations"`
	DeliveryFees []AreaFee       `json:"deliveryFees"`
	Available    bool            `json:"available"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (m MenuItem) Validate() error {
	fail := func(reason string) error {
		return &RecordError{Kind: "menu item", ID: m.ID, Reason: reason}
	}
	if strings.TrimSpace(m.ID) == "" {
		return fail("missing id")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fail("missing name")
	}
	if !m.Price.IsPositive() {
		return fail("price must be positive")
	}

	groups := make(map[string]struct{}, len(m.Variations))
	for _, v := range m.Variations {
		if v.Name == "" {
			return fail("variation group without name")
		}
		if _, dup := groups[v.Name]; dup {
			return fail("duplicate variation group " + v.Name)
		}
		groups[v.Name] = struct{}{}
		if err := validateOptions(v.Options); err != "" {
			return fail(v.Name + ": " + err)
		}
	}

	areas := make(map[string]struct{}, len(m.DeliveryFees))
	for _, f := range m.DeliveryFees {
		if f.Area == "" {
			return fail("delivery fee without area")
		}
		if _, dup := areas[f.Area]; dup {
			return fail("duplicate delivery area " + f.Area)
		}
		areas[f.Area] = struct{}{}
		if f.Fee.IsNegative() {
			return fail("negative delivery fee for " + f.Area)
		}
	}
	return nil
}

func validateOptions(opts []VariationOption) string {
	if len(opts) == 0 {
		return "no options"
	}
	seen := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		if o.Name == "" {
			return "option without name"
		}
		if _, dup := seen[o.Name]; dup {
			return "duplicate option " + o.Name
		}
		seen[o.Name] = struct{}{}
		if !o.Multiplier.IsPositive() {
			return "multiplier must be positive for " + o.Name
		}
	}
	return ""
}

// UnitPrice is the base price times the multiplier of every selected option.
// Groups the caller did not select are priced at their neutral multiplier of 1.
func (m MenuItem) UnitPrice(selection map[string]string) (decimal.Decimal, error) {
	price := m.Price
	for group, optName := range selection {
		v, ok := m.variation(group)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: unknown group %q on %s", ErrInvalidSelection, group, m.ID)
		}
		o, ok := v.option(optName)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: unknown option %q in %q", ErrInvalidSelection, optName, group)
		}
		price = price.Mul(o.Multiplier)
	}
	return price, nil
}

func (m MenuItem) variation(name string) (ItemVariation, bool) {
	for _, v := range m.Variations {
		if v.Name == name {
			return v, true
		}
	}
	return ItemVariation{}, false
}

func (m MenuItem) HasTag(code string) bool {
	for _, t := range m.DietaryTags {
		if strings.EqualFold(t, code) {
			return true
		}
	}
	return false
}

// FeeFor returns the per-area fee listed on the item, if any.
func (m MenuItem) FeeFor(area string) (decimal.Decimal, bool) {
	for _, f := range m.DeliveryFees {
		if strings.EqualFold(f.Area, area) {
			return f.Fee, true
		}
	}
	return decimal.Zero, false
}
