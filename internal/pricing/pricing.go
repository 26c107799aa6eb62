package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type FulfillmentMode string

const (
	ModeDelivery FulfillmentMode = "delivery"
	ModePickup   FulfillmentMode = "pickup"
)

func (m FulfillmentMode) Valid() bool {
	return m == ModeDelivery || m == ModePickup
}

// Tip is a percentage of the subtotal.
type Tip int

const (
	TipNone Tip = 0
	Tip15   Tip = 15
	Tip18   Tip = 18
	Tip22   Tip = 22
)

var ErrInvalidTip = errors.New("invalid tip")

func (t Tip) Valid() bool {
	switch t {
	case TipNone, Tip15, Tip18, Tip22:
		return true
	}
	return false
}

// ParseTip accepts "", "none", "0", "15", "18", "22", optionally suffixed with "%".
func ParseTip(s string) (Tip, error) {
	s = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "%")
	if s == "" || s == "none" {
		return TipNone, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return TipNone, fmt.Errorf("%w: %q", ErrInvalidTip, s)
	}
	t := Tip(n)
	if !t.Valid() {
		return TipNone, fmt.Errorf("%w: %d%%", ErrInvalidTip, n)
	}
	return t, nil
}

var (
	TaxRate            = decimal.RequireFromString("0.08")
	DefaultDeliveryFee = decimal.RequireFromString("2.99")
)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown keeps full precision in memory. Its JSON form is the two-decimal
// display rendering; storage that needs every digit uses its own record type.
type Breakdown struct {
	SubTotal decimal.Decimal `json:"subTotal"`
	Tax      decimal.Decimal `json:"tax"`
	Delivery decimal.Decimal `json:"delivery"`
	Tip      decimal.Decimal `json:"tip"`
	Total    decimal.Decimal `json:"total"`
}

func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		SubTotal: b.SubTotal.Round(2),
		Tax:      b.Tax.Round(2),
		Delivery: b.Delivery.Round(2),
		Tip:      b.Tip.Round(2),
		Total:    b.Total.Round(2),
	}
}

// Display is the two-decimal rendering sent to clients.
type Display struct {
	SubTotal string `json:"subTotal"`
	Tax      string `json:"tax"`
	Delivery string `json:"delivery"`
	Tip      string `json:"tip"`
	Total    string `json:"total"`
}

func (b Breakdown) Display() Display {
	return Display{
		SubTotal: b.SubTotal.StringFixed(2),
		Tax:      b.Tax.StringFixed(2),
		Delivery: b.Delivery.StringFixed(2),
		Tip:      b.Tip.StringFixed(2),
		Total:    b.Total.StringFixed(2),
	}
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Display())
}

type Calculator struct {
	DeliveryFee decimal.Decimal
}

func NewCalculator(deliveryFee decimal.Decimal) Calculator {
	if deliveryFee.IsNegative() {
		deliveryFee = decimal.Zero
	}
	return Calculator{DeliveryFee: deliveryFee}
}

func (c Calculator) Calculate(lines []Line, mode FulfillmentMode, tip Tip) Breakdown {
	sub := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			continue
		}
		sub = sub.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	b := Breakdown{
		SubTotal: sub,
		Tax:      sub.Mul(TaxRate),
		Delivery: decimal.Zero,
		Tip:      decimal.Zero,
	}
	if mode == ModeDelivery {
		b.Delivery = c.DeliveryFee
	}
	if tip.Valid() && tip != TipNone {
		b.Tip = sub.Mul(decimal.NewFromInt(int64(tip))).Div(decimal.NewFromInt(100))
	}
	b.Total = b.SubTotal.Add(b.Tax).Add(b.Delivery).Add(b.Tip)
	return b
}

// Calculate prices with the default flat delivery fee.
func Calculate(lines []Line, mode FulfillmentMode, tip Tip) Breakdown {
	return Calculator{DeliveryFee: DefaultDeliveryFee}.Calculate(lines, mode, tip)
}
