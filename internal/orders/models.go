package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-restaurant-orders/internal/cart"
	"github.com/ariefcatur/go-restaurant-orders/internal/pricing"
)

type Address struct {
	Street     string `json:"street" validate:"required,max=200"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postalCode,omitempty" validate:"max=20"`
	Area       string `json:"area,omitempty" validate:"max=100"`
}

type Customer struct {
	Email     string   `json:"email" validate:"required,email"`
	Phone     string   `json:"phone" validate:"required,min=6,max=32"`
	FirstName string   `json:"firstName" validate:"required,max=64"`
	LastName  string   `json:"lastName" validate:"required,max=64"`
	Address   *Address `json:"address,omitempty" validate:"omitempty"`
	Notes     string   `json:"notes,omitempty" validate:"max=500"`
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Order struct {
	ID              string                  `json:"id"`
	OrderNumber     string                  `json:"orderNumber"`
	Customer        Customer                `json:"customer"`
	Items           []cart.Line             `json:"items"`
	Pricing         pricing.Breakdown       `json:"pricing"`
	TipPercent      pricing.Tip             `json:"tipPercent"`
	FulfillmentMode pricing.FulfillmentMode `json:"fulfillmentMode"`
	PaymentMethod   PaymentMethod           `json:"paymentMethod"`
	PaymentStatus   PaymentStatus           `json:"paymentStatus"`
	OrderStatus     Status                  `json:"orderStatus"`
	Location        string                  `json:"location"`
	SubmittedAt     time.Time               `json:"submittedAt"`
	EstimatedAt     *time.Time              `json:"estimatedAt,omitempty"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

// StatusView is the slice of an order cached for status polling.
type StatusView struct {
	OrderID       string        `json:"orderId"`
	OrderNumber   string        `json:"orderNumber"`
	OrderStatus   Status        `json:"orderStatus"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	EstimatedAt   *time.Time    `json:"estimatedAt,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (o Order) StatusView() StatusView {
	return StatusView{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		EstimatedAt:   o.EstimatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

const (
	DeliveryLeadTime = 45 * time.Minute
	PickupLeadTime   = 25 * time.Minute
)

func EstimateFor(mode pricing.FulfillmentMode, submitted time.Time) time.Time {
	if mode == pricing.ModeDelivery {
		return submitted.Add(DeliveryLeadTime)
	}
	return submitted.Add(PickupLeadTime)
}

// OrderNumber renders the submission time to the millisecond, e.g. ORD-261018-143005-042.
func OrderNumber(submitted time.Time) string {
	t := submitted.UTC()
	return fmt.Sprintf("ORD-%s-%03d", t.Format("060102-150405"), t.Nanosecond()/int(time.Millisecond))
}
