package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID         string     `json:"order_id"`
	OrderNumber     string     `json:"order_number"`
	Email           string     `json:"email"`
	FirstName       string     `json:"first_name"`
	FulfillmentMode string     `json:"fulfillment_mode"`
	PaymentMethod   string     `json:"payment_method"`
	PaymentStatus   string     `json:"payment_status"`
	Location        string     `json:"location"`
	Total           string     `json:"total"`
	EstimatedAt     *time.Time `json:"estimated_at,omitempty"`
}

type OrderStatusChangedPayload struct {
	OrderID         string    `json:"order_id"`
	OrderNumber     string    `json:"order_number"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	FulfillmentMode string    `json:"fulfillment_mode"`
	From            Status    `json:"from"`
	To              Status    `json:"to"`
	PaymentStatus   string    `json:"payment_status"`
	ChangedAt       time.Time `json:"changed_at"`
}
