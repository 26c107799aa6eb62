// Package notify turns order events into customer-facing messages.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-restaurant-orders/internal/kafka"
	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
	"github.com/ariefcatur/go-restaurant-orders/internal/metrics"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
	"github.com/ariefcatur/go-restaurant-orders/internal/redisx"
)

// MaxPerCustomer caps the stored notification list.
const MaxPerCustomer = 50

const dedupScope = "notifier"

type Notification struct {
	EventID     string        `json:"eventId"`
	OrderID     string        `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
	Status      orders.Status `json:"status"`
	Message     string        `json:"message"`
	CreatedAt   time.Time     `json:"createdAt"`
}

type Service struct {
	rdb *redis.Client
	log *slog.Logger
	now func() time.Time
}

func NewService(rdb *redis.Client, log *slog.Logger) *Service {
	if log == nil {
		log = logging.New("notifier")
	}
	return &Service{rdb: rdb, log: log, now: time.Now}
}

// HandleOrderEvent is installed as the consumer handler for both order topics.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// poison message: log and let the offset move on
		s.log.Error("drop undecodable event", "topic", m.Topic, "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != orders.EventOrderCreated && env.EventType != orders.EventOrderStatusChanged {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, dedupScope, env.EventID)
	first, err := redisx.MarkOnce(ctx, s.rdb, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !first {
		s.log.Debug("duplicate event skipped", "event_id", env.EventID)
		return nil
	}

	n, email, err := s.build(env)
	if err == nil {
		err = s.store(ctx, email, n)
	}
	if err != nil {
		// release the mark so the consumer's retry is not skipped as a duplicate
		_ = s.rdb.Del(context.WithoutCancel(ctx), dkey).Err()
		return err
	}

	metrics.NotificationsSent.WithLabelValues(env.EventType).Inc()
	s.log.Info("notification queued",
		"event_id", env.EventID, "order_id", n.OrderID, "status", n.Status, "trace_id", env.TraceID)
	return nil
}

func (s *Service) build(env orders.Envelope) (Notification, string, error) {
	n := Notification{EventID: env.EventID, CreatedAt: s.now().UTC()}
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return n, "", err
		}
		n.OrderID, n.OrderNumber, n.Status = p.OrderID, p.OrderNumber, orders.StatusPending
		n.Message = createdMessage(p)
		return n, p.Email, nil
	default:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return n, "", err
		}
		n.OrderID, n.OrderNumber, n.Status = p.OrderID, p.OrderNumber, p.To
		n.Message = statusMessage(p)
		return n, p.Email, nil
	}
}

func (s *Service) store(ctx context.Context, email string, n Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	key := fmt.Sprintf(redisx.KeyNotifications, normalizeEmail(email))
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, MaxPerCustomer-1)
	pipe.Expire(ctx, key, redisx.TTLNotifications)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

// List returns the newest notifications first.
func (s *Service) List(ctx context.Context, email string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > MaxPerCustomer {
		limit = MaxPerCustomer
	}
	key := fmt.Sprintf(redisx.KeyNotifications, normalizeEmail(email))
	raw, err := s.rdb.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]Notification, 0, len(raw))
	for _, r := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(r), &n); err != nil {
			s.log.Warn("skip malformed notification", "key", key, "error", err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func createdMessage(p orders.OrderCreatedPayload) string {
	msg := fmt.Sprintf("Thanks %s! We received order %s (total %s).", p.FirstName, p.OrderNumber, p.Total)
	if p.EstimatedAt != nil {
		verb := "ready for pickup"
		if p.FulfillmentMode == "delivery" {
			verb = "delivered"
		}
		msg += fmt.Sprintf(" Expect it %s around %s UTC.", verb, p.EstimatedAt.UTC().Format("15:04"))
	}
	return msg
}

func statusMessage(p orders.OrderStatusChangedPayload) string {
	if p.From == p.To {
		return fmt.Sprintf("Payment for order %s is now %s.", p.OrderNumber, p.PaymentStatus)
	}
	pickup := p.FulfillmentMode == "pickup"
	switch p.To {
	case orders.StatusConfirmed:
		return fmt.Sprintf("Your order %s has been confirmed.", p.OrderNumber)
	case orders.StatusPreparing:
		return fmt.Sprintf("Your order %s is being prepared.", p.OrderNumber)
	case orders.StatusReady:
		if pickup {
			return fmt.Sprintf("Your order %s is ready for pickup.", p.OrderNumber)
		}
		return fmt.Sprintf("Your order %s is ready and will be out for delivery shortly.", p.OrderNumber)
	case orders.StatusDelivered:
		if pickup {
			return fmt.Sprintf("Your order %s has been picked up. Enjoy!", p.OrderNumber)
		}
		return fmt.Sprintf("Your order %s has been delivered. Enjoy!", p.OrderNumber)
	case orders.StatusCancelled:
		return fmt.Sprintf("Your order %s was cancelled.", p.OrderNumber)
	}
	return fmt.Sprintf("Your order %s is now %s.", p.OrderNumber, p.To)
}
