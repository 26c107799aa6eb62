package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/go-restaurant-orders/internal/kafka"
	"github.com/ariefcatur/go-restaurant-orders/internal/logging"
	"github.com/ariefcatur/go-restaurant-orders/internal/orders"
)

func setup(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc := NewService(rdb, logging.Discard())
	svc.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	return svc, mr
}

func message(eventID, eventType string, payload any) kafkago.Message {
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Topic: orders.TopicOrderStatusChanged, Value: kafkax.MustMarshal(env)}
}

func changed(to orders.Status, mode string) orders.OrderStatusChangedPayload {
	return orders.OrderStatusChangedPayload{
		OrderID:         "o-1",
		OrderNumber:     "ORD-261018-120000-000",
		Email:           "Ana@Example.com",
		FirstName:       "Ana",
		FulfillmentMode: mode,
		From:            orders.StatusPreparing,
		To:              to,
		PaymentStatus:   "pending",
	}
}

func TestHandleOrderEvent_StoresMessage(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderEvent(ctx, message("e-1", orders.EventOrderStatusChanged, changed(orders.StatusReady, "pickup"))))

	list, err := svc.List(ctx, "ana@example.com", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Your order ORD-261018-120000-000 is ready for pickup.", list[0].Message)
	assert.Equal(t, orders.StatusReady, list[0].Status)
	assert.Equal(t, "e-1", list[0].EventID)
}

func TestHandleOrderEvent_Created(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	est := time.Date(2026, 10, 18, 12, 45, 0, 0, time.UTC)
	p := orders.OrderCreatedPayload{
		OrderID: "o-1", OrderNumber: "ORD-1", Email: "ana@example.com", FirstName: "Ana",
		FulfillmentMode: "delivery", Total: "33.74", EstimatedAt: &est,
	}
	require.NoError(t, svc.HandleOrderEvent(ctx, message("e-1", orders.EventOrderCreated, p)))

	list, err := svc.List(ctx, "ana@example.com", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Thanks Ana! We received order ORD-1 (total 33.74). Expect it delivered around 12:45 UTC.", list[0].Message)
}

func TestHandleOrderEvent_DedupByEventID(t *testing.T) {
	svc, mr := setup(t)
	ctx := context.Background()
	m := message("e-dup", orders.EventOrderStatusChanged, changed(orders.StatusDelivered, "delivery"))

	require.NoError(t, svc.HandleOrderEvent(ctx, m))
	require.NoError(t, svc.HandleOrderEvent(ctx, m))

	list, err := svc.List(ctx, "ana@example.com", 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, mr.Exists("dedup:notifier:e-dup"))
}

func TestHandleOrderEvent_IgnoresUnknownAndGarbage(t *testing.T) {
	svc, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleOrderEvent(ctx, message("e-x", "StockReserved", map[string]string{"a": "b"})))
	require.NoError(t, svc.HandleOrderEvent(ctx, kafkago.Message{Value: []byte("not json")}))
	assert.Empty(t, mr.Keys())
}

func TestHandleOrderEvent_BadPayloadReleasesDedup(t *testing.T) {
	svc, mr := setup(t)
	ctx := context.Background()
	env := orders.Envelope{EventID: "e-bad", EventType: orders.EventOrderStatusChanged, Payload: []byte(`"oops"`)}

	err := svc.HandleOrderEvent(ctx, kafkago.Message{Value: kafkax.MustMarshal(env)})
	require.Error(t, err)
	assert.False(t, mr.Exists("dedup:notifier:e-bad"))
}

func TestList_CappedNewestFirst(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	for i := 0; i < MaxPerCustomer+5; i++ {
		m := message(fmt.Sprintf("e-%d", i), orders.EventOrderStatusChanged, changed(orders.StatusConfirmed, "pickup"))
		require.NoError(t, svc.HandleOrderEvent(ctx, m))
	}
	list, err := svc.List(ctx, "ana@example.com", 0)
	require.NoError(t, err)
	require.Len(t, list, MaxPerCustomer)
	assert.Equal(t, fmt.Sprintf("e-%d", MaxPerCustomer+4), list[0].EventID)
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		to   orders.Status
		mode string
		want string
	}{
		{orders.StatusConfirmed, "pickup", "Your order N has been confirmed."},
		{orders.StatusPreparing, "pickup", "Your order N is being prepared."},
		{orders.StatusReady, "delivery", "Your order N is ready and will be out for delivery shortly."},
		{orders.StatusDelivered, "pickup", "Your order N has been picked up. Enjoy!"},
		{orders.StatusCancelled, "delivery", "Your order N was cancelled."},
	}
	for _, tt := range tests {
		p := orders.OrderStatusChangedPayload{OrderNumber: "N", FulfillmentMode: tt.mode, From: orders.StatusPending, To: tt.to}
		assert.Equal(t, tt.want, statusMessage(p))
	}

	p := orders.OrderStatusChangedPayload{OrderNumber: "N", From: orders.StatusReady, To: orders.StatusReady, PaymentStatus: "failed"}
	assert.Equal(t, "Payment for order N is now failed.", statusMessage(p))
}
