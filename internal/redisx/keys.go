package redisx

import "time"

const (
	// Idempotency lock for create order: idem:lock:{scope}:{key}
	KeyIdemLock = "idem:lock:%s:%s"

	// Idempotency result: idem:map:{scope}:{key} -> order_id
	KeyIdemResult = "idem:map:%s:%s"

	// Cached order status: order_status:{order_id} -> StatusView JSON
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Customer notifications: notifications:{email} -> capped list of JSON messages
	KeyNotifications = "notifications:%s"
)

var (
	TTLStatusCache   = 5 * time.Minute
	TTLDedup         = 48 * time.Hour
	TTLNotifications = 30 * 24 * time.Hour
)
