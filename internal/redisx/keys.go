package redisx

import "time"

const (
	// Checkout idempotency: idem:checkout:{key} -> order_id
	KeyIdemCheckout = "idem:checkout:%s"

	// Order status cache: order_status:{order_id} -> status
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Distributed lock: lock:{key}
	KeyLock = "lock:%s"

	// Setting cache: setting:{key} -> raw value
	KeySetting = "setting:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLLock        = 30 * time.Second
	TTLSetting     = time.Minute
)
