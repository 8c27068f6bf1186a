package cache

import "time"

// BytesCache is what the API handlers cache rendered responses through:
// raw bytes in, raw bytes out, a TTL, and a miss that is not an error.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
