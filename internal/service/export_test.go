package service

import "time"

// NewTokenBucketWithClock exposes the clock seam to external tests.
func NewTokenBucketWithClock(rate, capacity float64, now func() time.Time) *TokenBucket {
	return newTokenBucket(rate, capacity, now)
}
