package models

import "time"

// CacheEntry stores a cached value in the primary database. It backs the
// database cache store used for suggestion snapshots and request rate
// counters when no external cache is configured.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
