package models

import "time"

// RateCounter is a fixed-window request counter shared by every server
// instance that points at the same database.
type RateCounter struct {
	Key       string    `gorm:"column:bucket;primaryKey;size:255" json:"key"`
	Count     int64     `gorm:"not null" json:"count"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
