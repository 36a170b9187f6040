package models

import "time"

// ReservationState tracks the outcome of a provisional quota decrement.
type ReservationState string

const (
	ReservationPending   ReservationState = "pending"
	ReservationCommitted ReservationState = "committed"
	ReservationReleased  ReservationState = "released"
)

// QuotaReservation is the durable record of one provisional invite-credit
// decrement. A pending reservation that is never committed or released (for
// example after a crash mid-send) is refunded by the maintenance sweep once
// ExpiresAt has passed, so credits cannot leak.
type QuotaReservation struct {
	BaseModel

	SenderID  string           `gorm:"type:uuid;not null;index" json:"sender_id"`
	State     ReservationState `gorm:"not null;default:pending;index" json:"state"`
	ExpiresAt time.Time        `gorm:"not null;index" json:"expires_at"`

	// InvitationID links a committed reservation to the invitation it paid for.
	InvitationID *string `gorm:"type:uuid" json:"invitation_id,omitempty"`
}
