package models

import "gorm.io/datatypes"

// FunnelEventKind labels a recorded funnel observation.
type FunnelEventKind string

const (
	FunnelEventSent     FunnelEventKind = "sent"
	FunnelEventClicked  FunnelEventKind = "clicked"
	FunnelEventInstall  FunnelEventKind = "installed"
	FunnelEventExpired  FunnelEventKind = "expired"
	FunnelEventReminder FunnelEventKind = "reminder"
)

// FunnelEvent is an append-only audit record of invitation funnel activity,
// kept in-repo for reconciliation and debugging. Product analytics emission
// remains an external concern.
type FunnelEvent struct {
	BaseModel

	UserID       string          `gorm:"type:uuid;not null;index" json:"user_id"`
	InvitationID *string         `gorm:"type:uuid;index" json:"invitation_id,omitempty"`
	Kind         FunnelEventKind `gorm:"not null;index" json:"kind"`
	Payload      datatypes.JSON  `json:"payload,omitempty"`
}
