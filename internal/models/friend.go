package models

import "time"

// Friend is one edge of a user's friend list. A row belongs to the owning
// user's view of the relationship; interaction counters are per-owner.
type Friend struct {
	BaseModel

	OwnerID  string `gorm:"type:uuid;not null;index;uniqueIndex:idx_friend_owner_user" json:"owner_id"`
	UserID   string `gorm:"type:uuid;not null;index;uniqueIndex:idx_friend_owner_user" json:"user_id"`
	Name     string `gorm:"not null" json:"name"`
	Username string `gorm:"index" json:"username"`

	IsFavorite          bool       `gorm:"not null;default:false" json:"is_favorite"`
	FriendshipDate      time.Time  `gorm:"not null" json:"friendship_date"`
	LastInteractionDate *time.Time `json:"last_interaction_date,omitempty"`
	PolledCount         int        `gorm:"not null;default:0" json:"polled_count"`
	ReceivedPollCount   int        `gorm:"not null;default:0" json:"received_poll_count"`
}
