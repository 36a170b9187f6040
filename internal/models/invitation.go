package models

import "time"

// InvitationStatus is the invitation's position in the conversion funnel.
// Transitions are monotonic: sent -> clicked -> installed, and sent|clicked
// -> expired. Installed and expired are terminal.
type InvitationStatus string

const (
	InvitationSent      InvitationStatus = "sent"
	InvitationClicked   InvitationStatus = "clicked"
	InvitationInstalled InvitationStatus = "installed"
	InvitationExpired   InvitationStatus = "expired"
)

// MessageVariant identifies which template family produced the invite body.
type MessageVariant string

const (
	MessageVariantStandard  MessageVariant = "standard"
	MessageVariantTimeBased MessageVariant = "time_based"
)

// MaxReminders bounds how many reminder re-sends a single invitation may receive.
const MaxReminders = 2

// Invitation is a tracked record of one outbound referral attempt to a
// non-member contact. A row exists only after the external channel accepted
// the message; identity is immutable.
type Invitation struct {
	BaseModel

	SenderID       string         `gorm:"type:uuid;not null;index" json:"sender_id"`
	RecipientPhone string         `gorm:"not null;index" json:"recipient_phone"`
	RecipientName  string         `json:"recipient_name"`
	Message        string         `gorm:"not null" json:"message"`
	MessageVariant MessageVariant `gorm:"not null;default:standard" json:"message_variant"`

	// TrackingToken is embedded in the invite link and drives click attribution.
	TrackingToken string `gorm:"not null;uniqueIndex" json:"-"`

	Status    InvitationStatus `gorm:"not null;default:sent;index" json:"status"`
	ExpiresAt time.Time        `gorm:"not null;index" json:"expires_at"`

	ClickedAt        *time.Time `json:"clicked_at,omitempty"`
	InstalledAt      *time.Time `json:"installed_at,omitempty"`
	InstallCount     int        `gorm:"not null;default:0" json:"install_count"`
	ReminderCount    int        `gorm:"not null;default:0" json:"reminder_count"`
	LastReminderSent *time.Time `json:"last_reminder_sent,omitempty"`
}

// IsExpired reports whether the invitation is past its deadline. Expiry is
// derivable on read; Status is only rewritten by the maintenance sweep.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsTerminal reports whether the invitation can still transition.
func (i *Invitation) IsTerminal() bool {
	return i.Status == InvitationInstalled || i.Status == InvitationExpired
}

// CanRemind reports whether a reminder may still be scheduled at the given time.
func (i *Invitation) CanRemind(now time.Time) bool {
	if i.IsTerminal() || i.IsExpired(now) {
		return false
	}
	return i.ReminderCount < MaxReminders
}
