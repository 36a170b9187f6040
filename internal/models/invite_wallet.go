package models

// InviteWallet holds a user's spendable invitation credits. The daily sent
// count is derived from Invitation rows rather than stored here, so the wallet
// only needs atomic decrement/refund semantics.
type InviteWallet struct {
	BaseModel

	UserID           string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	AvailableCredits int    `gorm:"not null;default:0" json:"available_credits"`
}
