package models

// RewardReason identifies the qualifying event behind a reward transaction.
type RewardReason string

const (
	RewardReasonInstallBonus RewardReason = "install_bonus"
	RewardReasonStreakBonus  RewardReason = "streak_bonus"
	RewardReasonPremiumBonus RewardReason = "premium_bonus"
)

// RewardTransaction is an append-only ledger entry crediting invite quota or
// virtual currency. The (source_event_id, reason) pair is unique so a repeated
// award for the same qualifying event is a no-op rather than a double credit.
type RewardTransaction struct {
	BaseModel

	UserID      string       `gorm:"type:uuid;not null;index" json:"user_id"`
	Reason      RewardReason `gorm:"not null;uniqueIndex:idx_reward_source_reason" json:"reason"`
	CreditDelta int          `gorm:"not null" json:"credit_delta"`

	// SourceEventID is the idempotency key, typically the invitation id that
	// produced the qualifying transition.
	SourceEventID string `gorm:"not null;uniqueIndex:idx_reward_source_reason" json:"source_event_id"`
}
