package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumoapp/lumo-growth/internal/models"
	"github.com/lumoapp/lumo-growth/pkg/logger"
	"github.com/lumoapp/lumo-growth/pkg/metrics"
)

// CurrencyLedger is the external flame/gem balance collaborator. Reward
// reasons that pay out virtual currency rather than invite credits are routed
// here.
type CurrencyLedger interface {
	Award(ctx context.Context, userID string, amount int, reason string) error
}

// AwardInput describes one qualifying reward event.
type AwardInput struct {
	UserID      string
	Reason      models.RewardReason
	CreditDelta int
	// SourceEventID is the idempotency key, typically the invitation id.
	SourceEventID string
}

// RewardService appends reward transactions and applies their side effect:
// install bonuses credit the invite wallet, streak and premium bonuses go to
// the external currency ledger. The (source event, reason) pair is unique, so
// replaying an award for the same event is a silent no-op.
type RewardService struct {
	db       *gorm.DB
	quota    *QuotaService
	currency CurrencyLedger
	log      *zap.Logger
}

// NewRewardService constructs a RewardService. The currency ledger may be nil
// when the deployment has no virtual-currency integration; currency rewards
// are then recorded in the ledger table only.
func NewRewardService(db *gorm.DB, quota *QuotaService, currency CurrencyLedger) (*RewardService, error) {
	if db == nil {
		return nil, errors.New("reward service: db is required")
	}
	if quota == nil {
		return nil, errors.New("reward service: quota service is required")
	}

	return &RewardService{
		db:       db,
		quota:    quota,
		currency: currency,
		log:      logger.WithModule("rewards"),
	}, nil
}

// Award records the reward transaction and applies its credit. A duplicate
// award for the same (source event, reason) returns (nil, nil).
func (s *RewardService) Award(ctx context.Context, input AwardInput) (*models.RewardTransaction, error) {
	return s.awardWithDB(ctx, s.db.WithContext(ctx), input)
}

// awardWithDB runs the award inside the caller-provided handle so lifecycle
// transitions can apply transaction + credit atomically with the status change.
func (s *RewardService) awardWithDB(ctx context.Context, db *gorm.DB, input AwardInput) (*models.RewardTransaction, error) {
	if input.UserID == "" || input.SourceEventID == "" {
		return nil, errors.New("reward service: user id and source event id are required")
	}
	if input.CreditDelta <= 0 {
		return nil, errors.New("reward service: credit delta must be positive")
	}

	txn := models.RewardTransaction{
		UserID:        input.UserID,
		Reason:        input.Reason,
		CreditDelta:   input.CreditDelta,
		SourceEventID: input.SourceEventID,
	}

	if err := db.Create(&txn).Error; err != nil {
		if isUniqueConstraintError(err) {
			s.log.Debug("duplicate reward ignored",
				zap.String("source_event_id", input.SourceEventID),
				zap.String("reason", string(input.Reason)),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("reward service: append transaction: %w", err)
	}

	switch input.Reason {
	case models.RewardReasonInstallBonus:
		if err := s.quota.creditWallet(db, input.UserID, input.CreditDelta); err != nil {
			return nil, fmt.Errorf("reward service: credit wallet: %w", err)
		}
	default:
		if s.currency != nil {
			if err := s.currency.Award(ctx, input.UserID, input.CreditDelta, string(input.Reason)); err != nil {
				return nil, fmt.Errorf("reward service: currency award: %w", err)
			}
		}
	}

	metrics.RewardsGranted.WithLabelValues(string(input.Reason)).Inc()
	return &txn, nil
}

// History lists a user's reward transactions, newest first.
func (s *RewardService) History(ctx context.Context, userID string) ([]models.RewardTransaction, error) {
	var out []models.RewardTransaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("reward service: history: %w", err)
	}
	return out, nil
}
