package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumoapp/lumo-growth/internal/models"
	"github.com/lumoapp/lumo-growth/pkg/logger"
	"github.com/lumoapp/lumo-growth/pkg/metrics"
)

const defaultInstallBonus = 5

var (
	// ErrReminderLimit indicates the invitation already used its reminder budget.
	ErrReminderLimit = errors.New("lifecycle: reminder limit reached")
	// ErrInvalidTransition indicates the invitation is terminal or past deadline.
	ErrInvalidTransition = errors.New("lifecycle: invalid transition")
)

// LifecycleOption customises LifecycleService behaviour.
type LifecycleOption func(*LifecycleService)

// WithInstallBonus overrides the credits granted for a converted install.
func WithInstallBonus(credits int) LifecycleOption {
	return func(s *LifecycleService) {
		if credits > 0 {
			s.installBonus = credits
		}
	}
}

// WithLifecycleClock injects a custom clock primarily for testing.
func WithLifecycleClock(clock func() time.Time) LifecycleOption {
	return func(s *LifecycleService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// LifecycleService owns invitation state after the initial send: click and
// install attribution, reminders, and the expiry sweep. Transitions are
// monotonic and duplicate events collapse into no-ops.
type LifecycleService struct {
	db           *gorm.DB
	invites      *InviteService
	rewards      *RewardService
	installBonus int
	now          func() time.Time
	log          *zap.Logger
}

// NewLifecycleService constructs a LifecycleService with the provided dependencies.
func NewLifecycleService(db *gorm.DB, invites *InviteService, rewards *RewardService, opts ...LifecycleOption) (*LifecycleService, error) {
	if db == nil {
		return nil, errors.New("lifecycle service: db is required")
	}
	if invites == nil {
		return nil, errors.New("lifecycle service: invite service is required")
	}
	if rewards == nil {
		return nil, errors.New("lifecycle service: reward service is required")
	}

	service := &LifecycleService{
		db:           db,
		invites:      invites,
		rewards:      rewards,
		installBonus: defaultInstallBonus,
		now:          time.Now,
		log:          logger.WithModule("lifecycle"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RecordClick attributes a link open to its invitation by tracking token.
// Only a live sent invitation transitions to clicked; repeat clicks and
// clicks on terminal or overdue invitations resolve the invitation without
// changing it.
func (s *LifecycleService) RecordClick(ctx context.Context, trackingToken string) (*models.Invitation, error) {
	now := s.now()

	var invitation models.Invitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&invitation, "tracking_token = ?", trackingToken).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvitationNotFound
		}
		if err != nil {
			return fmt.Errorf("lifecycle service: load by token: %w", err)
		}

		if invitation.Status != models.InvitationSent || invitation.IsExpired(now) {
			return nil
		}

		invitation.Status = models.InvitationClicked
		invitation.ClickedAt = &now
		if err := tx.Model(&invitation).Updates(map[string]any{
			"status":     models.InvitationClicked,
			"clicked_at": now,
		}).Error; err != nil {
			return fmt.Errorf("lifecycle service: mark clicked: %w", err)
		}

		metrics.LifecycleTransitions.WithLabelValues("sent_to_clicked").Inc()
		return appendFunnelEvent(tx, invitation.SenderID, &invitation.ID, models.FunnelEventClicked, nil)
	})
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// RecordInstall attributes a completed signup to its invitation and grants the
// sender's install bonus exactly once. Valid from sent or clicked; a repeat
// install event is a no-op because the reward's idempotency key is the
// invitation id. The transition and the reward commit or roll back together.
func (s *LifecycleService) RecordInstall(ctx context.Context, invitationID string) (*models.Invitation, error) {
	now := s.now()

	var invitation models.Invitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&invitation, "id = ?", invitationID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvitationNotFound
		}
		if err != nil {
			return fmt.Errorf("lifecycle service: load: %w", err)
		}

		if invitation.Status == models.InvitationInstalled {
			return nil
		}
		if invitation.Status == models.InvitationExpired || invitation.IsExpired(now) {
			return ErrInvalidTransition
		}

		transition := "sent_to_installed"
		if invitation.Status == models.InvitationClicked {
			transition = "clicked_to_installed"
		}

		invitation.Status = models.InvitationInstalled
		invitation.InstalledAt = &now
		invitation.InstallCount++
		if err := tx.Model(&invitation).Updates(map[string]any{
			"status":        models.InvitationInstalled,
			"installed_at":  now,
			"install_count": invitation.InstallCount,
		}).Error; err != nil {
			return fmt.Errorf("lifecycle service: mark installed: %w", err)
		}

		if _, err := s.rewards.awardWithDB(ctx, tx, AwardInput{
			UserID:        invitation.SenderID,
			Reason:        models.RewardReasonInstallBonus,
			CreditDelta:   s.installBonus,
			SourceEventID: invitation.ID,
		}); err != nil {
			return fmt.Errorf("lifecycle service: grant install bonus: %w", err)
		}

		metrics.LifecycleTransitions.WithLabelValues(transition).Inc()
		return appendFunnelEvent(tx, invitation.SenderID, &invitation.ID, models.FunnelEventInstall, nil)
	})
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// SendReminder re-sends the invitation message if the reminder budget allows.
// Eligibility is checked before any channel attempt, so an ineligible
// invitation never triggers a send. The counter update is guarded so two
// racing reminders cannot overrun the budget.
func (s *LifecycleService) SendReminder(ctx context.Context, senderID, invitationID string) (*models.Invitation, error) {
	now := s.now()

	invitation, err := s.invites.GetByID(ctx, senderID, invitationID)
	if err != nil {
		return nil, err
	}

	if invitation.IsTerminal() || invitation.IsExpired(now) {
		return nil, ErrInvalidTransition
	}
	if invitation.ReminderCount >= models.MaxReminders {
		return nil, ErrReminderLimit
	}

	if err := s.invites.Resend(ctx, invitation); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("lifecycle service: reminder cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: reminder: %v", ErrSendFailed, err)
	}

	result := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND reminder_count < ?", invitation.ID, models.MaxReminders).
		Updates(map[string]any{
			"reminder_count":     gorm.Expr("reminder_count + 1"),
			"last_reminder_sent": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("lifecycle service: record reminder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost the race to the last reminder slot. The recipient got one
		// extra message but the recorded count stays within budget.
		return nil, ErrReminderLimit
	}

	if err := appendFunnelEvent(s.db.WithContext(ctx), senderID, &invitation.ID, models.FunnelEventReminder, map[string]any{
		"reminder": invitation.ReminderCount + 1,
	}); err != nil {
		s.log.Warn("funnel event append failed", zap.Error(err))
	}

	invitation.ReminderCount++
	invitation.LastReminderSent = &now
	return invitation, nil
}

// ExpireOverdue marks every live invitation past its deadline as expired and
// returns how many rows transitioned. Run from the maintenance schedule;
// reads already treat overdue invitations as expired, so this is bookkeeping
// rather than enforcement.
func (s *LifecycleService) ExpireOverdue(ctx context.Context) (int64, error) {
	now := s.now()

	var expired []models.Invitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status IN ? AND expires_at < ?",
				[]models.InvitationStatus{models.InvitationSent, models.InvitationClicked}, now).
			Find(&expired).Error
		if err != nil {
			return fmt.Errorf("lifecycle service: find overdue: %w", err)
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]string, 0, len(expired))
		for i := range expired {
			ids = append(ids, expired[i].ID)
		}
		if err := tx.Model(&models.Invitation{}).
			Where("id IN ?", ids).
			Update("status", models.InvitationExpired).Error; err != nil {
			return fmt.Errorf("lifecycle service: mark expired: %w", err)
		}

		for i := range expired {
			if err := appendFunnelEvent(tx, expired[i].SenderID, &expired[i].ID, models.FunnelEventExpired, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if n := len(expired); n > 0 {
		metrics.LifecycleTransitions.WithLabelValues("to_expired").Add(float64(n))
		s.log.Info("expired overdue invitations", zap.Int("count", n))
	}
	return int64(len(expired)), nil
}
