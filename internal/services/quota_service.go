package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumoapp/lumo-growth/internal/models"
)

const (
	// DefaultDailyInviteLimit bounds successful sends per sender per calendar day.
	DefaultDailyInviteLimit = 10
	// DefaultInitialCredits seeds a wallet on first use.
	DefaultInitialCredits = 20
	// defaultReservationTTL bounds how long an uncommitted reservation may hold
	// a credit before the recovery sweep refunds it.
	defaultReservationTTL = 10 * time.Minute
)

var (
	// ErrQuotaExceeded indicates no spendable credit or a reached daily limit.
	ErrQuotaExceeded = errors.New("quota: invitation limit reached")
	// ErrReservationNotFound indicates an unknown reservation id.
	ErrReservationNotFound = errors.New("quota: reservation not found")
	// ErrReservationSettled indicates the reservation was already committed or released.
	ErrReservationSettled = errors.New("quota: reservation already settled")
)

// QuotaOption customises QuotaService behaviour.
type QuotaOption func(*QuotaService)

// WithDailyLimit overrides the per-day invitation limit.
func WithDailyLimit(limit int) QuotaOption {
	return func(s *QuotaService) {
		if limit > 0 {
			s.dailyLimit = limit
		}
	}
}

// WithInitialCredits overrides the credit balance granted to new wallets.
func WithInitialCredits(credits int) QuotaOption {
	return func(s *QuotaService) {
		if credits >= 0 {
			s.initialCredits = credits
		}
	}
}

// WithReservationTTL overrides how long pending reservations survive before recovery.
func WithReservationTTL(ttl time.Duration) QuotaOption {
	return func(s *QuotaService) {
		if ttl > 0 {
			s.reservationTTL = ttl
		}
	}
}

// WithQuotaClock injects a custom clock primarily for testing.
func WithQuotaClock(clock func() time.Time) QuotaOption {
	return func(s *QuotaService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// QuotaService enforces the daily and lifetime invitation-credit limits with
// atomic check-and-consume semantics. Every decrement is recorded as a durable
// QuotaReservation so a crash between reserve and commit cannot leak credits.
type QuotaService struct {
	db             *gorm.DB
	dailyLimit     int
	initialCredits int
	reservationTTL time.Duration
	now            func() time.Time
}

// NewQuotaService constructs a QuotaService with the provided dependencies.
func NewQuotaService(db *gorm.DB, opts ...QuotaOption) (*QuotaService, error) {
	if db == nil {
		return nil, errors.New("quota service: db is required")
	}

	service := &QuotaService{
		db:             db,
		dailyLimit:     DefaultDailyInviteLimit,
		initialCredits: DefaultInitialCredits,
		reservationTTL: defaultReservationTTL,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// TryReserve checks the sender's credit balance and daily send count in one
// atomic step and, on success, provisionally consumes one credit. The returned
// reservation must be settled with Commit or Release; pending reservations
// count against the daily limit so concurrent callers cannot overshoot it.
func (s *QuotaService) TryReserve(ctx context.Context, senderID string) (*models.QuotaReservation, error) {
	if senderID == "" {
		return nil, errors.New("quota service: sender id is required")
	}

	now := s.now()
	var reservation models.QuotaReservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := s.lockWallet(tx, senderID)
		if err != nil {
			return err
		}

		if wallet.AvailableCredits <= 0 {
			return ErrQuotaExceeded
		}

		sent, pending, err := s.dailyUsage(tx, senderID, now)
		if err != nil {
			return err
		}
		if sent+pending >= int64(s.dailyLimit) {
			return ErrQuotaExceeded
		}

		if err := tx.Model(wallet).
			UpdateColumn("available_credits", gorm.Expr("available_credits - ?", 1)).Error; err != nil {
			return fmt.Errorf("decrement credits: %w", err)
		}

		reservation = models.QuotaReservation{
			SenderID:  senderID,
			State:     models.ReservationPending,
			ExpiresAt: now.Add(s.reservationTTL),
		}
		return tx.Create(&reservation).Error
	})
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			return nil, ErrQuotaExceeded
		}
		return nil, fmt.Errorf("quota service: reserve: %w", err)
	}

	return &reservation, nil
}

// Commit marks a pending reservation as spent and links it to the invitation
// it paid for. Committing a settled reservation is an error.
func (s *QuotaService) Commit(ctx context.Context, reservationID, invitationID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := s.lockReservation(tx, reservationID)
		if err != nil {
			return err
		}
		if reservation.State != models.ReservationPending {
			return ErrReservationSettled
		}

		updates := map[string]any{"state": models.ReservationCommitted}
		if invitationID != "" {
			updates["invitation_id"] = invitationID
		}
		return tx.Model(reservation).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) || errors.Is(err, ErrReservationSettled) {
			return err
		}
		return fmt.Errorf("quota service: commit: %w", err)
	}
	return nil
}

// Release refunds a pending reservation's credit. Releasing an already
// released reservation is a no-op; releasing a committed one is an error.
func (s *QuotaService) Release(ctx context.Context, reservationID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservation, err := s.lockReservation(tx, reservationID)
		if err != nil {
			return err
		}

		switch reservation.State {
		case models.ReservationReleased:
			return nil
		case models.ReservationCommitted:
			return ErrReservationSettled
		}

		if err := tx.Model(reservation).
			UpdateColumn("state", models.ReservationReleased).Error; err != nil {
			return err
		}
		return s.creditWallet(tx, reservation.SenderID, 1)
	})
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) || errors.Is(err, ErrReservationSettled) {
			return err
		}
		return fmt.Errorf("quota service: release: %w", err)
	}
	return nil
}

// Credit adds spendable invitation credits to a user's wallet.
func (s *QuotaService) Credit(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return errors.New("quota service: credit amount must be positive")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockWallet(tx, userID); err != nil {
			return err
		}
		return s.creditWallet(tx, userID, amount)
	})
	if err != nil {
		return fmt.Errorf("quota service: credit: %w", err)
	}
	return nil
}

// creditWallet applies a credit inside an existing transaction.
func (s *QuotaService) creditWallet(tx *gorm.DB, userID string, amount int) error {
	return tx.Model(&models.InviteWallet{}).
		Where("user_id = ?", userID).
		UpdateColumn("available_credits", gorm.Expr("available_credits + ?", amount)).Error
}

// Balance reports the wallet state and today's successful send count.
func (s *QuotaService) Balance(ctx context.Context, userID string) (*models.InviteWallet, int64, error) {
	var wallet models.InviteWallet

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockWallet(tx, userID)
		if err != nil {
			return err
		}
		wallet = *locked
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("quota service: balance: %w", err)
	}

	sent, _, err := s.dailyUsage(s.db.WithContext(ctx), userID, s.now())
	if err != nil {
		return nil, 0, fmt.Errorf("quota service: balance: %w", err)
	}

	return &wallet, sent, nil
}

// DailyLimit exposes the configured per-day limit.
func (s *QuotaService) DailyLimit() int {
	return s.dailyLimit
}

// ReclaimExpired refunds pending reservations whose TTL has elapsed. It backs
// the crash-recovery sweep: a reservation left dangling by an interrupted send
// is released here rather than leaking a credit forever.
func (s *QuotaService) ReclaimExpired(ctx context.Context) (int64, error) {
	now := s.now()

	var stale []models.QuotaReservation
	if err := s.db.WithContext(ctx).
		Where("state = ? AND expires_at < ?", models.ReservationPending, now).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("quota service: find stale reservations: %w", err)
	}

	var reclaimed int64
	for _, reservation := range stale {
		if err := s.Release(ctx, reservation.ID); err != nil {
			if errors.Is(err, ErrReservationSettled) {
				continue // settled concurrently
			}
			return reclaimed, err
		}
		reclaimed++
	}

	return reclaimed, nil
}

// lockWallet loads the sender's wallet under a row lock, provisioning it with
// the initial credit grant on first use.
func (s *QuotaService) lockWallet(tx *gorm.DB, userID string) (*models.InviteWallet, error) {
	var wallet models.InviteWallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&wallet, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.InviteWallet{UserID: userID, AvailableCredits: s.initialCredits}
		if err := tx.Create(&wallet).Error; err != nil {
			return nil, fmt.Errorf("provision wallet: %w", err)
		}
		return &wallet, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *QuotaService) lockReservation(tx *gorm.DB, reservationID string) (*models.QuotaReservation, error) {
	if reservationID == "" {
		return nil, ErrReservationNotFound
	}

	var reservation models.QuotaReservation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&reservation, "id = ?", reservationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// dailyUsage counts today's successful sends and live pending reservations for
// the sender. Days are calendar days in UTC.
func (s *QuotaService) dailyUsage(tx *gorm.DB, senderID string, now time.Time) (sent, pending int64, err error) {
	dayStart := startOfDay(now)

	if err := tx.Model(&models.Invitation{}).
		Where("sender_id = ? AND created_at >= ?", senderID, dayStart).
		Count(&sent).Error; err != nil {
		return 0, 0, fmt.Errorf("count sent today: %w", err)
	}

	if err := tx.Model(&models.QuotaReservation{}).
		Where("sender_id = ? AND state = ? AND expires_at > ?", senderID, models.ReservationPending, now).
		Count(&pending).Error; err != nil {
		return 0, 0, fmt.Errorf("count pending reservations: %w", err)
	}

	return sent, pending, nil
}

func startOfDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
