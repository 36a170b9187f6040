package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumoapp/lumo-growth/internal/contacts"
	"github.com/lumoapp/lumo-growth/internal/models"
	"github.com/lumoapp/lumo-growth/pkg/crypto"
	"github.com/lumoapp/lumo-growth/pkg/logger"
	"github.com/lumoapp/lumo-growth/pkg/metrics"
	"github.com/lumoapp/lumo-growth/pkg/sms"
)

const (
	defaultInviteExpiry     = 24 * time.Hour
	defaultMaxSendAttempts  = 3
	defaultRetryDelay       = 2 * time.Second
	defaultTrackingTokenLen = 24
)

var (
	// ErrInvalidContact indicates the contact has no usable phone number.
	ErrInvalidContact = errors.New("invite: contact has no phone number")
	// ErrSendFailed indicates the retry budget was exhausted without a delivery.
	ErrSendFailed = errors.New("invite: delivery failed")
	// ErrInvitationNotFound indicates no invitation matches the provided id or token.
	ErrInvitationNotFound = errors.New("invite: not found")
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the base URL used to build tracked invite links.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteExpiry overrides the invitation lifetime.
func WithInviteExpiry(d time.Duration) InviteOption {
	return func(s *InviteService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithRetryPolicy overrides the channel attempt budget and inter-attempt delay.
func WithRetryPolicy(maxAttempts int, delay time.Duration) InviteOption {
	return func(s *InviteService) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InviteService dispatches invitations: it spends quota through a reservation,
// drives the bounded retry loop around the external send channel, and records
// the resulting Invitation. A single call produces at most one Invitation row
// and at most one net credit decrement, however many channel attempts occur.
type InviteService struct {
	db          *gorm.DB
	quota       *QuotaService
	channel     sms.Sender
	baseURL     string
	expiry      time.Duration
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
	log         *zap.Logger
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(db *gorm.DB, quota *QuotaService, channel sms.Sender, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}
	if quota == nil {
		return nil, errors.New("invite service: quota service is required")
	}
	if channel == nil {
		return nil, errors.New("invite service: send channel is required")
	}

	service := &InviteService{
		db:          db,
		quota:       quota,
		channel:     channel,
		expiry:      defaultInviteExpiry,
		maxAttempts: defaultMaxSendAttempts,
		retryDelay:  defaultRetryDelay,
		now:         time.Now,
		log:         logger.WithModule("invites"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// SendInvite validates the contact, reserves quota, delivers the message with
// bounded retries, and persists the Invitation. Validation and quota failures
// fail fast before any side effect; a cancelled context is never retried and
// always releases the reservation.
func (s *InviteService) SendInvite(ctx context.Context, senderID string, contact contacts.Contact, messageOverride string) (*models.Invitation, error) {
	phone := strings.TrimSpace(contact.PhoneNumber)
	if phone == "" {
		metrics.InviteSends.WithLabelValues("invalid_contact").Inc()
		return nil, ErrInvalidContact
	}

	reservation, err := s.quota.TryReserve(ctx, senderID)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			metrics.InviteSends.WithLabelValues("quota_exceeded").Inc()
			return nil, ErrQuotaExceeded
		}
		return nil, fmt.Errorf("invite service: reserve quota: %w", err)
	}

	token, err := crypto.GenerateToken(defaultTrackingTokenLen)
	if err != nil {
		s.releaseQuietly(ctx, reservation.ID)
		return nil, fmt.Errorf("invite service: generate tracking token: %w", err)
	}

	now := s.now()
	variant, body := s.composeMessage(now, contact, messageOverride, token)

	if err := s.deliver(ctx, phone, body); err != nil {
		s.releaseQuietly(ctx, reservation.ID)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("invite service: send cancelled: %w", ctx.Err())
		}
		metrics.InviteSends.WithLabelValues("send_failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	invitation := &models.Invitation{
		BaseModel:      models.BaseModel{CreatedAt: now, UpdatedAt: now},
		SenderID:       senderID,
		RecipientPhone: phone,
		RecipientName:  contact.Name,
		Message:        body,
		MessageVariant: variant,
		TrackingToken:  token,
		Status:         models.InvitationSent,
		ExpiresAt:      now.Add(s.expiry),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invitation).Error; err != nil {
			return err
		}
		if err := s.commitReservation(tx, reservation.ID, invitation.ID); err != nil {
			return err
		}
		return appendFunnelEvent(tx, senderID, &invitation.ID, models.FunnelEventSent, map[string]any{
			"variant": string(variant),
		})
	})
	if err != nil {
		// The message went out but the record did not land. The reservation
		// stays pending so the recovery sweep can reconcile it; surfacing the
		// error beats silently dropping the reserved credit.
		s.log.Error("invitation persist failed after send",
			zap.String("sender_id", senderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("invite service: persist invitation: %w", err)
	}

	metrics.InviteSends.WithLabelValues("sent").Inc()
	return invitation, nil
}

// deliver runs the bounded retry loop around the external channel. Transient
// failures are retried up to the attempt budget with a fixed delay; a
// cancelled context aborts immediately.
func (s *InviteService) deliver(ctx context.Context, phone, body string) error {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		lastErr = s.channel.Send(ctx, sms.Message{To: phone, Body: body})
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		s.log.Warn("channel send failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
			zap.Error(lastErr),
		)

		if attempt == s.maxAttempts {
			break
		}
		metrics.SendRetries.Inc()
		if err := sleepContext(ctx, s.retryDelay); err != nil {
			return lastErr
		}
	}

	return lastErr
}

// Resend pushes the invitation message through the channel again. Used by the
// reminder flow; the caller owns reminder bookkeeping.
func (s *InviteService) Resend(ctx context.Context, invitation *models.Invitation) error {
	if invitation == nil {
		return ErrInvitationNotFound
	}
	return s.deliver(ctx, invitation.RecipientPhone, invitation.Message)
}

// GetByID loads one invitation scoped to its sender.
func (s *InviteService) GetByID(ctx context.Context, senderID, invitationID string) (*models.Invitation, error) {
	var invitation models.Invitation
	err := s.db.WithContext(ctx).
		Take(&invitation, "id = ? AND sender_id = ?", invitationID, senderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite service: get: %w", err)
	}
	return &invitation, nil
}

// List returns the sender's invitations, newest first. Expiry is surfaced by
// the caller via Invitation.IsExpired rather than rewritten here.
func (s *InviteService) List(ctx context.Context, senderID string) ([]models.Invitation, error) {
	var out []models.Invitation
	err := s.db.WithContext(ctx).
		Where("sender_id = ?", senderID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("invite service: list: %w", err)
	}
	return out, nil
}

// InviteLink builds the tracked link embedded in invitation messages.
func (s *InviteService) InviteLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s/i/%s", s.baseURL, token)
}

// composeMessage picks the template variant by time-of-day bucket: morning and
// afternoon sends use the time-based copy, evening sends the standard copy. A
// caller-supplied override replaces the template but keeps the tracked link.
func (s *InviteService) composeMessage(now time.Time, contact contacts.Contact, override, token string) (models.MessageVariant, string) {
	link := s.InviteLink(token)

	if override = strings.TrimSpace(override); override != "" {
		return models.MessageVariantStandard, override + "\n" + link
	}

	firstName := contact.Name
	if idx := strings.IndexByte(firstName, ' '); idx > 0 {
		firstName = firstName[:idx]
	}
	if firstName == "" {
		firstName = "there"
	}

	hour := now.Hour()
	if hour >= 5 && hour < 12 {
		return models.MessageVariantTimeBased,
			fmt.Sprintf("Morning %s! Your friends are already answering polls about you on Lumo. Come see: %s", firstName, link)
	}
	if hour >= 12 && hour < 18 {
		return models.MessageVariantTimeBased,
			fmt.Sprintf("Hey %s, your friends picked you in a poll this afternoon. See who on Lumo: %s", firstName, link)
	}
	return models.MessageVariantStandard,
		fmt.Sprintf("Hey %s, someone picked you in a poll on Lumo. Find out who: %s", firstName, link)
}

// commitReservation mirrors QuotaService.Commit inside an existing transaction.
func (s *InviteService) commitReservation(tx *gorm.DB, reservationID, invitationID string) error {
	reservation, err := s.quota.lockReservation(tx, reservationID)
	if err != nil {
		return err
	}
	if reservation.State != models.ReservationPending {
		return ErrReservationSettled
	}
	return tx.Model(reservation).Updates(map[string]any{
		"state":         models.ReservationCommitted,
		"invitation_id": invitationID,
	}).Error
}

func (s *InviteService) releaseQuietly(ctx context.Context, reservationID string) {
	// Use a fresh context: the caller's may already be cancelled and the
	// reservation must still be resolved rather than left dangling.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.quota.Release(releaseCtx, reservationID); err != nil {
		s.log.Warn("quota release failed, recovery sweep will reclaim",
			zap.String("reservation_id", reservationID),
			zap.Error(err),
		)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
