package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumoapp/lumo-growth/internal/models"
)

var (
	// ErrFriendNotFound indicates the friend id is unknown for this owner.
	ErrFriendNotFound = errors.New("friends: not found")
	// ErrSuggestionNotFound indicates the suggestion no longer exists,
	// typically because it was accepted or replaced concurrently.
	ErrSuggestionNotFound = errors.New("friends: suggestion not found")
)

// ConnectionStatus describes the owner's relationship with a candidate user.
type ConnectionStatus string

const (
	StatusFriend       ConnectionStatus = "friend"
	StatusSuggested    ConnectionStatus = "suggested"
	StatusNotConnected ConnectionStatus = "not_connected"
)

// FriendOption customises FriendService behaviour.
type FriendOption func(*FriendService)

// WithFriendClock injects a custom clock primarily for testing.
func WithFriendClock(clock func() time.Time) FriendOption {
	return func(s *FriendService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// FriendService owns the authoritative friend/suggestion relationship state.
// A candidate user is a member of at most one of {friend set, suggestion set};
// AcceptSuggestion moves a row between the two atomically.
type FriendService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewFriendService constructs a FriendService with the provided dependencies.
func NewFriendService(db *gorm.DB, opts ...FriendOption) (*FriendService, error) {
	if db == nil {
		return nil, errors.New("friend service: db is required")
	}

	service := &FriendService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// AcceptSuggestion promotes a suggestion into the friend set. The suggestion
// row is deleted and the friend row created in one transaction so no reader
// observes the candidate in both sets.
func (s *FriendService) AcceptSuggestion(ctx context.Context, ownerID, suggestionID string) (*models.Friend, error) {
	var friend models.Friend

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var suggestion models.FriendSuggestion
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&suggestion, "id = ? AND owner_id = ?", suggestionID, ownerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSuggestionNotFound
		}
		if err != nil {
			return err
		}

		result := tx.Delete(&models.FriendSuggestion{}, "id = ?", suggestion.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSuggestionNotFound // removed concurrently
		}

		friend = models.Friend{
			OwnerID:        ownerID,
			UserID:         suggestion.CandidateUserID,
			Name:           suggestion.Name,
			FriendshipDate: s.now(),
		}
		return tx.Create(&friend).Error
	})
	if err != nil {
		if errors.Is(err, ErrSuggestionNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("friend service: accept suggestion: %w", err)
	}

	return &friend, nil
}

// RemoveFriend deletes a friend edge. Removal is an explicit user action and
// idempotent: removing an already-removed friend is a no-op.
func (s *FriendService) RemoveFriend(ctx context.Context, ownerID, friendID string) error {
	err := s.db.WithContext(ctx).
		Delete(&models.Friend{}, "id = ? AND owner_id = ?", friendID, ownerID).Error
	if err != nil {
		return fmt.Errorf("friend service: remove friend: %w", err)
	}
	return nil
}

// ToggleFavorite flips the favourite flag on a single friend record.
func (s *FriendService) ToggleFavorite(ctx context.Context, ownerID, friendID string) (*models.Friend, error) {
	var friend models.Friend

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := lockFriend(tx, ownerID, friendID)
		if err != nil {
			return err
		}

		if err := tx.Model(loaded).
			UpdateColumn("is_favorite", !loaded.IsFavorite).Error; err != nil {
			return err
		}

		loaded.IsFavorite = !loaded.IsFavorite
		friend = *loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrFriendNotFound) {
			return nil, ErrFriendNotFound
		}
		return nil, fmt.Errorf("friend service: toggle favorite: %w", err)
	}

	return &friend, nil
}

// RecordInteraction stamps the last-interaction time on a friend record.
func (s *FriendService) RecordInteraction(ctx context.Context, ownerID, friendID string) error {
	return s.updateFriendColumn(ctx, ownerID, friendID, "record interaction", map[string]any{
		"last_interaction_date": s.now(),
	})
}

// IncrementPolledCount bumps the owner-polled-this-friend counter.
func (s *FriendService) IncrementPolledCount(ctx context.Context, ownerID, friendID string) error {
	return s.updateFriendColumn(ctx, ownerID, friendID, "increment polled count", map[string]any{
		"polled_count": gorm.Expr("polled_count + ?", 1),
	})
}

// IncrementReceivedPollCount bumps the friend-polled-the-owner counter.
func (s *FriendService) IncrementReceivedPollCount(ctx context.Context, ownerID, friendID string) error {
	return s.updateFriendColumn(ctx, ownerID, friendID, "increment received poll count", map[string]any{
		"received_poll_count": gorm.Expr("received_poll_count + ?", 1),
	})
}

// updateFriendColumn applies a narrow column update, surfacing ErrFriendNotFound
// when the id is unknown. Counter updates are commutative so concurrent calls
// on the same id simply serialise at the database.
func (s *FriendService) updateFriendColumn(ctx context.Context, ownerID, friendID, op string, updates map[string]any) error {
	result := s.db.WithContext(ctx).Model(&models.Friend{}).
		Where("id = ? AND owner_id = ?", friendID, ownerID).
		UpdateColumns(updates)
	if result.Error != nil {
		return fmt.Errorf("friend service: %s: %w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFriendNotFound
	}
	return nil
}

// Status reports whether a candidate is a friend, currently suggested, or
// unknown to the owner.
func (s *FriendService) Status(ctx context.Context, ownerID, candidateUserID string) (ConnectionStatus, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Friend{}).
		Where("owner_id = ? AND user_id = ?", ownerID, candidateUserID).
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("friend service: status: %w", err)
	}
	if count > 0 {
		return StatusFriend, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.FriendSuggestion{}).
		Where("owner_id = ? AND candidate_user_id = ?", ownerID, candidateUserID).
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("friend service: status: %w", err)
	}
	if count > 0 {
		return StatusSuggested, nil
	}

	return StatusNotConnected, nil
}

// Search returns the owner's friends whose name or username contains the
// query, case-insensitively. An empty query returns the full set.
func (s *FriendService) Search(ctx context.Context, ownerID, query string) ([]models.Friend, error) {
	scope := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC")

	query = strings.TrimSpace(query)
	if query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		scope = scope.Where("LOWER(name) LIKE ? OR LOWER(username) LIKE ?", pattern, pattern)
	}

	var friends []models.Friend
	if err := scope.Find(&friends).Error; err != nil {
		return nil, fmt.Errorf("friend service: search: %w", err)
	}
	return friends, nil
}

// FriendUserIDs returns the set of user ids the owner is already connected to.
func (s *FriendService) FriendUserIDs(ctx context.Context, ownerID string) (map[string]struct{}, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Friend{}).
		Where("owner_id = ?", ownerID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("friend service: friend user ids: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// ReplaceSuggestions swaps the owner's stored suggestion set for the provided
// ranked list in one transaction.
func (s *FriendService) ReplaceSuggestions(ctx context.Context, ownerID string, ranked []models.FriendSuggestion) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.FriendSuggestion{}, "owner_id = ?", ownerID).Error; err != nil {
			return err
		}
		if len(ranked) == 0 {
			return nil
		}
		return tx.Create(&ranked).Error
	})
	if err != nil {
		return fmt.Errorf("friend service: replace suggestions: %w", err)
	}
	return nil
}

// ListSuggestions returns the stored suggestion set in ranked order.
func (s *FriendService) ListSuggestions(ctx context.Context, ownerID string) ([]models.FriendSuggestion, error) {
	var out []models.FriendSuggestion
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("match_score DESC, shared_friend_count DESC, candidate_user_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("friend service: list suggestions: %w", err)
	}
	return out, nil
}

// DismissSuggestion removes a single suggestion from the owner's list.
func (s *FriendService) DismissSuggestion(ctx context.Context, ownerID, suggestionID string) error {
	result := s.db.WithContext(ctx).
		Delete(&models.FriendSuggestion{}, "id = ? AND owner_id = ?", suggestionID, ownerID)
	if result.Error != nil {
		return fmt.Errorf("friend service: dismiss suggestion: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSuggestionNotFound
	}
	return nil
}

func lockFriend(tx *gorm.DB, ownerID, friendID string) (*models.Friend, error) {
	var friend models.Friend
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&friend, "id = ? AND owner_id = ?", friendID, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFriendNotFound
	}
	if err != nil {
		return nil, err
	}
	return &friend, nil
}
