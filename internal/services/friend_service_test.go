package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumoapp/lumo-growth/internal/models"
)

func seedSuggestion(t *testing.T, svc *FriendService, ownerID, candidateID, name string, score int) *models.FriendSuggestion {
	t.Helper()

	suggestion := &models.FriendSuggestion{
		OwnerID:           ownerID,
		CandidateUserID:   candidateID,
		Name:              name,
		MatchReason:       models.MatchReasonSharedContacts,
		MatchScore:        score,
		SharedFriendCount: 2,
	}
	require.NoError(t, svc.db.Create(suggestion).Error)
	return suggestion
}

func TestAcceptSuggestionMovesRowAtomically(t *testing.T) {
	db := openServiceTestDB(t)
	current := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	svc, err := NewFriendService(db, WithFriendClock(func() time.Time { return current }))
	require.NoError(t, err)

	suggestion := seedSuggestion(t, svc, "owner-1", "candidate-1", "Ana Perez", 84)

	friend, err := svc.AcceptSuggestion(context.Background(), "owner-1", suggestion.ID)
	require.NoError(t, err)
	require.Equal(t, "candidate-1", friend.UserID)
	require.Equal(t, "Ana Perez", friend.Name)
	require.True(t, friend.FriendshipDate.Equal(current))

	// The candidate is now in exactly one set.
	status, err := svc.Status(context.Background(), "owner-1", "candidate-1")
	require.NoError(t, err)
	require.Equal(t, StatusFriend, status)

	var count int64
	require.NoError(t, db.Model(&models.FriendSuggestion{}).
		Where("id = ?", suggestion.ID).Count(&count).Error)
	require.Zero(t, count)

	// Accepting again reports the suggestion gone.
	_, err = svc.AcceptSuggestion(context.Background(), "owner-1", suggestion.ID)
	require.ErrorIs(t, err, ErrSuggestionNotFound)
}

func TestAcceptSuggestionScopedToOwner(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewFriendService(db)
	require.NoError(t, err)

	suggestion := seedSuggestion(t, svc, "owner-1", "candidate-1", "Ana", 50)

	_, err = svc.AcceptSuggestion(context.Background(), "owner-2", suggestion.ID)
	require.ErrorIs(t, err, ErrSuggestionNotFound)
}

func TestRemoveFriendIsIdempotent(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewFriendService(db)
	require.NoError(t, err)

	friend := &models.Friend{OwnerID: "owner-1", UserID: "user-2", Name: "Ben", FriendshipDate: time.Now()}
	require.NoError(t, db.Create(friend).Error)

	require.NoError(t, svc.RemoveFriend(context.Background(), "owner-1", friend.ID))
	require.NoError(t, svc.RemoveFriend(context.Background(), "owner-1", friend.ID))

	status, err := svc.Status(context.Background(), "owner-1", "user-2")
	require.NoError(t, err)
	require.Equal(t, StatusNotConnected, status)
}

func TestToggleFavoriteFlips(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewFriendService(db)
	require.NoError(t, err)

	friend := &models.Friend{OwnerID: "owner-1", UserID: "user-2", Name: "Ben", FriendshipDate: time.Now()}
	require.NoError(t, db.Create(friend).Error)

	toggled, err := svc.ToggleFavorite(context.Background(), "owner-1", friend.ID)
	require.NoError(t, err)
	require.True(t, toggled.IsFavorite)

	toggled, err = svc.ToggleFavorite(context.Background(), "owner-1", friend.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsFavorite)

	_, err = svc.ToggleFavorite(context.Background(), "owner-1", "missing")
	require.ErrorIs(t, err, ErrFriendNotFound)
}

func TestInteractionCountersRequireExistingFriend(t *testing.T) {
	db := openServiceTestDB(t)
	current := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	svc, err := NewFriendService(db, WithFriendClock(func() time.Time { return current }))
	require.NoError(t, err)

	friend := &models.Friend{OwnerID: "owner-1", UserID: "user-2", Name: "Ben", FriendshipDate: current}
	require.NoError(t, db.Create(friend).Error)

	require.NoError(t, svc.IncrementPolledCount(context.Background(), "owner-1", friend.ID))
	require.NoError(t, svc.IncrementPolledCount(context.Background(), "owner-1", friend.ID))
	require.NoError(t, svc.IncrementReceivedPollCount(context.Background(), "owner-1", friend.ID))
	require.NoError(t, svc.RecordInteraction(context.Background(), "owner-1", friend.ID))

	var reloaded models.Friend
	require.NoError(t, db.Take(&reloaded, "id = ?", friend.ID).Error)
	require.Equal(t, 2, reloaded.PolledCount)
	require.Equal(t, 1, reloaded.ReceivedPollCount)
	require.NotNil(t, reloaded.LastInteractionDate)

	require.ErrorIs(t, svc.IncrementPolledCount(context.Background(), "owner-1", "missing"), ErrFriendNotFound)
	require.ErrorIs(t, svc.RecordInteraction(context.Background(), "owner-2", friend.ID), ErrFriendNotFound)
}

func TestSearchMatchesNameAndUsername(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewFriendService(db)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, db.Create(&models.Friend{OwnerID: "owner-1", UserID: "u1", Name: "Ana Perez", Username: "aperez", FriendshipDate: now}).Error)
	require.NoError(t, db.Create(&models.Friend{OwnerID: "owner-1", UserID: "u2", Name: "Ben Ortiz", Username: "bortiz", FriendshipDate: now}).Error)
	require.NoError(t, db.Create(&models.Friend{OwnerID: "owner-2", UserID: "u3", Name: "Ana Smith", Username: "asmith", FriendshipDate: now}).Error)

	results, err := svc.Search(context.Background(), "owner-1", "ANA")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Ana Perez", results[0].Name)

	results, err = svc.Search(context.Background(), "owner-1", "ortiz")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "u2", results[0].UserID)

	results, err = svc.Search(context.Background(), "owner-1", "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Ana Perez", results[0].Name)
	require.Equal(t, "Ben Ortiz", results[1].Name)
}

func TestStatusCoversAllStates(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewFriendService(db)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Friend{OwnerID: "owner-1", UserID: "friend-user", Name: "F", FriendshipDate: time.Now()}).Error)
	seedSuggestion(t, svc, "owner-1", "suggested-user", "S", 40)

	status, err := svc.Status(context.Background(), "owner-1", "friend-user")
	require.NoError(t, err)
	require.Equal(t, StatusFriend, status)

	status, err = svc.Status(context.Background(), "owner-1", "suggested-user")
	require.NoError(t, err)
	require.Equal(t, StatusSuggested, status)

	status, err = svc.Status(context.Background(), "owner-1", "stranger")
	require.NoError(t, err)
	require.Equal(t, StatusNotConnected, status)
}

func TestReplaceSuggestionsSwapsSet(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewFriendService(db)
	require.NoError(t, err)

	seedSuggestion(t, svc, "owner-1", "old-candidate", "Old", 30)
	seedSuggestion(t, svc, "owner-2", "kept-candidate", "Kept", 30)

	ranked := []models.FriendSuggestion{
		{OwnerID: "owner-1", CandidateUserID: "new-a", Name: "A", MatchReason: models.MatchReasonSharedContacts, MatchScore: 84, SharedFriendCount: 3},
		{OwnerID: "owner-1", CandidateUserID: "new-b", Name: "B", MatchReason: models.MatchReasonSameSchool, MatchScore: 40},
	}
	require.NoError(t, svc.ReplaceSuggestions(context.Background(), "owner-1", ranked))

	listed, err := svc.ListSuggestions(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "new-a", listed[0].CandidateUserID)
	require.Equal(t, "new-b", listed[1].CandidateUserID)

	// Another owner's suggestions are untouched.
	other, err := svc.ListSuggestions(context.Background(), "owner-2")
	require.NoError(t, err)
	require.Len(t, other, 1)

	// Replacing with nothing clears the set.
	require.NoError(t, svc.ReplaceSuggestions(context.Background(), "owner-1", nil))
	listed, err = svc.ListSuggestions(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestDismissSuggestion(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewFriendService(db)
	require.NoError(t, err)

	suggestion := seedSuggestion(t, svc, "owner-1", "candidate-1", "Ana", 50)

	require.NoError(t, svc.DismissSuggestion(context.Background(), "owner-1", suggestion.ID))
	require.ErrorIs(t, svc.DismissSuggestion(context.Background(), "owner-1", suggestion.ID), ErrSuggestionNotFound)
}

func TestFriendUserIDs(t *testing.T) {
	db := openServiceTestDB(t)

	svc, err := NewFriendService(db)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, db.Create(&models.Friend{OwnerID: "owner-1", UserID: "u1", Name: "A", FriendshipDate: now}).Error)
	require.NoError(t, db.Create(&models.Friend{OwnerID: "owner-1", UserID: "u2", Name: "B", FriendshipDate: now}).Error)
	require.NoError(t, db.Create(&models.Friend{OwnerID: "owner-2", UserID: "u3", Name: "C", FriendshipDate: now}).Error)

	set, err := svc.FriendUserIDs(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.Contains(t, set, "u1")
	require.Contains(t, set, "u2")
}
