package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))
	require.NotEmpty(t, base.ID)
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"friend", func() *BaseModel {
			f := &Friend{}
			return &f.BaseModel
		}},
		{"friend_suggestion", func() *BaseModel {
			s := &FriendSuggestion{}
			return &s.BaseModel
		}},
		{"invitation", func() *BaseModel {
			i := &Invitation{}
			return &i.BaseModel
		}},
		{"invite_wallet", func() *BaseModel {
			w := &InviteWallet{}
			return &w.BaseModel
		}},
		{"quota_reservation", func() *BaseModel {
			r := &QuotaReservation{}
			return &r.BaseModel
		}},
		{"reward_transaction", func() *BaseModel {
			r := &RewardTransaction{}
			return &r.BaseModel
		}},
		{"funnel_event", func() *BaseModel {
			e := &FunnelEvent{}
			return &e.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := tc.model()
			require.NoError(t, base.BeforeCreate(nil))
			require.NotEmpty(t, base.ID)
		})
	}
}

func TestInvitationExpiryIsDerived(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	invite := Invitation{Status: InvitationSent, ExpiresAt: created.Add(24 * time.Hour)}

	require.False(t, invite.IsExpired(created.Add(23*time.Hour)))
	require.True(t, invite.IsExpired(created.Add(25*time.Hour)))

	// Expiry is derived from the clock; the status column is untouched.
	require.Equal(t, InvitationSent, invite.Status)
}

func TestInvitationTerminalStates(t *testing.T) {
	for _, status := range []InvitationStatus{InvitationInstalled, InvitationExpired} {
		invite := Invitation{Status: status}
		require.True(t, invite.IsTerminal(), "expected %s to be terminal", status)
	}
	for _, status := range []InvitationStatus{InvitationSent, InvitationClicked} {
		invite := Invitation{Status: status}
		require.False(t, invite.IsTerminal(), "expected %s to be non-terminal", status)
	}
}

func TestInvitationCanRemind(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	invite := Invitation{Status: InvitationSent, ExpiresAt: now.Add(time.Hour)}
	require.True(t, invite.CanRemind(now))

	invite.ReminderCount = MaxReminders
	require.False(t, invite.CanRemind(now))

	invite.ReminderCount = 0
	invite.ExpiresAt = now.Add(-time.Minute)
	require.False(t, invite.CanRemind(now))
}
