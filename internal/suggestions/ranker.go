package suggestions

import (
	"context"
	"sort"

	"github.com/lumoapp/lumo-growth/internal/contacts"
	"github.com/lumoapp/lumo-growth/internal/models"
)

// DefaultLimit caps the suggestion list when no override is configured.
const DefaultLimit = 100

// Signal carries the match information an external signal source knows about
// one candidate user relative to the requesting user.
type Signal struct {
	CandidateUserID    string
	Name               string
	SchoolID           *string
	SharedContactCount int
	MutualFriendCount  int
	SameSchool         bool
	InContacts         bool
	RecentlyJoined     bool
}

// SignalSource supplies match signals for a user's normalised contact set.
// Implementations live outside this module (social-graph service, school
// directory); errors propagate unchanged.
type SignalSource interface {
	Signals(ctx context.Context, userID string, candidates []contacts.Contact) ([]Signal, error)
}

// Scoring weights per match reason. The original product tuned these by
// experiment; the exact values are product decisions, the ordering contract
// (base + per-shared-friend bonus, mutually exclusive reasons) is not.
var weights = map[models.MatchReason]struct {
	base      int
	perFriend int
}{
	models.MatchReasonSharedContacts: {base: 60, perFriend: 8},
	models.MatchReasonFriendOfFriend: {base: 50, perFriend: 10},
	models.MatchReasonSameSchool:     {base: 40, perFriend: 5},
	models.MatchReasonContactMatch:   {base: 30, perFriend: 4},
	models.MatchReasonRecentlyJoined: {base: 20, perFriend: 2},
}

// reasonPrecedence breaks score ties between applicable reasons for a single
// candidate so reason assignment stays deterministic.
var reasonPrecedence = []models.MatchReason{
	models.MatchReasonSharedContacts,
	models.MatchReasonFriendOfFriend,
	models.MatchReasonSameSchool,
	models.MatchReasonContactMatch,
	models.MatchReasonRecentlyJoined,
}

// Ranker turns raw signals into an ordered, capped suggestion list.
type Ranker struct {
	limit int
}

// Option customises Ranker behaviour.
type Option func(*Ranker)

// WithLimit overrides the maximum suggestion list length.
func WithLimit(limit int) Option {
	return func(r *Ranker) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// NewRanker constructs a Ranker with the default cap.
func NewRanker(opts ...Option) *Ranker {
	ranker := &Ranker{limit: DefaultLimit}
	for _, opt := range opts {
		opt(ranker)
	}
	return ranker
}

// Rank scores the provided signals for ownerID, excluding candidates for which
// the exclude predicate returns true (existing friends and already-present
// suggestions). Output ordering is fully deterministic: match score
// descending, shared friend count descending, candidate id ascending.
func (r *Ranker) Rank(ownerID string, signals []Signal, exclude func(candidateUserID string) bool) []models.FriendSuggestion {
	out := make([]models.FriendSuggestion, 0, len(signals))
	picked := make(map[string]struct{}, len(signals))

	for _, signal := range signals {
		if signal.CandidateUserID == "" {
			continue
		}
		if _, dup := picked[signal.CandidateUserID]; dup {
			continue
		}
		if exclude != nil && exclude(signal.CandidateUserID) {
			continue
		}

		reason, score, ok := scoreSignal(signal)
		if !ok {
			continue
		}
		picked[signal.CandidateUserID] = struct{}{}

		out = append(out, models.FriendSuggestion{
			OwnerID:           ownerID,
			CandidateUserID:   signal.CandidateUserID,
			Name:              signal.Name,
			SchoolID:          signal.SchoolID,
			MatchScore:        score,
			MatchReason:       reason,
			SharedFriendCount: signal.MutualFriendCount,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		if out[i].SharedFriendCount != out[j].SharedFriendCount {
			return out[i].SharedFriendCount > out[j].SharedFriendCount
		}
		return out[i].CandidateUserID < out[j].CandidateUserID
	})

	if len(out) > r.limit {
		out = out[:r.limit]
	}
	return out
}

// scoreSignal assigns exactly one reason per candidate: the applicable
// category with the highest computed score, with a fixed precedence order
// breaking ties.
func scoreSignal(signal Signal) (models.MatchReason, int, bool) {
	var (
		bestReason models.MatchReason
		bestScore  = -1
	)

	for _, reason := range reasonPrecedence {
		if !applies(reason, signal) {
			continue
		}
		w := weights[reason]
		score := w.base + w.perFriend*signal.MutualFriendCount
		if score > bestScore {
			bestReason = reason
			bestScore = score
		}
	}

	if bestScore < 0 {
		return "", 0, false
	}
	return bestReason, bestScore, true
}

func applies(reason models.MatchReason, signal Signal) bool {
	switch reason {
	case models.MatchReasonSharedContacts:
		return signal.SharedContactCount > 0
	case models.MatchReasonFriendOfFriend:
		return signal.MutualFriendCount > 0
	case models.MatchReasonSameSchool:
		return signal.SameSchool
	case models.MatchReasonContactMatch:
		return signal.InContacts
	case models.MatchReasonRecentlyJoined:
		return signal.RecentlyJoined
	default:
		return false
	}
}
