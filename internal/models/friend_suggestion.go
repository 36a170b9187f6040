package models

// MatchReason categorises the signal that produced a suggestion.
type MatchReason string

const (
	MatchReasonSharedContacts MatchReason = "shared_contacts"
	MatchReasonFriendOfFriend MatchReason = "friend_of_friend"
	MatchReasonSameSchool     MatchReason = "same_school"
	MatchReasonContactMatch   MatchReason = "contact_match"
	MatchReasonRecentlyJoined MatchReason = "recently_joined"
)

// FriendSuggestion is a ranked, reason-annotated candidate for the owner to
// befriend. A candidate appears in at most one of {suggested, friend}; moving
// a suggestion into the friend set removes the suggestion row in the same
// transaction.
type FriendSuggestion struct {
	BaseModel

	OwnerID         string      `gorm:"type:uuid;not null;index;uniqueIndex:idx_suggestion_owner_candidate" json:"owner_id"`
	CandidateUserID string      `gorm:"type:uuid;not null;uniqueIndex:idx_suggestion_owner_candidate" json:"candidate_user_id"`
	Name            string      `gorm:"not null" json:"name"`
	SchoolID        *string     `json:"school_id,omitempty"`
	MatchScore      int         `gorm:"not null;index" json:"match_score"`
	MatchReason     MatchReason `gorm:"not null" json:"match_reason"`

	SharedFriendCount int `gorm:"not null;default:0" json:"shared_friend_count"`
}
