package suggestions

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lumoapp/lumo-growth/internal/contacts"
)

// GraphSource derives match signals from the friend graph this service
// already stores. It covers friend-of-friend discovery and contact name
// matching; school and recent-join signals come from upstream sources that
// implement SignalSource and can be layered on top.
type GraphSource struct {
	db *gorm.DB
}

// NewGraphSource builds a SignalSource over the local friend graph.
func NewGraphSource(db *gorm.DB) *GraphSource {
	return &GraphSource{db: db}
}

type graphCandidate struct {
	UserID      string
	Name        string
	MutualCount int
}

// Signals finds candidates two hops away in the friend graph. The mutual
// friend count is the number of the requesting user's friends that also list
// the candidate.
func (s *GraphSource) Signals(ctx context.Context, userID string, candidates []contacts.Contact) ([]Signal, error) {
	var friendIDs []string
	if err := s.db.WithContext(ctx).
		Table("friends").
		Where("owner_id = ?", userID).
		Pluck("user_id", &friendIDs).Error; err != nil {
		return nil, fmt.Errorf("graph source: load friends: %w", err)
	}
	if len(friendIDs) == 0 {
		return nil, nil
	}

	var rows []graphCandidate
	if err := s.db.WithContext(ctx).
		Table("friends").
		Select("user_id, MAX(name) AS name, COUNT(DISTINCT owner_id) AS mutual_count").
		Where("owner_id IN ?", friendIDs).
		Where("user_id <> ?", userID).
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("graph source: find candidates: %w", err)
	}

	names := make(map[string]struct{}, len(candidates))
	for _, contact := range candidates {
		if name := strings.ToLower(strings.TrimSpace(contact.Name)); name != "" {
			names[name] = struct{}{}
		}
	}

	signals := make([]Signal, 0, len(rows))
	for _, row := range rows {
		_, inContacts := names[strings.ToLower(row.Name)]
		signals = append(signals, Signal{
			CandidateUserID:   row.UserID,
			Name:              row.Name,
			MutualFriendCount: row.MutualCount,
			InContacts:        inContacts,
		})
	}
	return signals, nil
}
