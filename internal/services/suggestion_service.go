package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lumoapp/lumo-growth/internal/cache"
	"github.com/lumoapp/lumo-growth/internal/contacts"
	"github.com/lumoapp/lumo-growth/internal/models"
	"github.com/lumoapp/lumo-growth/internal/suggestions"
	"github.com/lumoapp/lumo-growth/pkg/logger"
	"github.com/lumoapp/lumo-growth/pkg/metrics"
)

const suggestionCacheTTL = 5 * time.Minute

// SuggestionOption customises SuggestionService behaviour.
type SuggestionOption func(*SuggestionService)

// WithSuggestionCache enables cached suggestion list reads.
func WithSuggestionCache(store cache.Store) SuggestionOption {
	return func(s *SuggestionService) {
		s.cache = store
	}
}

// WithNormalizeOptions overrides the contact normalisation defaults.
func WithNormalizeOptions(opts contacts.Options) SuggestionOption {
	return func(s *SuggestionService) {
		s.normalize = opts
	}
}

// SuggestionService runs the contact-upload refresh pipeline: normalise the
// raw address book, gather match signals, rank, and replace the owner's
// stored suggestion set. Reads serve a short-lived cached snapshot.
type SuggestionService struct {
	friends   *FriendService
	source    suggestions.SignalSource
	ranker    *suggestions.Ranker
	cache     cache.Store
	normalize contacts.Options
	log       *zap.Logger
}

// NewSuggestionService constructs a SuggestionService with the provided dependencies.
func NewSuggestionService(friends *FriendService, source suggestions.SignalSource, ranker *suggestions.Ranker, opts ...SuggestionOption) (*SuggestionService, error) {
	if friends == nil {
		return nil, errors.New("suggestion service: friend service is required")
	}
	if source == nil {
		return nil, errors.New("suggestion service: signal source is required")
	}
	if ranker == nil {
		ranker = suggestions.NewRanker()
	}

	service := &SuggestionService{
		friends:   friends,
		source:    source,
		ranker:    ranker,
		normalize: contacts.DefaultOptions(),
		log:       logger.WithModule("suggestions"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Refresh rebuilds the owner's suggestion set from a raw contact upload and
// returns the new ranking. Existing friends never reappear as suggestions;
// the previous set is replaced wholesale so removed contacts drop out.
func (s *SuggestionService) Refresh(ctx context.Context, ownerID string, raw []contacts.RawContact) ([]models.FriendSuggestion, error) {
	timer := prometheus.NewTimer(metrics.SuggestionRefreshDuration)
	defer timer.ObserveDuration()

	normalised := contacts.Normalize(raw, s.normalize)

	signals, err := s.source.Signals(ctx, ownerID, normalised)
	if err != nil {
		return nil, fmt.Errorf("suggestion service: gather signals: %w", err)
	}

	friendIDs, err := s.friends.FriendUserIDs(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("suggestion service: load friend set: %w", err)
	}

	ranked := s.ranker.Rank(ownerID, signals, func(candidateUserID string) bool {
		if candidateUserID == ownerID {
			return true
		}
		_, isFriend := friendIDs[candidateUserID]
		return isFriend
	})

	if err := s.friends.ReplaceSuggestions(ctx, ownerID, ranked); err != nil {
		return nil, fmt.Errorf("suggestion service: store suggestions: %w", err)
	}

	s.invalidate(ctx, ownerID)
	s.log.Info("suggestions refreshed",
		zap.String("owner_id", ownerID),
		zap.Int("contacts", len(normalised)),
		zap.Int("suggestions", len(ranked)),
	)
	return ranked, nil
}

// List returns the owner's current ranked suggestions, serving a cached
// snapshot when one is fresh.
func (s *SuggestionService) List(ctx context.Context, ownerID string) ([]models.FriendSuggestion, error) {
	key := suggestionCacheKey(ownerID)

	if s.cache != nil {
		if payload, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var cached []models.FriendSuggestion
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
			s.invalidate(ctx, ownerID)
		}
	}

	listed, err := s.friends.ListSuggestions(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(listed); err == nil {
			if err := s.cache.Set(ctx, key, payload, suggestionCacheTTL); err != nil {
				s.log.Debug("suggestion cache write failed", zap.Error(err))
			}
		}
	}

	return listed, nil
}

// Dismiss removes one suggestion from the owner's list. Accepting a
// suggestion invalidates the snapshot the same way via the friend service.
func (s *SuggestionService) Dismiss(ctx context.Context, ownerID, suggestionID string) error {
	if err := s.friends.DismissSuggestion(ctx, ownerID, suggestionID); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

// Accept promotes a suggestion into a friendship and invalidates the snapshot.
func (s *SuggestionService) Accept(ctx context.Context, ownerID, suggestionID string) (*models.Friend, error) {
	friend, err := s.friends.AcceptSuggestion(ctx, ownerID, suggestionID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, ownerID)
	return friend, nil
}

func (s *SuggestionService) invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, suggestionCacheKey(ownerID)); err != nil {
		s.log.Debug("suggestion cache invalidate failed", zap.Error(err))
	}
}

func suggestionCacheKey(ownerID string) string {
	return "suggestions:" + ownerID
}
