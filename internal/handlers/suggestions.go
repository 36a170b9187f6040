package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumoapp/lumo-growth/internal/contacts"
	"github.com/lumoapp/lumo-growth/internal/services"
	"github.com/lumoapp/lumo-growth/pkg/errors"
	"github.com/lumoapp/lumo-growth/pkg/response"
)

// SuggestionHandler exposes the contact upload / ranked suggestion surface.
type SuggestionHandler struct {
	suggestions *services.SuggestionService
}

// NewSuggestionHandler constructs a suggestion handler.
func NewSuggestionHandler(suggestions *services.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestions: suggestions}
}

type rawContactPayload struct {
	GivenName    string   `json:"given_name"`
	FamilyName   string   `json:"family_name"`
	PhoneNumbers []string `json:"phone_numbers"`
	Organization string   `json:"organization"`
	ThumbnailURL string   `json:"thumbnail_url"`
}

type refreshPayload struct {
	Contacts []rawContactPayload `json:"contacts" validate:"max=5000"`
}

// Refresh rebuilds the user's suggestions from an uploaded address book
// snapshot. An empty contact list is valid and clears contact-driven matches.
func (h *SuggestionHandler) Refresh(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	var payload refreshPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	raw := make([]contacts.RawContact, 0, len(payload.Contacts))
	for _, record := range payload.Contacts {
		raw = append(raw, contacts.RawContact{
			GivenName:    record.GivenName,
			FamilyName:   record.FamilyName,
			PhoneNumbers: record.PhoneNumbers,
			Organization: record.Organization,
			ThumbnailURL: record.ThumbnailURL,
		})
	}

	ranked, err := h.suggestions.Refresh(requestContext(c), userID, raw)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.List(c, ranked, len(ranked))
}

// List returns the user's current ranked suggestions.
func (h *SuggestionHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	ranked, err := h.suggestions.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.List(c, ranked, len(ranked))
}

// Accept promotes a suggestion into the friend list.
func (h *SuggestionHandler) Accept(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	friend, err := h.suggestions.Accept(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusCreated, friend)
}

// Dismiss removes a suggestion without befriending.
func (h *SuggestionHandler) Dismiss(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	if err := h.suggestions.Dismiss(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"dismissed": true})
}
