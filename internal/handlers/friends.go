package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumoapp/lumo-growth/internal/services"
	"github.com/lumoapp/lumo-growth/pkg/errors"
	"github.com/lumoapp/lumo-growth/pkg/response"
)

// FriendHandler exposes friend list reads and the explicit relationship
// mutations (remove, favourite, interaction counters).
type FriendHandler struct {
	friends *services.FriendService
}

// NewFriendHandler constructs a friend handler.
func NewFriendHandler(friends *services.FriendService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

// List returns the current user's friends, optionally filtered by the q query.
func (h *FriendHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	friends, err := h.friends.Search(requestContext(c), userID, c.Query("q"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.List(c, friends, len(friends))
}

// Remove deletes a friend edge. Removing twice succeeds.
func (h *FriendHandler) Remove(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	if err := h.friends.RemoveFriend(requestContext(c), userID, c.Param("id")); err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// ToggleFavorite flips the favourite marker on a friend.
func (h *FriendHandler) ToggleFavorite(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	friend, err := h.friends.ToggleFavorite(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, friend)
}

type interactionPayload struct {
	Kind string `json:"kind" validate:"required,oneof=interaction polled received_poll"`
}

// RecordInteraction updates interaction bookkeeping on a friend edge.
func (h *FriendHandler) RecordInteraction(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	var payload interactionPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	ctx := requestContext(c)
	friendID := c.Param("id")

	var err error
	switch payload.Kind {
	case "polled":
		err = h.friends.IncrementPolledCount(ctx, userID, friendID)
	case "received_poll":
		err = h.friends.IncrementReceivedPollCount(ctx, userID, friendID)
	default:
		err = h.friends.RecordInteraction(ctx, userID, friendID)
	}
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"recorded": true})
}

// Status reports the relationship between the current user and a candidate.
func (h *FriendHandler) Status(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	status, err := h.friends.Status(requestContext(c), userID, c.Param("userId"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": status})
}
