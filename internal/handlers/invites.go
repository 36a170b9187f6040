package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumoapp/lumo-growth/internal/contacts"
	"github.com/lumoapp/lumo-growth/internal/models"
	"github.com/lumoapp/lumo-growth/internal/services"
	"github.com/lumoapp/lumo-growth/pkg/errors"
	"github.com/lumoapp/lumo-growth/pkg/response"
)

// InviteHandler exposes invitation dispatch and the lifecycle callbacks.
type InviteHandler struct {
	invites    *services.InviteService
	lifecycle  *services.LifecycleService
	quota      *services.QuotaService
	installURL string
	normalize  contacts.Options
}

// NewInviteHandler constructs an invite handler. installURL is where a click
// on a tracked link is forwarded, typically the app-store landing page;
// normalize carries the deployment's phone canonicalisation rules so invite
// payloads and contact uploads agree on number formats.
func NewInviteHandler(invites *services.InviteService, lifecycle *services.LifecycleService, quota *services.QuotaService, installURL string, normalize contacts.Options) *InviteHandler {
	if normalize.DefaultCountryCode == "" {
		normalize = contacts.DefaultOptions()
	}
	return &InviteHandler{
		invites:    invites,
		lifecycle:  lifecycle,
		quota:      quota,
		installURL: installURL,
		normalize:  normalize,
	}
}

type sendInvitePayload struct {
	Name        string `json:"name" validate:"max=128"`
	PhoneNumber string `json:"phone_number" validate:"required,max=32"`
	Message     string `json:"message" validate:"max=480"`
}

type invitationDTO struct {
	*models.Invitation
	Expired bool `json:"expired"`
}

// Send dispatches one invitation to a contact.
func (h *InviteHandler) Send(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	var payload sendInvitePayload
	if !bindAndValidate(c, &payload) {
		return
	}

	contact := contacts.Contact{
		Name:        payload.Name,
		PhoneNumber: contacts.NormalizePhone(payload.PhoneNumber, h.normalize),
	}

	invitation, err := h.invites.SendInvite(requestContext(c), userID, contact, payload.Message)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusCreated, invitation)
}

// List returns the current user's invitations with derived expiry state.
func (h *InviteHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	invitations, err := h.invites.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	now := timeNow()
	out := make([]invitationDTO, 0, len(invitations))
	for i := range invitations {
		out = append(out, invitationDTO{
			Invitation: &invitations[i],
			Expired:    invitations[i].IsExpired(now),
		})
	}

	response.List(c, out, len(out))
}

// Remind re-sends an invitation message within the reminder budget.
func (h *InviteHandler) Remind(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	invitation, err := h.lifecycle.SendReminder(requestContext(c), userID, c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, invitation)
}

// Click is the public tracked-link endpoint: it attributes the click and
// forwards the visitor to the install landing page. Attribution problems
// never break the redirect.
func (h *InviteHandler) Click(c *gin.Context) {
	_, _ = h.lifecycle.RecordClick(requestContext(c), c.Param("token"))
	c.Redirect(http.StatusFound, h.installURL)
}

// Install is the backend callback fired when an invited user finishes signup.
func (h *InviteHandler) Install(c *gin.Context) {
	invitation, err := h.lifecycle.RecordInstall(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, invitation)
}
