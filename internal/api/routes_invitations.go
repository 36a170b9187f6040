package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lumoapp/lumo-growth/internal/handlers"
)

func registerInvitationRoutes(api *gin.RouterGroup, handler *handlers.InviteHandler) {
	group := api.Group("/invitations")
	{
		group.GET("", handler.List)
		group.POST("", handler.Send)
		group.POST("/:id/remind", handler.Remind)

		// Fired by the signup pipeline once an invited user finishes
		// registration, authenticated with a service account token.
		group.POST("/:id/install", handler.Install)
	}
}
