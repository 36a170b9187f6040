package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lumoapp/lumo-growth/internal/handlers"
)

func registerFriendRoutes(api *gin.RouterGroup, handler *handlers.FriendHandler) {
	group := api.Group("/friends")
	{
		group.GET("", handler.List)
		group.DELETE("/:id", handler.Remove)
		group.POST("/:id/favorite", handler.ToggleFavorite)
		group.POST("/:id/interactions", handler.RecordInteraction)
	}

	api.GET("/relationships/:userId", handler.Status)
}
