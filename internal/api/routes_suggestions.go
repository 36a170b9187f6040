package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lumoapp/lumo-growth/internal/handlers"
)

func registerSuggestionRoutes(api *gin.RouterGroup, handler *handlers.SuggestionHandler) {
	group := api.Group("/suggestions")
	{
		group.GET("", handler.List)
		group.POST("/refresh", handler.Refresh)
		group.POST("/:id/accept", handler.Accept)
		group.DELETE("/:id", handler.Dismiss)
	}
}
