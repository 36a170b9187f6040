package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lumoapp/lumo-growth/internal/handlers"
)

func registerWalletRoutes(api *gin.RouterGroup, handler *handlers.WalletHandler) {
	group := api.Group("/wallet")
	{
		group.GET("", handler.Balance)
		group.GET("/rewards", handler.Rewards)
	}
}
