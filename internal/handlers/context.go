package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumoapp/lumo-growth/internal/middleware"
)

// timeNow is swapped out in tests.
var timeNow = time.Now

func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}
