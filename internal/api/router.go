package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/lumoapp/lumo-growth/internal/app"
	iauth "github.com/lumoapp/lumo-growth/internal/auth"
	"github.com/lumoapp/lumo-growth/internal/contacts"
	"github.com/lumoapp/lumo-growth/internal/handlers"
	"github.com/lumoapp/lumo-growth/internal/middleware"
	"github.com/lumoapp/lumo-growth/internal/services"
)

// Services bundles the domain services the router hands to handlers.
type Services struct {
	Friends     *services.FriendService
	Suggestions *services.SuggestionService
	Invites     *services.InviteService
	Lifecycle   *services.LifecycleService
	Quota       *services.QuotaService
	Rewards     *services.RewardService

	// RateStore backs the request limiter. Nil disables limiting even when
	// the config enables it.
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svcs.Friends == nil || svcs.Suggestions == nil || svcs.Invites == nil ||
		svcs.Lifecycle == nil || svcs.Quota == nil || svcs.Rewards == nil {
		return nil, fmt.Errorf("all domain services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(svcs.RateStore, cfg.Server.RateLimit.MaxRequests, cfg.Server.RateLimit.Window))
	}

	// Health endpoints (public)
	r.GET("/health", handlers.Health(db))
	r.GET("/health/live", handlers.HealthLive)

	inviteHandler := handlers.NewInviteHandler(svcs.Invites, svcs.Lifecycle, svcs.Quota, cfg.Growth.InstallURL, contacts.Options{
		DefaultCountryCode: cfg.Growth.DefaultCountryCode,
		TrunkPrefix:        cfg.Growth.TrunkPrefix,
	})

	// Tracked invite links are opened from SMS on the recipient's phone, so
	// they sit outside the authenticated API surface.
	r.GET("/i/:token", inviteHandler.Click)

	requireAuth := middleware.Auth(jwt)
	api := r.Group("/api")
	api.Use(requireAuth)

	registerFriendRoutes(api, handlers.NewFriendHandler(svcs.Friends))
	registerSuggestionRoutes(api, handlers.NewSuggestionHandler(svcs.Suggestions))
	registerInvitationRoutes(api, inviteHandler)
	registerWalletRoutes(api, handlers.NewWalletHandler(svcs.Quota, svcs.Rewards))

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
