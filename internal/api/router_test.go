package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lumoapp/lumo-growth/internal/app"
	iauth "github.com/lumoapp/lumo-growth/internal/auth"
	"github.com/lumoapp/lumo-growth/internal/database"
	"github.com/lumoapp/lumo-growth/internal/services"
	"github.com/lumoapp/lumo-growth/internal/suggestions"
	"github.com/lumoapp/lumo-growth/pkg/sms"
)

func newTestRouter(t *testing.T) (*gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:router_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateAndSeed(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "router-test-secret",
		Issuer:         "lumo",
		AccessTokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	quota, err := services.NewQuotaService(db)
	require.NoError(t, err)
	invites, err := services.NewInviteService(db, quota, sms.NewDisabledSender())
	require.NoError(t, err)
	rewards, err := services.NewRewardService(db, quota, nil)
	require.NoError(t, err)
	lifecycle, err := services.NewLifecycleService(db, invites, rewards)
	require.NoError(t, err)
	friends, err := services.NewFriendService(db)
	require.NoError(t, err)
	suggestionSvc, err := services.NewSuggestionService(friends, suggestions.NewGraphSource(db), suggestions.NewRanker())
	require.NoError(t, err)

	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)

	router, err := NewRouter(db, jwtSvc, cfg, Services{
		Friends:     friends,
		Suggestions: suggestionSvc,
		Invites:     invites,
		Lifecycle:   lifecycle,
		Quota:       quota,
		Rewards:     rewards,
	})
	require.NoError(t, err)

	return router, jwtSvc
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	router, jwtSvc := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/health/live", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Protected endpoints without a token are rejected.
	for _, path := range []string{"/api/friends", "/api/suggestions", "/api/invitations", "/api/wallet"} {
		w = httptest.NewRecorder()
		req, _ = http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	// And accepted with one.
	token, err := jwtSvc.GenerateAccessToken("user-1")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/friends", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouterTrackedLinkRedirectsWithoutAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/i/unknown-token", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://lumo.app/get", w.Header().Get("Location"))
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouterUnknownRouteReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nope", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
