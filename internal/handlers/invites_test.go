package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lumoapp/lumo-growth/internal/contacts"
	"github.com/lumoapp/lumo-growth/internal/database"
	"github.com/lumoapp/lumo-growth/internal/middleware"
	"github.com/lumoapp/lumo-growth/internal/models"
	"github.com/lumoapp/lumo-growth/internal/services"
	"github.com/lumoapp/lumo-growth/pkg/sms"
)

func newInviteHandlerFixture(t *testing.T, normalize contacts.Options) (*gin.Engine, *gorm.DB, *[]sms.Message) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:handlers_invites_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateAndSeed(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, model := range []any{
			&models.Invitation{}, &models.InviteWallet{}, &models.QuotaReservation{}, &models.FunnelEvent{},
		} {
			_ = db.Where("1 = 1").Delete(model).Error
		}
		_ = sqlDB.Close()
	})

	var sent []sms.Message
	channel := sms.SenderFunc(func(_ context.Context, msg sms.Message) error {
		sent = append(sent, msg)
		return nil
	})

	quota, err := services.NewQuotaService(db)
	require.NoError(t, err)
	invites, err := services.NewInviteService(db, quota, channel, services.WithRetryPolicy(1, 0))
	require.NoError(t, err)
	rewards, err := services.NewRewardService(db, quota, nil)
	require.NoError(t, err)
	lifecycle, err := services.NewLifecycleService(db, invites, rewards)
	require.NoError(t, err)

	handler := NewInviteHandler(invites, lifecycle, quota, "https://lumo.app/get", normalize)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserIDKey, "sender-1")
	})
	r.POST("/invitations", handler.Send)

	return r, db, &sent
}

func TestSendNormalizesPhoneWithConfiguredMarket(t *testing.T) {
	router, db, sent := newInviteHandlerFixture(t, contacts.Options{
		DefaultCountryCode: "+44",
		TrunkPrefix:        "0",
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/invitations",
		strings.NewReader(`{"name":"Robin Hood","phone_number":"07911 123-456"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, *sent, 1)
	require.Equal(t, "+447911123456", (*sent)[0].To)

	var invitation models.Invitation
	require.NoError(t, db.Take(&invitation, "sender_id = ?", "sender-1").Error)
	require.Equal(t, "+447911123456", invitation.RecipientPhone)
}

func TestSendFallsBackToDefaultMarketWhenUnconfigured(t *testing.T) {
	router, _, sent := newInviteHandlerFixture(t, contacts.Options{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/invitations",
		strings.NewReader(`{"phone_number":"(555) 000-1111"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, *sent, 1)
	require.Equal(t, "+15550001111", (*sent)[0].To)
}

func TestSendRejectsUnusablePhone(t *testing.T) {
	router, db, sent := newInviteHandlerFixture(t, contacts.DefaultOptions())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/invitations",
		strings.NewReader(`{"phone_number":"---"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, *sent)

	var count int64
	require.NoError(t, db.Model(&models.Invitation{}).Count(&count).Error)
	require.Zero(t, count)
}
