package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lumoapp/lumo-growth/internal/cache"
	"github.com/lumoapp/lumo-growth/internal/models"
	"github.com/lumoapp/lumo-growth/internal/services"
	"github.com/lumoapp/lumo-growth/pkg/sms"
)

func openMaintenanceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:maintenance_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Invitation{},
		&models.InviteWallet{},
		&models.QuotaReservation{},
		&models.RewardTransaction{},
		&models.FunnelEvent{},
		&models.CacheEntry{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, model := range []any{
			&models.Invitation{}, &models.InviteWallet{}, &models.QuotaReservation{},
			&models.RewardTransaction{}, &models.FunnelEvent{}, &models.CacheEntry{},
		} {
			_ = db.Where("1 = 1").Delete(model).Error
		}
		_ = sqlDB.Close()
	})

	return db
}

func TestRunOnceSweepsAllMaintenanceTasks(t *testing.T) {
	db := openMaintenanceTestDB(t)
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	quota, err := services.NewQuotaService(db, services.WithQuotaClock(clock))
	require.NoError(t, err)
	invites, err := services.NewInviteService(db, quota, sms.NewDisabledSender())
	require.NoError(t, err)
	rewards, err := services.NewRewardService(db, quota, nil)
	require.NoError(t, err)
	lifecycle, err := services.NewLifecycleService(db, invites, rewards, services.WithLifecycleClock(clock))
	require.NoError(t, err)
	store := cache.NewDatabaseStore(db)

	// Overdue invitation, stale reservation, ancient funnel event, expired
	// cache entry.
	overdue := &models.Invitation{
		SenderID:       "sender-1",
		RecipientPhone: "+15550001111",
		Message:        "hey",
		TrackingToken:  "tok-overdue",
		Status:         models.InvitationSent,
		ExpiresAt:      current.Add(-time.Hour),
	}
	require.NoError(t, db.Create(overdue).Error)

	_, err = quota.TryReserve(context.Background(), "sender-2")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.QuotaReservation{}).
		Where("sender_id = ?", "sender-2").
		UpdateColumn("expires_at", current.Add(-time.Minute)).Error)

	oldEvent := &models.FunnelEvent{
		BaseModel: models.BaseModel{CreatedAt: current.AddDate(0, 0, -120)},
		UserID:    "sender-1",
		Kind:      models.FunnelEventSent,
	}
	require.NoError(t, db.Create(oldEvent).Error)
	require.NoError(t, store.Set(context.Background(), "stale", []byte("x"), time.Nanosecond))

	cleaner := NewCleaner(db, lifecycle, quota, store, WithNow(clock))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var reloaded models.Invitation
	require.NoError(t, db.Take(&reloaded, "id = ?", overdue.ID).Error)
	require.Equal(t, models.InvitationExpired, reloaded.Status)

	var reservation models.QuotaReservation
	require.NoError(t, db.Take(&reservation, "sender_id = ?", "sender-2").Error)
	require.Equal(t, models.ReservationReleased, reservation.State)

	var funnelCount int64
	require.NoError(t, db.Model(&models.FunnelEvent{}).
		Where("id = ?", oldEvent.ID).Count(&funnelCount).Error)
	require.Zero(t, funnelCount)

	_, ok, err := store.Get(context.Background(), "stale")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPruneFunnelEventsKeepsRecent(t *testing.T) {
	db := openMaintenanceTestDB(t)
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	old := &models.FunnelEvent{
		BaseModel: models.BaseModel{CreatedAt: current.AddDate(0, 0, -120)},
		UserID:    "u1",
		Kind:      models.FunnelEventSent,
	}
	recent := &models.FunnelEvent{
		BaseModel: models.BaseModel{CreatedAt: current.AddDate(0, 0, -1)},
		UserID:    "u1",
		Kind:      models.FunnelEventClicked,
	}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Create(recent).Error)

	removed, err := PruneFunnelEvents(context.Background(), db, current.AddDate(0, 0, -90))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining int64
	require.NoError(t, db.Model(&models.FunnelEvent{}).Count(&remaining).Error)
	require.EqualValues(t, 1, remaining)
}
