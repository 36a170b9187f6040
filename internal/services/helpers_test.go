package services

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lumoapp/lumo-growth/internal/models"
)

var testDBSeq atomic.Int64

// openServiceTestDB opens a private in-memory database migrated with the full
// schema. Each call gets its own database so tests cannot observe each other.
func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, testDBSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Friend{},
		&models.FriendSuggestion{},
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
		_ = sqlDB.Close()
	})

	return db
}
