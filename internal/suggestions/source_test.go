package suggestions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lumoapp/lumo-growth/internal/contacts"
	"github.com/lumoapp/lumo-growth/internal/models"
)

func openGraphTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:graph_source_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Friend{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Where("1 = 1").Delete(&models.Friend{}).Error
		_ = sqlDB.Close()
	})
	return db
}

func seedEdge(t *testing.T, db *gorm.DB, ownerID, userID, name string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Friend{
		OwnerID:        ownerID,
		UserID:         userID,
		Name:           name,
		FriendshipDate: time.Now(),
	}).Error)
}

func TestGraphSourceFindsFriendsOfFriends(t *testing.T) {
	db := openGraphTestDB(t)
	source := NewGraphSource(db)

	// me -> alice, bob; alice -> carol; bob -> carol, dave.
	seedEdge(t, db, "me", "alice", "Alice")
	seedEdge(t, db, "me", "bob", "Bob")
	seedEdge(t, db, "alice", "carol", "Carol")
	seedEdge(t, db, "bob", "carol", "Carol")
	seedEdge(t, db, "bob", "dave", "Dave")

	signals, err := source.Signals(context.Background(), "me", []contacts.Contact{
		{Name: "dave", PhoneNumber: "+15550001111"},
	})
	require.NoError(t, err)

	byID := make(map[string]Signal, len(signals))
	for _, signal := range signals {
		byID[signal.CandidateUserID] = signal
	}

	require.Len(t, byID, 2)
	require.Equal(t, 2, byID["carol"].MutualFriendCount)
	require.False(t, byID["carol"].InContacts)
	require.Equal(t, 1, byID["dave"].MutualFriendCount)
	require.True(t, byID["dave"].InContacts)
}

func TestGraphSourceEmptyWithoutFriends(t *testing.T) {
	db := openGraphTestDB(t)
	source := NewGraphSource(db)

	signals, err := source.Signals(context.Background(), "loner", nil)
	require.NoError(t, err)
	require.Empty(t, signals)
}

func TestGraphSourceSkipsSelfEdges(t *testing.T) {
	db := openGraphTestDB(t)
	source := NewGraphSource(db)

	// alice lists me back; I must not be suggested to myself.
	seedEdge(t, db, "me", "alice", "Alice")
	seedEdge(t, db, "alice", "me", "Me")
	seedEdge(t, db, "alice", "erin", "Erin")

	signals, err := source.Signals(context.Background(), "me", nil)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.Equal(t, "erin", signals[0].CandidateUserID)
}
