package database

import (
	"gorm.io/gorm"

	"github.com/lumoapp/lumo-growth/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Friend{},
		&models.FriendSuggestion{},
		&models.Invitation{},
		&models.InviteWallet{},
		&models.QuotaReservation{},
		&models.RewardTransaction{},
		&models.FunnelEvent{},
		&models.CacheEntry{},
	)
}
