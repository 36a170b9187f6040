package services

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumoapp/lumo-growth/internal/models"
)

// appendFunnelEvent records an invitation funnel observation inside the
// caller's transaction. Funnel events are best-effort audit data; callers that
// cannot tolerate a failed append should run this inside the same transaction
// as the transition it describes.
func appendFunnelEvent(db *gorm.DB, userID string, invitationID *string, kind models.FunnelEventKind, payload map[string]any) error {
	event := models.FunnelEvent{
		UserID:       userID,
		InvitationID: invitationID,
		Kind:         kind,
	}

	if len(payload) > 0 {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		event.Payload = datatypes.JSON(raw)
	}

	return db.Create(&event).Error
}
