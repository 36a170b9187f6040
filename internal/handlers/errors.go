package handlers

import (
	"errors"

	"github.com/lumoapp/lumo-growth/internal/services"
	appErrors "github.com/lumoapp/lumo-growth/pkg/errors"
)

// mapServiceError translates service sentinels into transport errors so the
// response layer can pick the right status code. Unknown errors pass through
// and surface as 500s with the original error retained for logging.
func mapServiceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrQuotaExceeded):
		return appErrors.ErrQuotaExceeded
	case errors.Is(err, services.ErrInvalidContact):
		return appErrors.ErrInvalidContact
	case errors.Is(err, services.ErrSendFailed):
		return appErrors.ErrSendFailed.WithInternal(err)
	case errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrFriendNotFound),
		errors.Is(err, services.ErrSuggestionNotFound):
		return appErrors.ErrNotFound
	case errors.Is(err, services.ErrReminderLimit),
		errors.Is(err, services.ErrInvalidTransition):
		return appErrors.NewBadRequest(err.Error())
	default:
		return err
	}
}
