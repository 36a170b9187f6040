package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumoapp/lumo-growth/internal/services"
	"github.com/lumoapp/lumo-growth/pkg/errors"
	"github.com/lumoapp/lumo-growth/pkg/response"
)

// WalletHandler exposes invite credit balances and the reward ledger.
type WalletHandler struct {
	quota   *services.QuotaService
	rewards *services.RewardService
}

// NewWalletHandler constructs a wallet handler.
func NewWalletHandler(quota *services.QuotaService, rewards *services.RewardService) *WalletHandler {
	return &WalletHandler{quota: quota, rewards: rewards}
}

// Balance reports remaining credits and today's usage against the daily limit.
func (h *WalletHandler) Balance(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	wallet, sentToday, err := h.quota.Balance(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"available_credits": wallet.AvailableCredits,
		"sent_today":        sentToday,
		"daily_limit":       h.quota.DailyLimit(),
	})
}

// Rewards lists the user's reward transactions, newest first.
func (h *WalletHandler) Rewards(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrNotAuthenticated)
		return
	}

	history, err := h.rewards.History(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.List(c, history, len(history))
}
