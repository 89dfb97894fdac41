package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/heartlink/backend/internal/services/lottery"
)

// LotteryHandler exposes the referral lottery over HTTP
type LotteryHandler struct {
	lottery *lottery.Service
}

// NewLotteryHandler creates a new lottery handler
func NewLotteryHandler(lotterySvc *lottery.Service) *LotteryHandler {
	return &LotteryHandler{lottery: lotterySvc}
}

// CreateCampaign creates a campaign with its prizes (admin only)
func (h *LotteryHandler) CreateCampaign(c *gin.Context) {
	var input lottery.CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign payload"})
		return
	}

	campaignID, err := h.lottery.CreateCampaign(input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create campaign"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"campaign_id": campaignID})
}

// EnterLottery enters the authenticated user into a campaign
func (h *LotteryHandler) EnterLottery(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)

	tickets, err := h.lottery.EnterLottery(userID, campaignID)
	if err != nil {
		switch {
		case errors.Is(err, lottery.ErrCampaignNotActive):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Campaign is not active or has ended"})
		case errors.Is(err, lottery.ErrInsufficientReferrals):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Not enough completed referrals to enter this campaign"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enter lottery"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets_earned": tickets})
}

// DrawWinners draws all winners for a campaign (admin only)
func (h *LotteryHandler) DrawWinners(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
		return
	}

	winners, err := h.lottery.DrawWinners(campaignID)
	if err != nil {
		if errors.Is(err, lottery.ErrCampaignAlreadyDrawn) {
			c.JSON(http.StatusConflict, gin.H{"error": "Campaign not found or winners already drawn"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to draw winners"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"winners_count": len(winners),
		"winners":       winners,
	})
}

// GetActiveCampaigns lists campaigns open for entry
func (h *LotteryHandler) GetActiveCampaigns(c *gin.Context) {
	campaigns, err := h.lottery.GetActiveCampaigns()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load campaigns"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// GetUserEntries lists the authenticated user's entries with win odds
func (h *LotteryHandler) GetUserEntries(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	entries, err := h.lottery.GetUserEntries(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetAnalytics returns participation statistics for a campaign (admin only)
func (h *LotteryHandler) GetAnalytics(c *gin.Context) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign ID"})
		return
	}

	analytics, err := h.lottery.GetAnalytics(campaignID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analytics"})
		return
	}

	c.JSON(http.StatusOK, analytics)
}
