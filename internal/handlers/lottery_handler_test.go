package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/heartlink/backend/internal/middleware"
	"github.com/heartlink/backend/internal/models"
	"github.com/heartlink/backend/internal/queue"
	"github.com/heartlink/backend/internal/services/lottery"
	"github.com/heartlink/backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLotteryRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	require.NoError(t, db.AutoMigrate(
		&models.Referral{},
		&models.Campaign{},
		&models.Prize{},
		&models.Entry{},
	))

	svc := lottery.NewService(db, queue.NewQueue(db), nil)
	handler := NewLotteryHandler(svc)

	// Mirrors the lottery route registration without importing the routes
	// package, which itself depends on this one.
	router := gin.New()
	group := router.Group("/api/lottery")
	group.GET("/campaigns", handler.GetActiveCampaigns)

	authGroup := group.Group("")
	authGroup.Use(middleware.AuthMiddleware())
	authGroup.POST("/campaigns/:id/enter", handler.EnterLottery)
	authGroup.GET("/entries", handler.GetUserEntries)

	adminGroup := group.Group("")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	adminGroup.POST("/campaigns", handler.CreateCampaign)
	adminGroup.POST("/campaigns/:id/draw", handler.DrawWinners)
	adminGroup.GET("/campaigns/:id/analytics", handler.GetAnalytics)

	return router, db
}

func authToken(t *testing.T, userID uuid.UUID, isAdmin bool) string {
	token, err := utils.GenerateToken(userID, "user@example.com", isAdmin, time.Hour)
	require.NoError(t, err)
	return token
}

func seedCampaignWithEligibleUser(t *testing.T, db *gorm.DB) (models.Campaign, models.User) {
	user := models.User{Email: uuid.NewString() + "@example.com", ReferralCode: uuid.NewString()}
	require.NoError(t, db.Create(&user).Error)

	referred := models.User{Email: uuid.NewString() + "@example.com"}
	require.NoError(t, db.Create(&referred).Error)
	now := time.Now()
	require.NoError(t, db.Create(&models.Referral{
		ReferrerID:     user.ID,
		ReferredUserID: referred.ID,
		ReferralCode:   user.ReferralCode,
		Status:         models.ReferralStatusCompleted,
		CompletedAt:    &now,
	}).Error)

	campaign := models.Campaign{
		Name:                "Anniversary Draw " + uuid.NewString(),
		Slug:                uuid.NewString(),
		EndDate:             time.Now().Add(24 * time.Hour),
		TotalPrizePoolUSD:   500,
		MinReferralsToEnter: 1,
		Status:              models.CampaignStatusActive,
	}
	require.NoError(t, db.Create(&campaign).Error)
	require.NoError(t, db.Create(&models.Prize{
		CampaignID:    campaign.ID,
		Rank:          1,
		PrizeName:     "Grand Prize",
		PrizeValueUSD: 500,
		Quantity:      1,
	}).Error)

	return campaign, user
}

func TestGetActiveCampaignsPublic(t *testing.T) {
	router, db := setupLotteryRouter(t)

	seedCampaignWithEligibleUser(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/lottery/campaigns", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Campaigns []models.Campaign `json:"campaigns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Campaigns, 1)
}

func TestEnterLotteryRequiresAuth(t *testing.T) {
	router, db := setupLotteryRouter(t)

	campaign, _ := seedCampaignWithEligibleUser(t, db)

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/lottery/campaigns/%s/enter", campaign.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEnterLottery(t *testing.T) {
	router, db := setupLotteryRouter(t)

	campaign, user := seedCampaignWithEligibleUser(t, db)

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/lottery/campaigns/%s/enter", campaign.ID), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, user.ID, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["tickets_earned"])
}

func TestEnterLotteryInvalidCampaignID(t *testing.T) {
	router, _ := setupLotteryRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/lottery/campaigns/not-a-uuid/enter", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, uuid.New(), false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCampaignRequiresAdmin(t *testing.T) {
	router, _ := setupLotteryRouter(t)

	body, err := json.Marshal(lottery.CampaignInput{
		Name:              "Member Attempt",
		EndDate:           time.Now().Add(24 * time.Hour),
		TotalPrizePoolUSD: 100,
		Prizes:            []lottery.PrizeInput{{Rank: 1, PrizeName: "Prize"}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/lottery/campaigns", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, uuid.New(), false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateCampaignAsAdmin(t *testing.T) {
	router, db := setupLotteryRouter(t)

	body, err := json.Marshal(lottery.CampaignInput{
		Name:              "Admin Campaign",
		EndDate:           time.Now().Add(24 * time.Hour),
		TotalPrizePoolUSD: 100,
		Prizes:            []lottery.PrizeInput{{Rank: 1, PrizeName: "Prize", PrizeValueUSD: 100}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/lottery/campaigns", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, uuid.New(), true))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Campaign{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDrawWinnersConflictOnRedraw(t *testing.T) {
	router, db := setupLotteryRouter(t)

	campaign, user := seedCampaignWithEligibleUser(t, db)
	require.NoError(t, db.Create(&models.Entry{
		CampaignID:     campaign.ID,
		UserID:         user.ID,
		ReferralsCount: 1,
		TicketsEarned:  1,
		EntryDate:      time.Now(),
	}).Error)

	adminToken := authToken(t, uuid.New(), true)
	url := fmt.Sprintf("/api/lottery/campaigns/%s/draw", campaign.ID)

	req := httptest.NewRequest(http.MethodPost, url, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, url, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}
