package lottery

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/heartlink/backend/internal/models"
	"github.com/heartlink/backend/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MockEnqueuer is a mock implementation of queue.Enqueuer
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueJob(jobType queue.JobType, payload interface{}) (string, error) {
	args := m.Called(jobType, payload)
	return args.String(0), args.Error(1)
}

// setupTestDB creates an in-memory database with the lottery schema. The
// named DSN keeps the same database visible across pooled connections.
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Referral{},
		&models.Campaign{},
		&models.Prize{},
		&models.Entry{},
	)
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	user := models.User{Email: email, ReferralCode: email}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createCompletedReferrals(t *testing.T, db *gorm.DB, referrer models.User, count int) {
	for i := 0; i < count; i++ {
		referred := createTestUser(t, db, uuid.NewString()+"@example.com")
		now := time.Now()
		referral := models.Referral{
			ReferrerID:     referrer.ID,
			ReferredUserID: referred.ID,
			ReferralCode:   referrer.ReferralCode,
			Status:         models.ReferralStatusCompleted,
			CompletedAt:    &now,
		}
		require.NoError(t, db.Create(&referral).Error)
	}
}

func createTestCampaign(t *testing.T, svc *Service, minReferrals int) uuid.UUID {
	campaignID, err := svc.CreateCampaign(CampaignInput{
		Name:                "Valentine Giveaway " + uuid.NewString(),
		EndDate:             time.Now().Add(7 * 24 * time.Hour),
		TotalPrizePoolUSD:   1000,
		MinReferralsToEnter: minReferrals,
		Prizes: []PrizeInput{
			{Rank: 1, PrizeName: "Grand Prize", PrizeValueUSD: 500, Quantity: 1},
		},
	})
	require.NoError(t, err)
	return campaignID
}

func TestUsersWithoutReferralCodeDoNotCollide(t *testing.T) {
	// The referral code unique index is partial: members who never generated
	// a code all carry the empty string.
	db := setupTestDB(t)

	first := models.User{Email: "no-code-1@example.com"}
	require.NoError(t, db.Create(&first).Error)

	second := models.User{Email: "no-code-2@example.com"}
	require.NoError(t, db.Create(&second).Error)

	dup := models.User{Email: "has-code@example.com", ReferralCode: "LOVE2026"}
	require.NoError(t, db.Create(&dup).Error)
	clash := models.User{Email: "clash@example.com", ReferralCode: "LOVE2026"}
	assert.Error(t, db.Create(&clash).Error)
}

func TestTicketsForReferrals(t *testing.T) {
	tests := []struct {
		referrals int
		tickets   int
	}{
		{0, 0},
		{1, 1},
		{3, 3},
		{4, 4},
		{5, 10},
		{9, 10},
		{10, 25},
		{17, 25},
		{100, 25},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.tickets, TicketsForReferrals(tt.referrals),
			"referrals=%d", tt.referrals)
	}
}

func TestCreateCampaign(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &MockEnqueuer{}, nil)

	campaignID, err := svc.CreateCampaign(CampaignInput{
		Name:              "Summer Love Lottery",
		EndDate:           time.Now().Add(24 * time.Hour),
		TotalPrizePoolUSD: 2500,
		Prizes: []PrizeInput{
			{Rank: 1, PrizeName: "Grand Prize", PrizeValueUSD: 1000},
			{Rank: 2, PrizeName: "Runner Up", PrizeValueUSD: 500, Quantity: 3},
		},
	})
	require.NoError(t, err)

	var campaign models.Campaign
	require.NoError(t, db.Preload("Prizes").First(&campaign, "id = ?", campaignID).Error)

	assert.Equal(t, "Summer Love Lottery", campaign.Name)
	assert.Equal(t, "summer-love-lottery", campaign.Slug)
	assert.Equal(t, models.CampaignStatusActive, campaign.Status)
	require.Len(t, campaign.Prizes, 2)

	// Quantity defaults to 1 when omitted
	for _, prize := range campaign.Prizes {
		if prize.Rank == 1 {
			assert.Equal(t, 1, prize.Quantity)
		} else {
			assert.Equal(t, 3, prize.Quantity)
		}
	}
}

func TestEnterLottery(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &MockEnqueuer{}, nil)

	user := createTestUser(t, db, "alice@example.com")
	createCompletedReferrals(t, db, user, 6)
	campaignID := createTestCampaign(t, svc, 1)

	tickets, err := svc.EnterLottery(user.ID, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 10, tickets)

	var entry models.Entry
	require.NoError(t, db.First(&entry, "campaign_id = ? AND user_id = ?", campaignID, user.ID).Error)
	assert.Equal(t, 6, entry.ReferralsCount)
	assert.Equal(t, 10, entry.TicketsEarned)
	assert.False(t, entry.IsWinner)

	var campaign models.Campaign
	require.NoError(t, db.First(&campaign, "id = ?", campaignID).Error)
	assert.Equal(t, int64(1), campaign.EntriesCount)
}

func TestEnterLotteryInsufficientReferrals(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &MockEnqueuer{}, nil)

	user := createTestUser(t, db, "bob@example.com")
	createCompletedReferrals(t, db, user, 2)
	campaignID := createTestCampaign(t, svc, 3)

	_, err := svc.EnterLottery(user.ID, campaignID)
	assert.ErrorIs(t, err, ErrInsufficientReferrals)

	var count int64
	require.NoError(t, db.Model(&models.Entry{}).Where("campaign_id = ?", campaignID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEnterLotteryIgnoresPendingReferrals(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &MockEnqueuer{}, nil)

	user := createTestUser(t, db, "carol@example.com")
	createCompletedReferrals(t, db, user, 2)

	// Pending referrals do not count toward tickets
	referred := createTestUser(t, db, "pending@example.com")
	require.NoError(t, db.Create(&models.Referral{
		ReferrerID:     user.ID,
		ReferredUserID: referred.ID,
		ReferralCode:   user.ReferralCode,
		Status:         models.ReferralStatusPending,
	}).Error)

	campaignID := createTestCampaign(t, svc, 1)

	tickets, err := svc.EnterLottery(user.ID, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 2, tickets)
}

func TestEnterLotteryReEntryUpdatesExistingRow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &MockEnqueuer{}, nil)

	user := createTestUser(t, db, "dave@example.com")
	createCompletedReferrals(t, db, user, 3)
	campaignID := createTestCampaign(t, svc, 1)

	tickets, err := svc.EnterLottery(user.ID, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 3, tickets)

	// More referrals complete; re-entering refreshes the same row
	createCompletedReferrals(t, db, user, 7)

	tickets, err = svc.EnterLottery(user.ID, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 25, tickets)

	var entries []models.Entry
	require.NoError(t, db.Where("campaign_id = ? AND user_id = ?", campaignID, user.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, 10, entries[0].ReferralsCount)
	assert.Equal(t, 25, entries[0].TicketsEarned)

	var campaign models.Campaign
	require.NoError(t, db.First(&campaign, "id = ?", campaignID).Error)
	assert.Equal(t, int64(1), campaign.EntriesCount)
}

func TestEnterLotteryEndedCampaign(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &MockEnqueuer{}, nil)

	user := createTestUser(t, db, "eve@example.com")
	createCompletedReferrals(t, db, user, 5)
	campaignID := createTestCampaign(t, svc, 1)

	require.NoError(t, db.Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Update("end_date", time.Now().Add(-time.Hour)).Error)

	_, err := svc.EnterLottery(user.ID, campaignID)
	assert.ErrorIs(t, err, ErrCampaignNotActive)
}

func TestDrawWinnersDeterministic(t *testing.T) {
	db := setupTestDB(t)
	enqueuer := new(MockEnqueuer)
	enqueuer.On("EnqueueJob", queue.JobTypeNotifyLotteryWinner, mock.Anything).Return("job-1", nil)

	// target 12 lands inside the second entry's ticket range [10, 35)
	svc := NewService(db, enqueuer, stubRand{value: 12})

	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	createCompletedReferrals(t, db, alice, 6)
	createCompletedReferrals(t, db, bob, 12)
	campaignID := createTestCampaign(t, svc, 1)

	_, err := svc.EnterLottery(alice.ID, campaignID)
	require.NoError(t, err)
	_, err = svc.EnterLottery(bob.ID, campaignID)
	require.NoError(t, err)

	winners, err := svc.DrawWinners(campaignID)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, bob.ID, winners[0].UserID)
	assert.Equal(t, "Grand Prize", winners[0].PrizeName)

	var entry models.Entry
	require.NoError(t, db.First(&entry, "campaign_id = ? AND user_id = ?", campaignID, bob.ID).Error)
	assert.True(t, entry.IsWinner)

	var prize models.Prize
	require.NoError(t, db.First(&prize, "campaign_id = ?", campaignID).Error)
	require.NotNil(t, prize.WinnerUserID)
	assert.Equal(t, bob.ID, *prize.WinnerUserID)
	assert.NotNil(t, prize.AwardedAt)

	var campaign models.Campaign
	require.NoError(t, db.First(&campaign, "id = ?", campaignID).Error)
	assert.Equal(t, models.CampaignStatusWinnersDrawn, campaign.Status)
	assert.Equal(t, 1, campaign.WinnersCount)

	enqueuer.AssertNumberOfCalls(t, "EnqueueJob", 1)
}

func TestDrawWinnersEachUserWinsAtMostOnce(t *testing.T) {
	db := setupTestDB(t)
	enqueuer := new(MockEnqueuer)
	enqueuer.On("EnqueueJob", queue.JobTypeNotifyLotteryWinner, mock.Anything).Return("job-1", nil)

	// Always picking the first ticket would re-select the same entry if
	// winners were not excluded between awards.
	svc := NewService(db, enqueuer, stubRand{value: 0})

	users := make([]models.User, 3)
	for i := range users {
		users[i] = createTestUser(t, db, uuid.NewString()+"@example.com")
		createCompletedReferrals(t, db, users[i], 2)
	}

	campaignID, err := svc.CreateCampaign(CampaignInput{
		Name:              "Multi Prize Draw",
		EndDate:           time.Now().Add(24 * time.Hour),
		TotalPrizePoolUSD: 300,
		Prizes: []PrizeInput{
			{Rank: 1, PrizeName: "Premium Month", PrizeValueUSD: 100, Quantity: 2},
		},
	})
	require.NoError(t, err)

	for _, u := range users {
		_, err := svc.EnterLottery(u.ID, campaignID)
		require.NoError(t, err)
	}

	winners, err := svc.DrawWinners(campaignID)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.NotEqual(t, winners[0].UserID, winners[1].UserID)

	var winnerCount int64
	require.NoError(t, db.Model(&models.Entry{}).
		Where("campaign_id = ? AND is_winner = ?", campaignID, true).
		Count(&winnerCount).Error)
	assert.Equal(t, int64(2), winnerCount)
}

func TestDrawWinnersMorePrizesThanEntrants(t *testing.T) {
	db := setupTestDB(t)
	enqueuer := new(MockEnqueuer)
	enqueuer.On("EnqueueJob", queue.JobTypeNotifyLotteryWinner, mock.Anything).Return("job-1", nil)
	svc := NewService(db, enqueuer, stubRand{value: 0})

	user := createTestUser(t, db, "solo@example.com")
	createCompletedReferrals(t, db, user, 2)

	campaignID, err := svc.CreateCampaign(CampaignInput{
		Name:              "Oversized Prize Pool",
		EndDate:           time.Now().Add(24 * time.Hour),
		TotalPrizePoolUSD: 500,
		Prizes: []PrizeInput{
			{Rank: 1, PrizeName: "Premium Month", PrizeValueUSD: 100, Quantity: 5},
		},
	})
	require.NoError(t, err)

	_, err = svc.EnterLottery(user.ID, campaignID)
	require.NoError(t, err)

	// One entrant, five awards: the four extra awards stay unassigned
	winners, err := svc.DrawWinners(campaignID)
	require.NoError(t, err)
	require.Len(t, winners, 1)
	assert.Equal(t, user.ID, winners[0].UserID)

	var campaign models.Campaign
	require.NoError(t, db.First(&campaign, "id = ?", campaignID).Error)
	assert.Equal(t, models.CampaignStatusWinnersDrawn, campaign.Status)
	assert.Equal(t, 1, campaign.WinnersCount)
}

func TestDrawWinnersTwiceFails(t *testing.T) {
	db := setupTestDB(t)
	enqueuer := new(MockEnqueuer)
	enqueuer.On("EnqueueJob", queue.JobTypeNotifyLotteryWinner, mock.Anything).Return("job-1", nil)
	svc := NewService(db, enqueuer, stubRand{value: 0})

	user := createTestUser(t, db, "once@example.com")
	createCompletedReferrals(t, db, user, 2)
	campaignID := createTestCampaign(t, svc, 1)

	_, err := svc.EnterLottery(user.ID, campaignID)
	require.NoError(t, err)

	_, err = svc.DrawWinners(campaignID)
	require.NoError(t, err)

	_, err = svc.DrawWinners(campaignID)
	assert.ErrorIs(t, err, ErrCampaignAlreadyDrawn)
}

func TestDrawWinnersNoEntries(t *testing.T) {
	db := setupTestDB(t)
	enqueuer := new(MockEnqueuer)
	svc := NewService(db, enqueuer, stubRand{value: 0})

	campaignID := createTestCampaign(t, svc, 1)

	winners, err := svc.DrawWinners(campaignID)
	require.NoError(t, err)
	assert.Empty(t, winners)

	var campaign models.Campaign
	require.NoError(t, db.First(&campaign, "id = ?", campaignID).Error)
	assert.Equal(t, models.CampaignStatusWinnersDrawn, campaign.Status)

	enqueuer.AssertNotCalled(t, "EnqueueJob", mock.Anything, mock.Anything)
}

func TestGetActiveCampaigns(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &MockEnqueuer{}, nil)

	active := createTestCampaign(t, svc, 1)
	ended := createTestCampaign(t, svc, 1)
	require.NoError(t, db.Model(&models.Campaign{}).
		Where("id = ?", ended).
		Update("end_date", time.Now().Add(-time.Hour)).Error)

	campaigns, err := svc.GetActiveCampaigns()
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, active, campaigns[0].ID)
	assert.NotEmpty(t, campaigns[0].Prizes)
}

func TestGetUserEntriesWinProbability(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &MockEnqueuer{}, nil)

	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	createCompletedReferrals(t, db, alice, 6)  // 10 tickets
	createCompletedReferrals(t, db, bob, 12)   // 25 tickets
	campaignID := createTestCampaign(t, svc, 1)

	_, err := svc.EnterLottery(alice.ID, campaignID)
	require.NoError(t, err)
	_, err = svc.EnterLottery(bob.ID, campaignID)
	require.NoError(t, err)

	entries, err := svc.GetUserEntries(alice.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, 10, entries[0].TicketsEarned)
	assert.InDelta(t, 10.0/35.0*100, entries[0].WinProbability, 0.001)
	assert.NotEmpty(t, entries[0].CampaignName)
}

func TestGetAnalytics(t *testing.T) {
	db := setupTestDB(t)
	enqueuer := new(MockEnqueuer)
	enqueuer.On("EnqueueJob", queue.JobTypeNotifyLotteryWinner, mock.Anything).Return("job-1", nil)
	svc := NewService(db, enqueuer, stubRand{value: 0})

	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	createCompletedReferrals(t, db, alice, 6)
	createCompletedReferrals(t, db, bob, 12)
	campaignID := createTestCampaign(t, svc, 1)

	_, err := svc.EnterLottery(alice.ID, campaignID)
	require.NoError(t, err)
	_, err = svc.EnterLottery(bob.ID, campaignID)
	require.NoError(t, err)

	_, err = svc.DrawWinners(campaignID)
	require.NoError(t, err)

	analytics, err := svc.GetAnalytics(campaignID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), analytics.UniqueEntrants)
	assert.Equal(t, int64(35), analytics.TotalTickets)
	assert.InDelta(t, 9.0, analytics.AvgReferralsPerEntry, 0.001)
	assert.Equal(t, int64(1), analytics.WinnersCount)
	assert.Equal(t, models.CampaignStatusWinnersDrawn, analytics.Status)
}
