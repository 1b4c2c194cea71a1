package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/plan"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Subscription{}, &model.DailyUsage{}))
	database.DB = db
}

func createSubscription(t *testing.T, userID uint, planType plan.Type, status model.SubscriptionStatus) {
	t.Helper()
	sub := model.Subscription{
		UserID:         userID,
		Plan:           planType,
		Status:         status,
		Credits:        plan.GetPlanLimits(planType).MonthlyCredits,
		MonthlyCredits: plan.GetPlanLimits(planType).MonthlyCredits,
	}
	require.NoError(t, database.DB.Create(&sub).Error)
}

func TestCheckQuotaDailyCountBoundary(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Free, model.SubscriptionActive)

	// FREE: günde 3 üretim
	for i := 0; i < 3; i++ {
		result, err := CheckQuota(1, 5, "seedance-1.5-pro", "720p")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "generation %d should pass quota", i+1)
		assert.Equal(t, 3-i, result.Remaining)
		require.NoError(t, IncrementDailyUsage(1, 5))
	}

	// Dördüncü istek kotayı aşar
	result, err := CheckQuota(1, 5, "seedance-1.5-pro", "720p")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.UpgradeRequired)
}

func TestCheckQuotaModelGate(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Free, model.SubscriptionActive)

	result, err := CheckQuota(1, 5, "sora-2", "720p")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.UpgradeRequired)
	assert.Contains(t, result.Message, "sora-2")
}

func TestCheckQuotaResolutionGate(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Free, model.SubscriptionActive)

	result, err := CheckQuota(1, 5, "seedance-1.5-pro", "4K")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Message, "720p")
}

func TestCheckQuotaDurationGates(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Free, model.SubscriptionActive)

	// Tek video limiti: FREE 5 saniye
	result, err := CheckQuota(1, 10, "seedance-1.5-pro", "720p")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// Günlük toplam süre limiti: FREE 15 saniye
	require.NoError(t, IncrementDailyUsage(1, 5))
	require.NoError(t, IncrementDailyUsage(1, 5))
	result, err = CheckQuota(1, 5, "seedance-1.5-pro", "720p")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	require.NoError(t, IncrementDailyUsage(1, 5))
	// 15 saniye kullanıldı ama sayı limiti de doldu; her iki kapı da kapalı
	result, err = CheckQuota(1, 1, "seedance-1.5-pro", "720p")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestCheckQuotaUnlimitedPlanSkipsDailyCounter(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Pro, model.SubscriptionActive)

	for i := 0; i < 50; i++ {
		require.NoError(t, IncrementDailyUsage(1, 10))
	}

	result, err := CheckQuota(1, 10, "sora-2", "4K")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, plan.Unlimited, result.Remaining)
}

func TestCheckQuotaInactivePaidSubscription(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Pro, model.SubscriptionPastDue)

	result, err := CheckQuota(1, 10, "sora-2", "1080p")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.UpgradeRequired)
}

func TestCheckQuotaFreeNotStatusGated(t *testing.T) {
	setupTestDB(t)
	// FREE plan abonelik durumu ne olursa olsun çalışır
	createSubscription(t, 1, plan.Free, model.SubscriptionCanceled)

	result, err := CheckQuota(1, 5, "seedance-1.5-pro", "720p")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCheckQuotaMissingSubscriptionDefaultsToFree(t *testing.T) {
	setupTestDB(t)

	result, err := CheckQuota(99, 5, "seedance-1.5-pro", "720p")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, plan.Free, result.Plan)
}

func TestIncrementDailyUsageUpsert(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, IncrementDailyUsage(1, 5))
	require.NoError(t, IncrementDailyUsage(1, 10))

	var usage model.DailyUsage
	require.NoError(t, database.DB.Where("user_id = ? AND date = ?", 1, Today()).First(&usage).Error)
	assert.Equal(t, 2, usage.Count)
	assert.Equal(t, 15, usage.Duration)

	// Tek satır olmalı
	var count int64
	database.DB.Model(&model.DailyUsage{}).Where("user_id = ?", 1).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGetUserQuota(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Basic, model.SubscriptionActive)

	require.NoError(t, IncrementDailyUsage(1, 10))

	summary, err := GetUserQuota(1)
	require.NoError(t, err)
	assert.Equal(t, plan.Basic, summary.Plan)
	assert.Equal(t, 1, summary.Used)
	assert.Equal(t, 10, summary.UsedSecs)
	assert.Equal(t, 19, summary.Remaining)
}
