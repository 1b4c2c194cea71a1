package credits

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
	require.NoError(t, db.AutoMigrate(&model.Subscription{}, &model.Generation{}))
	database.DB = db
}

func createSubscription(t *testing.T, userID uint, planType plan.Type, balance int) {
	t.Helper()
	sub := model.Subscription{
		UserID:         userID,
		Plan:           planType,
		Status:         model.SubscriptionActive,
		Credits:        balance,
		MonthlyCredits: plan.GetPlanLimits(planType).MonthlyCredits,
	}
	require.NoError(t, database.DB.Create(&sub).Error)
}

func createGeneration(t *testing.T, userID uint) *model.Generation {
	t.Helper()
	gen := model.Generation{
		UserID:  userID,
		Kind:    model.GenerationKindVideo,
		Prompt:  "a cat on a skateboard",
		AIModel: "seedance-1.5-pro",
		Status:  model.GenerationPending,
	}
	require.NoError(t, database.DB.Create(&gen).Error)
	return &gen
}

func currentBalance(t *testing.T, userID uint) int {
	t.Helper()
	var sub model.Subscription
	require.NoError(t, database.DB.Where("user_id = ?", userID).First(&sub).Error)
	return sub.Credits
}

func TestGetOrCreateSubscriptionDefaultsToFree(t *testing.T) {
	setupTestDB(t)

	sub, err := GetOrCreateSubscription(1)
	require.NoError(t, err)
	assert.Equal(t, plan.Free, sub.Plan)
	assert.Equal(t, plan.GetPlanLimits(plan.Free).MonthlyCredits, sub.Credits)

	// İkinci çağrı aynı kaydı döndürür
	again, err := GetOrCreateSubscription(1)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
}

func TestCheckCredits(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Free, 100)

	// seedance-1.5-pro 120 kredi ister
	result, err := CheckCredits(1, "seedance-1.5-pro")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 100, result.CurrentCredits)
	assert.Equal(t, 120, result.RequiredCredits)

	// hailuo-ai 60 kredi ister
	result, err = CheckCredits(1, "hailuo-ai")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestDeductCreditsExactlyOnce(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Basic, 500)
	gen := createGeneration(t, 1)

	remaining, err := DeductCredits(1, "seedance-1.5-pro", gen.ID)
	require.NoError(t, err)
	assert.Equal(t, 380, remaining)
	assert.Equal(t, 380, currentBalance(t, 1))

	// credits_used damgalanır
	var updated model.Generation
	require.NoError(t, database.DB.First(&updated, gen.ID).Error)
	assert.Equal(t, 120, updated.CreditsUsed)
}

func TestDeductCreditsInsufficient(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Free, 50)
	gen := createGeneration(t, 1)

	_, err := DeductCredits(1, "seedance-1.5-pro", gen.ID)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	// Bakiye değişmedi, damga vurulmadı
	assert.Equal(t, 50, currentBalance(t, 1))
	var updated model.Generation
	require.NoError(t, database.DB.First(&updated, gen.ID).Error)
	assert.Equal(t, 0, updated.CreditsUsed)
}

func TestDeductCreditsNeverNegative(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Free, 119)
	gen := createGeneration(t, 1)

	// 119 < 120: koşullu UPDATE satır bulamaz
	_, err := DeductCredits(1, "seedance-1.5-pro", gen.ID)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Equal(t, 119, currentBalance(t, 1))
}

func TestRefundGenerationExactlyOnce(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Basic, 500)
	gen := createGeneration(t, 1)

	_, err := DeductCredits(1, "seedance-1.5-pro", gen.ID)
	require.NoError(t, err)
	assert.Equal(t, 380, currentBalance(t, 1))

	refunded, err := RefundGeneration(gen.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, refunded)
	assert.Equal(t, 500, currentBalance(t, 1))

	// İkinci iade no-op
	refunded, err = RefundGeneration(gen.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, refunded)
	assert.Equal(t, 500, currentBalance(t, 1))
}

func TestRefundGenerationWithoutDeduction(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Basic, 500)
	gen := createGeneration(t, 1)

	// Hiç düşüm yapılmadı: iade edilecek bir şey yok
	refunded, err := RefundGeneration(gen.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, refunded)
	assert.Equal(t, 500, currentBalance(t, 1))
}

func TestRefundGenerationSoftDeleted(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Basic, 500)
	gen := createGeneration(t, 1)

	_, err := DeductCredits(1, "seedance-1.5-pro", gen.ID)
	require.NoError(t, err)

	// Kullanıcı işi sildi: iade yine de çalışmalı
	require.NoError(t, database.DB.Delete(&model.Generation{}, gen.ID).Error)

	refunded, err := RefundGeneration(gen.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, refunded)
	assert.Equal(t, 500, currentBalance(t, 1))
}

func TestRefundGenerationNotFound(t *testing.T) {
	setupTestDB(t)

	_, err := RefundGeneration(9999)
	assert.ErrorIs(t, err, ErrGenerationNotFound)
}

func TestRefundCredits(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Basic, 100)

	require.NoError(t, RefundCredits(1, 50))
	assert.Equal(t, 150, currentBalance(t, 1))

	// Sıfır ve negatif miktarlar no-op
	require.NoError(t, RefundCredits(1, 0))
	require.NoError(t, RefundCredits(1, -10))
	assert.Equal(t, 150, currentBalance(t, 1))
}

func TestResetMonthlyCreditsSetsNotAdds(t *testing.T) {
	setupTestDB(t)
	createSubscription(t, 1, plan.Pro, 1750)

	require.NoError(t, ResetMonthlyCredits(1))

	// PRO tahsisatı 2000: bakiye eşitlenir, 1750+2000 olmaz
	assert.Equal(t, 2000, currentBalance(t, 1))

	var sub model.Subscription
	require.NoError(t, database.DB.Where("user_id = ?", 1).First(&sub).Error)
	assert.NotNil(t, sub.CreditsResetAt)
}
