package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/credits"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/plan"
)

func setupWebhookTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Subscription{}, &model.Generation{}))
	database.DB = db
}

func seedProcessingGeneration(t *testing.T, balance int) *model.Generation {
	t.Helper()

	sub := model.Subscription{
		UserID:         1,
		Plan:           plan.Basic,
		Status:         model.SubscriptionActive,
		Credits:        balance,
		MonthlyCredits: 500,
	}
	require.NoError(t, database.DB.Create(&sub).Error)

	gen := model.Generation{
		UserID:   1,
		Kind:     model.GenerationKindVideo,
		Prompt:   "a fox in the snow",
		AIModel:  "seedance-1.5-pro",
		Status:   model.GenerationPending,
		AITaskID: "task-abc",
	}
	require.NoError(t, database.DB.Create(&gen).Error)

	// Üretim kabul edildi: kredi düşülmüş, PROCESSING
	_, err := credits.DeductCredits(1, "seedance-1.5-pro", gen.ID)
	require.NoError(t, err)
	require.NoError(t, database.DB.Model(&gen).Update("status", model.GenerationProcessing).Error)
	require.NoError(t, database.DB.First(&gen, gen.ID).Error)
	return &gen
}

func webhookBalance(t *testing.T) int {
	t.Helper()
	var sub model.Subscription
	require.NoError(t, database.DB.Where("user_id = ?", 1).First(&sub).Error)
	return sub.Credits
}

func TestReconcileSucceeded(t *testing.T) {
	setupWebhookTestDB(t)
	gen := seedProcessingGeneration(t, 500)

	payload := &AIWebhookPayload{
		ID:     "task-abc",
		Status: "succeeded",
		Output: "https://cdn.example.com/output.mp4",
	}
	require.NoError(t, reconcileGeneration(gen, payload))

	var updated model.Generation
	require.NoError(t, database.DB.First(&updated, gen.ID).Error)
	assert.Equal(t, model.GenerationCompleted, updated.Status)
	assert.Equal(t, 100, updated.Progress)
	assert.Equal(t, "https://cdn.example.com/output.mp4", updated.OutputKey)
	assert.NotNil(t, updated.CompletedAt)

	// Başarılı işte iade yok
	assert.Equal(t, 380, webhookBalance(t))
}

func TestReconcileFailedRefundsOnce(t *testing.T) {
	setupWebhookTestDB(t)
	gen := seedProcessingGeneration(t, 500)
	assert.Equal(t, 380, webhookBalance(t))

	payload := &AIWebhookPayload{
		ID:     "task-abc",
		Status: "failed",
		Error:  "NSFW content detected by provider",
	}
	require.NoError(t, reconcileGeneration(gen, payload))

	var updated model.Generation
	require.NoError(t, database.DB.First(&updated, gen.ID).Error)
	assert.Equal(t, model.GenerationFailed, updated.Status)
	assert.Equal(t, "NSFW content detected by provider", updated.ErrorMessage)
	assert.Equal(t, 0, updated.CreditsUsed)
	assert.Equal(t, 500, webhookBalance(t))

	// Replay: terminal iş değişmez, ikinci iade olmaz
	require.NoError(t, reconcileGeneration(&updated, payload))
	assert.Equal(t, 500, webhookBalance(t))
}

func TestReconcileCanceledUsesDefaultMessage(t *testing.T) {
	setupWebhookTestDB(t)
	gen := seedProcessingGeneration(t, 500)

	payload := &AIWebhookPayload{ID: "task-abc", Status: "canceled"}
	require.NoError(t, reconcileGeneration(gen, payload))

	var updated model.Generation
	require.NoError(t, database.DB.First(&updated, gen.ID).Error)
	assert.Equal(t, model.GenerationFailed, updated.Status)
	assert.Equal(t, "AI generation failed", updated.ErrorMessage)
	assert.Equal(t, 500, webhookBalance(t))
}

func TestReconcileSucceededAfterFailedIsNoOp(t *testing.T) {
	setupWebhookTestDB(t)
	gen := seedProcessingGeneration(t, 500)

	require.NoError(t, reconcileGeneration(gen, &AIWebhookPayload{ID: "task-abc", Status: "failed"}))

	// Geç gelen succeeded mutabakatı terminal durumu değiştiremez
	var failed model.Generation
	require.NoError(t, database.DB.First(&failed, gen.ID).Error)
	require.NoError(t, reconcileGeneration(&failed, &AIWebhookPayload{ID: "task-abc", Status: "succeeded"}))

	var updated model.Generation
	require.NoError(t, database.DB.First(&updated, gen.ID).Error)
	assert.Equal(t, model.GenerationFailed, updated.Status)
	assert.Equal(t, 500, webhookBalance(t))
}

func TestReconcileProcessingUpdatesProgress(t *testing.T) {
	setupWebhookTestDB(t)
	gen := seedProcessingGeneration(t, 500)

	require.NoError(t, reconcileGeneration(gen, &AIWebhookPayload{ID: "task-abc", Status: "processing"}))

	var updated model.Generation
	require.NoError(t, database.DB.First(&updated, gen.ID).Error)
	assert.Equal(t, model.GenerationProcessing, updated.Status)
	assert.Equal(t, 50, updated.Progress)
	// Ara durum güncellemesi iade tetiklemez
	assert.Equal(t, 380, webhookBalance(t))
}

func TestOutputURLFormats(t *testing.T) {
	p := &AIWebhookPayload{Output: "https://a.mp4"}
	assert.Equal(t, "https://a.mp4", p.outputURL())

	p = &AIWebhookPayload{Output: []interface{}{"https://b.mp4", "https://c.mp4"}}
	assert.Equal(t, "https://b.mp4", p.outputURL())

	p = &AIWebhookPayload{Output: nil}
	assert.Equal(t, "", p.outputURL())

	p = &AIWebhookPayload{Output: []interface{}{}}
	assert.Equal(t, "", p.outputURL())
}
