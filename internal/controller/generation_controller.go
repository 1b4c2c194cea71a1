package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/ai"
	"vidora_backend/pkg/credits"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/moderation"
	"vidora_backend/pkg/quota"
	"vidora_backend/pkg/utils/jwt"
)

type GenerationInput struct {
	GenerationType model.GenerationType `json:"generation_type" validate:"required"`
	Prompt         string               `json:"prompt" validate:"required"`
	Title          string               `json:"title"`
	AIModel        string               `json:"ai_model"`
	Duration       int                  `json:"duration"`
	Resolution     string               `json:"resolution"`
	AspectRatio    string               `json:"aspect_ratio"`
	SourceImageURL string               `json:"source_image_url"`
	Seed           *int64               `json:"seed"`
}

func InitGenerationController() {}

func kindFor(genType model.GenerationType) model.GenerationKind {
	if genType == model.TextToImage {
		return model.GenerationKindImage
	}
	return model.GenerationKindVideo
}

func webhookURLFor(kind model.GenerationKind) string {
	base := os.Getenv("AI_WEBHOOK_BASE_URL")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/api/webhook/ai/%s", base, kind)
}

// CreateGeneration üretim isteğini kapılardan geçirir: moderasyon → kota →
// kredi kontrolü → sağlayıcı çağrısı → kredi düşümü → günlük sayaç artışı.
// Kredi düşümü başarılı olmadan günlük sayaç artırılmaz.
func CreateGeneration(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(GenerationInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.GenerationType == "" || input.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields",
		})
	}

	if input.GenerationType == model.ImageToVideo && input.SourceImageURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Source image is required for image-to-video",
		})
	}

	// Varsayılanlar
	if input.AIModel == "" {
		input.AIModel = "seedance-1.5-pro"
	}
	if input.Duration == 0 {
		input.Duration = 5
	}
	if input.Resolution == "" {
		input.Resolution = "720p"
	}
	if input.AspectRatio == "" {
		input.AspectRatio = "16:9"
	}

	// İçerik moderasyonu
	modResult, err := moderation.Screen(claims.UserID, input.Prompt)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not screen content",
		})
	}
	if !modResult.Allowed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    modResult.Reason,
			"code":     "CONTENT_BLOCKED",
			"severity": modResult.Severity,
		})
	}

	// Kota kontrolü (günlük limit, çözünürlük, model erişimi)
	quotaResult, err := quota.CheckQuota(claims.UserID, input.Duration, input.AIModel, input.Resolution)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check quota",
		})
	}
	if !quotaResult.Allowed {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":            quotaResult.Message,
			"upgrade_required": quotaResult.UpgradeRequired,
			"plan":             quotaResult.Plan,
			"remaining":        quotaResult.Remaining,
		})
	}

	// Kredi kontrolü (danışma amaçlı; asıl doğrulama düşümde)
	creditsResult, err := credits.CheckCredits(claims.UserID, input.AIModel)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check credits",
		})
	}
	if !creditsResult.Allowed {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":            creditsResult.Message,
			"upgrade_required": creditsResult.UpgradeRequired,
			"current_credits":  creditsResult.CurrentCredits,
			"required_credits": creditsResult.RequiredCredits,
		})
	}

	params, _ := json.Marshal(input)
	kind := kindFor(input.GenerationType)

	title := input.Title
	if title == "" {
		title = fmt.Sprintf("%s %s", input.AIModel, kind)
	}

	// PENDING kayıt, sıfır kredi ile
	generation := model.Generation{
		UserID:         claims.UserID,
		Kind:           kind,
		Title:          title,
		Prompt:         moderation.Sanitize(input.Prompt),
		GenerationType: input.GenerationType,
		AIModel:        input.AIModel,
		Duration:       input.Duration,
		Resolution:     input.Resolution,
		AspectRatio:    input.AspectRatio,
		Seed:           input.Seed,
		SourceImageKey: input.SourceImageURL,
		Status:         model.GenerationPending,
		Progress:       0,
		CreditsUsed:    0,
		AIProvider:     "replicate",
		Params:         params,
	}
	if err := database.DB.Create(&generation).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create generation",
		})
	}

	// Sağlayıcı çağrısı
	result, err := ai.StartGeneration(input.AIModel, ai.GenerationInput{
		Prompt:      generation.Prompt,
		ImageURL:    input.SourceImageURL,
		Duration:    input.Duration,
		Resolution:  input.Resolution,
		AspectRatio: input.AspectRatio,
		Seed:        input.Seed,
		Model:       input.AIModel,
	}, webhookURLFor(kind))

	if err != nil || result.Status == "failed" {
		errMsg := "AI generation failed"
		if err != nil {
			errMsg = err.Error()
		} else if result.Error != "" {
			errMsg = result.Error
		}

		// Anında başarısızlık: kredi düşümü yapılmadı, iş doğrudan FAILED
		database.DB.Model(&generation).Updates(map[string]interface{}{
			"status":        model.GenerationFailed,
			"error_message": errMsg,
		})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": errMsg,
		})
	}

	// Üretim kabul edildi: krediyi düş
	if _, err := credits.DeductCredits(claims.UserID, input.AIModel, generation.ID); err != nil {
		errMsg := "Failed to process payment"
		status := fiber.StatusInternalServerError
		if errors.Is(err, credits.ErrInsufficientCredits) {
			errMsg = "Insufficient credits"
			status = fiber.StatusPaymentRequired
		}
		database.DB.Model(&generation).Updates(map[string]interface{}{
			"status":        model.GenerationFailed,
			"error_message": "Failed to deduct credits",
		})
		return c.Status(status).JSON(fiber.Map{
			"error": errMsg,
		})
	}

	// Kredi düşümü başarılı: günlük kullanım sayacını artır
	if err := quota.IncrementDailyUsage(claims.UserID, input.Duration); err != nil {
		log.Printf("Could not increment daily usage for user %d: %v", claims.UserID, err)
	}

	// Task referansını kaydet, işi PROCESSING'e al
	if err := database.DB.Model(&generation).Updates(map[string]interface{}{
		"ai_task_id": result.TaskID,
		"status":     model.GenerationProcessing,
		"progress":   10,
	}).Error; err != nil {
		log.Printf("Could not update generation %d with task id: %v", generation.ID, err)
	}

	database.DB.First(&generation, generation.ID)

	return c.Status(fiber.StatusCreated).JSON(generation)
}

func ListMyGenerations(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	kind := c.Query("kind")
	query := database.DB.Where("user_id = ?", claims.UserID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var generations []model.Generation
	if err := query.Order("created_at DESC").Limit(100).Find(&generations).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch generations",
		})
	}

	return c.JSON(generations)
}

func GetGeneration(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var generation model.Generation
	if err := database.DB.Where("id = ? AND user_id = ?", c.Params("id"), claims.UserID).
		First(&generation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Generation not found",
		})
	}

	return c.JSON(generation)
}

// GetGenerationProgress istemcinin poll ettiği ilerleme endpoint'i.
// Kalıcı durumu okur; terminal durumda istemci poll'u durdurur.
func GetGenerationProgress(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var generation model.Generation
	if err := database.DB.Select("id", "status", "progress", "output_key", "error_message").
		Where("id = ? AND user_id = ?", c.Params("id"), claims.UserID).
		First(&generation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Generation not found",
		})
	}

	return c.JSON(fiber.Map{
		"id":            generation.ID,
		"status":        generation.Status,
		"progress":      generation.Progress,
		"output_key":    generation.OutputKey,
		"error_message": generation.ErrorMessage,
		"terminal":      generation.IsTerminal(),
	})
}

func DeleteGeneration(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var generation model.Generation
	if err := database.DB.Where("id = ? AND user_id = ?", c.Params("id"), claims.UserID).
		First(&generation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Generation not found",
		})
	}

	// Soft delete; kalıcı temizlik cron'da
	if err := database.DB.Delete(&generation).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete generation",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Generation deleted",
	})
}

// ToggleShare tamamlanmış bir işi herkese açık vitrine ekler/çıkarır
func ToggleShare(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var generation model.Generation
	if err := database.DB.Where("id = ? AND user_id = ?", c.Params("id"), claims.UserID).
		First(&generation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Generation not found",
		})
	}

	if generation.Status != model.GenerationCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only completed generations can be shared",
		})
	}

	updates := map[string]interface{}{"is_public": !generation.IsPublic}
	if !generation.IsPublic && generation.ShareSlug == "" {
		updates["share_slug"] = fmt.Sprintf("%s-%s", slug.Make(generation.Title), uuid.New().String()[:8])
	}

	if err := database.DB.Model(&generation).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update generation",
		})
	}

	database.DB.First(&generation, generation.ID)

	return c.JSON(fiber.Map{
		"is_public":  generation.IsPublic,
		"share_slug": generation.ShareSlug,
	})
}

// ListShowcase herkese açık paylaşılan üretimleri listeler
func ListShowcase(c *fiber.Ctx) error {
	var generations []model.Generation
	if err := database.DB.Where("is_public = ? AND status = ?", true, model.GenerationCompleted).
		Order("completed_at DESC").Limit(50).Find(&generations).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch showcase",
		})
	}

	return c.JSON(generations)
}

// GetSharedGeneration share slug ile tek bir paylaşımı döndürür
func GetSharedGeneration(c *fiber.Ctx) error {
	var generation model.Generation
	if err := database.DB.Where("share_slug = ? AND is_public = ?", c.Params("slug"), true).
		First(&generation).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Shared generation not found",
		})
	}

	return c.JSON(generation)
}

// GetDashboard kota ve kredi özetini tek cevapta döndürür
func GetDashboard(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	quotaSummary, err := quota.GetUserQuota(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch quota",
		})
	}

	balance, err := credits.GetUserCredits(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch credits",
		})
	}

	var totalGenerations int64
	database.DB.Model(&model.Generation{}).Where("user_id = ?", claims.UserID).Count(&totalGenerations)

	return c.JSON(fiber.Map{
		"quota":             quotaSummary,
		"credits":           balance,
		"total_generations": totalGenerations,
	})
}
