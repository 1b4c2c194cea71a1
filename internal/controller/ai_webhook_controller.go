package controller

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/credits"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/email"
)

// AIWebhookPayload Replicate'in tamamlanma callback gövdesi
type AIWebhookPayload struct {
	ID     string      `json:"id"`
	Status string      `json:"status"` // succeeded, failed, canceled, processing
	Output interface{} `json:"output"`
	Error  string      `json:"error"`
}

func (p *AIWebhookPayload) outputURL() string {
	switch v := p.Output.(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// HandleVideoWebhook video işleri için tamamlanma callback'i
func HandleVideoWebhook(c *fiber.Ctx) error {
	return handleAIWebhook(c, model.GenerationKindVideo)
}

// HandleImageWebhook görsel işleri için tamamlanma callback'i
func HandleImageWebhook(c *fiber.Ctx) error {
	return handleAIWebhook(c, model.GenerationKindImage)
}

// handleAIWebhook task id ile işi bulur ve durumu mutabakata geçirir.
// Bilinmeyen task id no-op'tur: iş terminal durumda olabilir veya başka
// bir iş tipine ait olabilir. Replay idempotenttir.
func handleAIWebhook(c *fiber.Ctx, kind model.GenerationKind) error {
	payload := new(AIWebhookPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payload",
		})
	}

	if payload.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing prediction ID",
		})
	}

	var generation model.Generation
	err := database.DB.Where("ai_task_id = ? AND kind = ?", payload.ID, kind).
		First(&generation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("No %s generation found for task %s, ignoring webhook", kind, payload.ID)
			return c.JSON(fiber.Map{"received": true})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not look up generation",
		})
	}

	if err := reconcileGeneration(&generation, payload); err != nil {
		log.Printf("Could not reconcile generation %d: %v", generation.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Webhook failed",
		})
	}

	return c.JSON(fiber.Map{"received": true})
}

// reconcileGeneration callback durumunu işin yaşam döngüsüne uygular.
// Terminal durumdaki iş değiştirilmez; FAILED geçişi ve kredi iadesi tek
// transaction içinde yapılır.
func reconcileGeneration(generation *model.Generation, payload *AIWebhookPayload) error {
	if generation.IsTerminal() {
		log.Printf("Generation %d already %s, ignoring %s callback", generation.ID, generation.Status, payload.Status)
		return nil
	}

	switch payload.Status {
	case "succeeded":
		now := time.Now()
		return database.DB.Model(generation).Updates(map[string]interface{}{
			"status":       model.GenerationCompleted,
			"progress":     100,
			"output_key":   payload.outputURL(),
			"completed_at": now,
		}).Error

	case "failed", "canceled":
		errMsg := payload.Error
		if errMsg == "" {
			errMsg = "AI generation failed"
		}

		refunded := 0
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(generation).Updates(map[string]interface{}{
				"status":        model.GenerationFailed,
				"error_message": errMsg,
			}).Error; err != nil {
				return err
			}

			var txErr error
			refunded, txErr = credits.RefundGenerationTx(tx, generation.ID)
			return txErr
		})
		if err != nil {
			return err
		}

		if refunded > 0 {
			log.Printf("Refunded %d credits for failed generation %d", refunded, generation.ID)
			notifyGenerationFailed(generation, refunded)
		}
		return nil

	case "processing":
		return database.DB.Model(generation).Updates(map[string]interface{}{
			"status":   model.GenerationProcessing,
			"progress": 50,
		}).Error

	default:
		log.Printf("Unhandled webhook status %q for generation %d", payload.Status, generation.ID)
		return nil
	}
}

func notifyGenerationFailed(generation *model.Generation, refunded int) {
	if email.GlobalEmailService == nil {
		return
	}

	var user model.User
	if err := database.DB.First(&user, generation.UserID).Error; err != nil {
		return
	}

	if err := email.GlobalEmailService.SendGenerationFailedEmail(user.Email, user.Name, generation.Title, refunded); err != nil {
		log.Printf("Could not send generation failed email: %v", err)
	}
}
