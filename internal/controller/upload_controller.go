package controller

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"vidora_backend/pkg/utils/image"
	"vidora_backend/pkg/utils/jwt"
	"vidora_backend/pkg/utils/storage"
)

// UploadSourceImage image-to-video üretimleri için kaynak görseli S3'e yükler
func UploadSourceImage(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No image file provided",
		})
	}

	buf, contentType, err := image.ProcessImage(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	name := fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
	url, err := storage.UploadBuffer(buf, contentType, claims.UserID, "sources", name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not upload image",
		})
	}

	return c.JSON(fiber.Map{
		"url": url,
	})
}
