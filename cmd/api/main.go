package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"vidora_backend/internal/controller"
	"vidora_backend/internal/middleware"
	"vidora_backend/internal/model"
	"vidora_backend/pkg/config"
	"vidora_backend/pkg/cron"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/email"
	"vidora_backend/pkg/ratelimit"
	"vidora_backend/pkg/seed"
	"vidora_backend/pkg/utils/storage"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api", middleware.RateLimit(ratelimit.BucketAPI))

	// Auth Routes
	auth := api.Group("/auth", middleware.RateLimit(ratelimit.BucketAuth))
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	// Generation Routes
	generations := protected.Group("/generations")
	generations.Post("/", middleware.RateLimit(ratelimit.BucketGenerate), controller.CreateGeneration)
	generations.Get("/my", controller.ListMyGenerations)
	generations.Get("/:id", controller.GetGeneration)
	generations.Get("/:id/progress", controller.GetGenerationProgress)
	generations.Delete("/:id", controller.DeleteGeneration)
	generations.Post("/:id/share", controller.ToggleShare)

	// Upload
	protected.Post("/uploads/source-image", middleware.RateLimit(ratelimit.BucketUpload), controller.UploadSourceImage)

	// Dashboard
	protected.Get("/dashboard", controller.GetDashboard)

	// Public showcase
	api.Get("/showcase", controller.ListShowcase)
	api.Get("/s/:slug", controller.GetSharedGeneration)

	// Billing routes
	billing := api.Group("/billing")
	billing.Get("/plans", controller.ListPlans)

	billingProtected := billing.Use(middleware.AuthMiddleware())
	billingProtected.Post("/create-checkout-session", controller.CreateCheckoutSession)
	billingProtected.Post("/create-portal-session", controller.CreateBillingPortalSession)
	billingProtected.Post("/cancel-subscription", controller.CancelSubscription) // Dönem sonunda iptal
	billingProtected.Get("/my", controller.GetMySubscription)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.RequireAdmin(), middleware.RateLimit(ratelimit.BucketStrict))
	admin.Get("/users", controller.AdminListUsers)
	admin.Put("/users/:id", controller.AdminUpdateUser)
	admin.Get("/refunds", controller.AdminListRefundCandidates)
	admin.Post("/refunds/:id", controller.AdminRefundGeneration)
	admin.Get("/stats", controller.AdminGetStats)

	// Webhooks (imza ile doğrulanır, auth yok)
	api.Post("/webhook/stripe", controller.HandleStripeWebhook)
	api.Post("/webhook/ai/video", controller.HandleVideoWebhook)
	api.Post("/webhook/ai/image", controller.HandleImageWebhook)
}

func main() {
	cfg := config.Load()

	if err := email.InitEmailService(os.Getenv("RESEND_API_KEY")); err != nil {
		log.Printf("Email service disabled: %v", err)
	}

	controller.InitAuthController()
	controller.InitGenerationController()
	controller.InitBillingController()

	if err := storage.InitStorage(); err != nil {
		log.Fatal("Could not initialize storage:", err)
	}

	middleware.InitRateLimiter(cfg.Redis.URL)

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	database.InitDB(cfg.Database.URL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Subscription{},
		&model.Generation{},
		&model.DailyUsage{},
		&model.ModerationLog{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	seed.SeedAdminUser(database.DB)

	cron.InitCreditResetCron()
	cron.InitCleanupCron()

	app := fiber.New(fiber.Config{
		BodyLimit: 15 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
