package seed

import (
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/plan"
)

// SeedAdminUser ortam değişkenlerinden ilk yönetici hesabını oluşturur
func SeedAdminUser(db *gorm.DB) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		return
	}

	var existing model.User
	if err := db.Where("email = ?", adminEmail).First(&existing).Error; err == nil {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing admin password: %v", err)
		return
	}

	admin := model.User{
		Email:      adminEmail,
		Password:   string(hashed),
		Username:   "admin",
		Name:       "Admin",
		Role:       model.RoleAdmin,
		IsVerified: true,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Printf("Error creating admin user: %v", err)
		return
	}

	maxCredits := plan.GetPlanLimits(plan.Max).MonthlyCredits
	sub := model.Subscription{
		UserID:         admin.ID,
		Plan:           plan.Max,
		Status:         model.SubscriptionActive,
		Credits:        maxCredits,
		MonthlyCredits: maxCredits,
	}
	if err := db.Create(&sub).Error; err != nil {
		log.Printf("Error creating admin subscription: %v", err)
	}

	log.Println("Admin user seeded successfully!")

	SeedShowcase(db, admin.ID)
}

// SeedShowcase vitrin sayfası boş kalmasın diye örnek üretimler ekler
func SeedShowcase(db *gorm.DB, userID uint) {
	if os.Getenv("SEED_SHOWCASE") != "true" {
		return
	}

	var count int64
	db.Model(&model.Generation{}).Where("is_public = ?", true).Count(&count)
	if count > 0 {
		return
	}

	now := time.Now()
	demos := []model.Generation{
		{
			UserID:         userID,
			Kind:           model.GenerationKindVideo,
			Title:          "Neon city at night",
			Prompt:         "a neon-lit cyberpunk city street at night, rain reflections, cinematic",
			GenerationType: model.TextToVideo,
			AIModel:        "seedance-1.5-pro",
			Duration:       5,
			Resolution:     "720p",
			AspectRatio:    "16:9",
			Status:         model.GenerationCompleted,
			Progress:       100,
			OutputKey:      "demo/neon-city.mp4",
			ShareSlug:      "neon-city-at-night-demo01",
			IsPublic:       true,
			CompletedAt:    &now,
		},
		{
			UserID:         userID,
			Kind:           model.GenerationKindVideo,
			Title:          "Ocean waves timelapse",
			Prompt:         "aerial timelapse of turquoise ocean waves rolling onto a white sand beach",
			GenerationType: model.TextToVideo,
			AIModel:        "wan-2.5",
			Duration:       5,
			Resolution:     "1080p",
			AspectRatio:    "16:9",
			Status:         model.GenerationCompleted,
			Progress:       100,
			OutputKey:      "demo/ocean-waves.mp4",
			ShareSlug:      "ocean-waves-timelapse-demo02",
			IsPublic:       true,
			CompletedAt:    &now,
		},
	}

	for _, demo := range demos {
		if err := db.Create(&demo).Error; err != nil {
			log.Printf("Error seeding showcase entry %s: %v", demo.Title, err)
		}
	}

	log.Println("Showcase entries seeded successfully!")
}
