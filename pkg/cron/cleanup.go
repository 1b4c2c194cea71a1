package cron

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/credits"
	"vidora_backend/pkg/database"
)

var (
	lastCleanupRun time.Time
	cleanupMutex   sync.Mutex
)

// InitCleanupCron her gece saat 03:00'te eski kayıtları temizler ve takılı
// kalmış üretimleri başarısız sayıp kredilerini iade eder.
func InitCleanupCron() {
	c := cron.New()

	_, err := c.AddFunc("0 3 * * *", func() {
		cleanupMutex.Lock()
		defer cleanupMutex.Unlock()

		if time.Since(lastCleanupRun) < 23*time.Hour {
			log.Printf("Cleanup already ran today, skipping...")
			return
		}

		purgeDeletedGenerations()
		purgeOldDailyUsage()
		failStuckGenerations()
		lastCleanupRun = time.Now()
	})

	if err != nil {
		log.Printf("Could not initialize cleanup cron: %v", err)
		return
	}

	c.Start()
	log.Printf("Cleanup cron initialized successfully")
}

// purgeDeletedGenerations 30 günden eski soft-delete kayıtları kalıcı siler
func purgeDeletedGenerations() {
	cutoff := time.Now().AddDate(0, 0, -30)

	res := database.DB.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&model.Generation{})

	if res.Error != nil {
		log.Printf("Error purging deleted generations: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("Purged %d deleted generations", res.RowsAffected)
	}
}

func purgeOldDailyUsage() {
	cutoff := time.Now().AddDate(0, 0, -90)

	res := database.DB.Where("date < ?", cutoff.Format("2006-01-02")).
		Delete(&model.DailyUsage{})

	if res.Error != nil {
		log.Printf("Error purging old daily usage: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("Purged %d old daily usage rows", res.RowsAffected)
	}
}

// failStuckGenerations webhook'u hiç gelmeyen üretimler için güvenlik ağı:
// bir saatten uzun süredir PROCESSING olanlar başarısız sayılır ve iade edilir
func failStuckGenerations() {
	cutoff := time.Now().Add(-1 * time.Hour)

	var stuck []model.Generation
	if err := database.DB.
		Where("status IN ? AND updated_at < ?",
			[]model.GenerationStatus{model.GenerationPending, model.GenerationProcessing}, cutoff).
		Find(&stuck).Error; err != nil {
		log.Printf("Error fetching stuck generations: %v", err)
		return
	}

	for _, gen := range stuck {
		genID := gen.ID
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&model.Generation{}).
				Where("id = ? AND status IN ?", genID,
					[]model.GenerationStatus{model.GenerationPending, model.GenerationProcessing}).
				Updates(map[string]interface{}{
					"status":        model.GenerationFailed,
					"error_message": "Generation timed out",
				}).Error; err != nil {
				return err
			}
			_, err := credits.RefundGenerationTx(tx, genID)
			return err
		})
		if err != nil {
			log.Printf("Error failing stuck generation %d: %v", genID, err)
			continue
		}
		log.Printf("Marked stuck generation %d as failed and refunded", genID)
	}
}
