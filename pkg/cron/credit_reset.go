package cron

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/plan"
)

var (
	lastResetRun time.Time
	resetMutex   sync.Mutex
)

// InitCreditResetCron her ayın ilk günü gece yarısı Stripe aboneliği olmayan
// planların kredilerini tahsisata sıfırlar. Stripe'a bağlı planlar
// invoice.payment_succeeded webhook'unda sıfırlanır.
func InitCreditResetCron() {
	c := cron.New()

	// Her ayın 1'i, gece yarısı
	_, err := c.AddFunc("0 0 1 * *", func() {
		resetMutex.Lock()
		defer resetMutex.Unlock()

		// Çift çalışmayı önle
		if time.Since(lastResetRun) < 23*time.Hour {
			log.Printf("Credit reset already ran today, skipping...")
			return
		}

		resetFreeTierCredits()
		lastResetRun = time.Now()
	})

	if err != nil {
		log.Printf("Could not initialize credit reset cron: %v", err)
		return
	}

	c.Start()
	log.Printf("Credit reset cron initialized successfully")
}

func resetFreeTierCredits() {
	freeCredits := plan.GetPlanLimits(plan.Free).MonthlyCredits
	now := time.Now()

	res := database.DB.Model(&model.Subscription{}).
		Where("plan = ? AND stripe_subscription_id = ''", plan.Free).
		Updates(map[string]interface{}{
			"credits":          freeCredits,
			"monthly_credits":  freeCredits,
			"credits_reset_at": now,
		})

	if res.Error != nil {
		log.Printf("Error resetting free tier credits: %v", res.Error)
		return
	}

	log.Printf("Reset credits for %d free tier subscriptions", res.RowsAffected)
}
