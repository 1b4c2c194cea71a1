// Package quota plan bazlı günlük üretim limitlerini uygular. Kredi bakiyesinden
// bağımsızdır; sadece sayı/süre/çözünürlük/model tavanlarına bakar.
package quota

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/plan"
)

type CheckResult struct {
	Allowed         bool
	Remaining       int // plan.Unlimited = sınırsız
	Plan            plan.Type
	Priority        plan.Priority
	Message         string
	UpgradeRequired bool
}

// Today kota gününün başlangıcını verir. Okuma ve artırma aynı tanımı kullanır:
// UTC gece yarısı.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// userPlan kullanıcının planını ve abonelik durumunu okur. Abonelik kaydı yoksa
// FREE/ACTIVE varsayılır.
func userPlan(userID uint) (plan.Type, model.SubscriptionStatus) {
	var sub model.Subscription
	if err := database.DB.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return plan.Free, model.SubscriptionActive
	}
	return sub.Plan, sub.Status
}

// CheckQuota üretim isteğini plan tavanlarına karşı değerlendirir.
// İlk başarısız kontrolde durur.
func CheckQuota(userID uint, requestedDuration int, requestedModel, requestedResolution string) (CheckResult, error) {
	userPlanType, status := userPlan(userID)
	limits := plan.GetPlanLimits(userPlanType)

	// FREE dışındaki planlar için abonelik aktif olmalı
	if userPlanType != plan.Free && status != model.SubscriptionActive {
		return CheckResult{
			Plan:            userPlanType,
			Message:         "Your subscription is not active",
			UpgradeRequired: true,
		}, nil
	}

	if !plan.IsModelAllowed(userPlanType, requestedModel) {
		return CheckResult{
			Plan:            userPlanType,
			Message:         fmt.Sprintf("%s is not available on your plan. Upgrade to access all models.", requestedModel),
			UpgradeRequired: true,
		}, nil
	}

	if !plan.ResolutionWithin(requestedResolution, limits.MaxResolution) {
		return CheckResult{
			Plan:            userPlanType,
			Message:         fmt.Sprintf("Your plan only supports up to %s resolution", limits.MaxResolution),
			UpgradeRequired: true,
		}, nil
	}

	if requestedDuration > limits.MaxDurationPerVideo {
		return CheckResult{
			Plan:            userPlanType,
			Message:         fmt.Sprintf("Maximum duration is %d seconds on your plan", limits.MaxDurationPerVideo),
			UpgradeRequired: true,
		}, nil
	}

	// Sınırsız planlar için günlük sayaca bakılmaz
	if limits.DailyGenerations == plan.Unlimited {
		return CheckResult{
			Allowed:   true,
			Remaining: plan.Unlimited,
			Plan:      userPlanType,
			Priority:  limits.QueuePriority,
		}, nil
	}

	var usage model.DailyUsage
	err := database.DB.Where("user_id = ? AND date = ?", userID, Today()).First(&usage).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return CheckResult{}, err
	}

	remaining := limits.DailyGenerations - usage.Count
	if remaining < 0 {
		remaining = 0
	}

	if remaining == 0 {
		return CheckResult{
			Plan:            userPlanType,
			Message:         "Daily quota exceeded. Upgrade for more generations.",
			UpgradeRequired: true,
		}, nil
	}

	if limits.MaxTotalDuration != plan.Unlimited && usage.Duration+requestedDuration > limits.MaxTotalDuration {
		return CheckResult{
			Remaining:       remaining,
			Plan:            userPlanType,
			Message:         "Daily duration limit exceeded",
			UpgradeRequired: true,
		}, nil
	}

	return CheckResult{
		Allowed:   true,
		Remaining: remaining,
		Plan:      userPlanType,
		Priority:  limits.QueuePriority,
	}, nil
}

// IncrementDailyUsage günün sayacını atomik create-or-increment ile günceller.
// Sadece üretim fiilen başladıktan sonra, çağrı başına bir kez çağrılmalıdır.
func IncrementDailyUsage(userID uint, duration int) error {
	usage := model.DailyUsage{
		UserID:   userID,
		Date:     Today(),
		Count:    1,
		Duration: duration,
	}

	return database.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("count + 1"),
			"duration":   gorm.Expr("duration + ?", duration),
			"updated_at": time.Now(),
		}),
	}).Create(&usage).Error
}

type UsageSummary struct {
	Plan      plan.Type       `json:"plan"`
	Limits    plan.PlanLimits `json:"limits"`
	Used      int             `json:"used"`
	UsedSecs  int             `json:"used_duration"`
	Remaining int             `json:"remaining"`
}

// GetUserQuota dashboard için güncel kota durumunu döndürür.
func GetUserQuota(userID uint) (UsageSummary, error) {
	userPlanType, _ := userPlan(userID)
	limits := plan.GetPlanLimits(userPlanType)

	var usage model.DailyUsage
	err := database.DB.Where("user_id = ? AND date = ?", userID, Today()).First(&usage).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return UsageSummary{}, err
	}

	remaining := plan.Unlimited
	if limits.DailyGenerations != plan.Unlimited {
		remaining = limits.DailyGenerations - usage.Count
		if remaining < 0 {
			remaining = 0
		}
	}

	return UsageSummary{
		Plan:      userPlanType,
		Limits:    limits,
		Used:      usage.Count,
		UsedSecs:  usage.Duration,
		Remaining: remaining,
	}, nil
}
