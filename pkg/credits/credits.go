// Package credits hesap başına kredi bakiyesini yönetir. Düşüm ve iade tek
// transaction içinde koşullu UPDATE ile yapılır; bakiye hiçbir sırada negatife
// düşemez ve bir iş için düşüm/iade en fazla birer kez uygulanır.
package credits

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/database"
	"vidora_backend/pkg/plan"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrGenerationNotFound  = errors.New("generation not found")
)

type CheckResult struct {
	Allowed         bool
	CurrentCredits  int
	RequiredCredits int
	Plan            plan.Type
	Message         string
	UpgradeRequired bool
}

// GetOrCreateSubscription kullanıcının aboneliğini okur, yoksa FREE plan ve
// aylık tahsisatıyla oluşturur.
func GetOrCreateSubscription(userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := database.DB.Where("user_id = ?", userID).First(&sub).Error
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	freeCredits := plan.GetPlanLimits(plan.Free).MonthlyCredits
	sub = model.Subscription{
		UserID:         userID,
		Plan:           plan.Free,
		Status:         model.SubscriptionActive,
		Credits:        freeCredits,
		MonthlyCredits: freeCredits,
	}
	if err := database.DB.Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// CheckCredits bakiyenin model maliyetini karşılayıp karşılamadığına bakar.
// Bu kontrol danışma amaçlıdır; asıl doğrulama DeductCredits içindedir.
func CheckCredits(userID uint, modelID string) (CheckResult, error) {
	sub, err := GetOrCreateSubscription(userID)
	if err != nil {
		return CheckResult{}, err
	}

	required := plan.CreditsForModel(modelID)

	// Ücretli planlar için abonelik aktif olmalı
	if sub.Plan != plan.Free && sub.Status != model.SubscriptionActive {
		return CheckResult{
			CurrentCredits:  sub.Credits,
			RequiredCredits: required,
			Plan:            sub.Plan,
			Message:         "Your subscription is not active",
			UpgradeRequired: true,
		}, nil
	}

	if sub.Credits < required {
		return CheckResult{
			CurrentCredits:  sub.Credits,
			RequiredCredits: required,
			Plan:            sub.Plan,
			Message:         fmt.Sprintf("Not enough credits. You need %d credits but only have %d.", required, sub.Credits),
			UpgradeRequired: true,
		}, nil
	}

	return CheckResult{
		Allowed:         true,
		CurrentCredits:  sub.Credits,
		RequiredCredits: required,
		Plan:            sub.Plan,
	}, nil
}

// DeductCredits bakiyeden model maliyetini düşer ve işin credits_used alanını
// aynı transaction içinde damgalar. Koşullu UPDATE yeterliliği yeniden doğrular;
// CheckCredits ile arada bakiye tükendiyse ErrInsufficientCredits döner.
func DeductCredits(userID uint, modelID string, generationID uint) (int, error) {
	cost := plan.CreditsForModel(modelID)

	var remaining int
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Subscription{}).
			Where("user_id = ? AND credits >= ?", userID, cost).
			Update("credits", gorm.Expr("credits - ?", cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCredits
		}

		if err := tx.Model(&model.Generation{}).
			Where("id = ?", generationID).
			Update("credits_used", cost).Error; err != nil {
			return err
		}

		var sub model.Subscription
		if err := tx.Where("user_id = ?", userID).First(&sub).Error; err != nil {
			return err
		}
		remaining = sub.Credits
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// RefundCredits koşulsuz bakiye artırımı. Admin manuel iadeleri için.
func RefundCredits(userID uint, amount int) error {
	if amount <= 0 {
		return nil
	}
	return database.DB.Model(&model.Subscription{}).
		Where("user_id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", amount)).Error
}

// RefundGenerationTx başarısız bir işin kredisini verilen transaction içinde
// iade eder. credits_used sıfırsa (hiç düşüm yapılmadı veya iade zaten
// uygulandı) hiçbir şey yapmaz; aynı iş için ikinci iade bu sayede imkansızdır.
// Dönen değer iade edilen kredi miktarıdır.
func RefundGenerationTx(tx *gorm.DB, generationID uint) (int, error) {
	var gen model.Generation
	if err := tx.Unscoped().Where("id = ?", generationID).First(&gen).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrGenerationNotFound
		}
		return 0, err
	}

	if gen.CreditsUsed <= 0 {
		return 0, nil
	}

	// İade işaretçisi önce sıfırlanır; koşullu UPDATE sayesinde aynı iş
	// için eşzamanlı ikinci iade satır bulamaz.
	res := tx.Unscoped().Model(&model.Generation{}).
		Where("id = ? AND credits_used > 0", gen.ID).
		Update("credits_used", 0)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}

	if err := tx.Model(&model.Subscription{}).
		Where("user_id = ?", gen.UserID).
		Update("credits", gorm.Expr("credits + ?", gen.CreditsUsed)).Error; err != nil {
		return 0, err
	}

	return gen.CreditsUsed, nil
}

// RefundGeneration RefundGenerationTx'i kendi transaction'ı içinde çalıştırır.
func RefundGeneration(generationID uint) (int, error) {
	refunded := 0
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		refunded, txErr = RefundGenerationTx(tx, generationID)
		return txErr
	})
	return refunded, err
}

// ResetMonthlyCredits bakiyeyi planın aylık tahsisatına eşitler. Toplamaz:
// kullanılmayan krediler devretmez.
func ResetMonthlyCredits(userID uint) error {
	var sub model.Subscription
	if err := database.DB.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return err
	}

	monthly := plan.GetPlanLimits(sub.Plan).MonthlyCredits
	now := time.Now()
	return database.DB.Model(&sub).Updates(map[string]interface{}{
		"credits":          monthly,
		"monthly_credits":  monthly,
		"credits_reset_at": now,
	}).Error
}

type BalanceSummary struct {
	Plan           plan.Type                `json:"plan"`
	Credits        int                      `json:"credits"`
	MonthlyCredits int                      `json:"monthly_credits"`
	Status         model.SubscriptionStatus `json:"status"`
}

// GetUserCredits dashboard için bakiye özetini döndürür.
func GetUserCredits(userID uint) (BalanceSummary, error) {
	sub, err := GetOrCreateSubscription(userID)
	if err != nil {
		return BalanceSummary{}, err
	}
	return BalanceSummary{
		Plan:           sub.Plan,
		Credits:        sub.Credits,
		MonthlyCredits: sub.MonthlyCredits,
		Status:         sub.Status,
	}, nil
}
