package model

import (
	"time"

	"gorm.io/gorm"

	"vidora_backend/pkg/plan"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
	SubscriptionTrialing SubscriptionStatus = "TRIALING"
	SubscriptionPaused   SubscriptionStatus = "PAUSED"
)

// Subscription her kullanıcı için tek kayıt tutar. İlk erişimde FREE plan ile
// oluşturulur, hiçbir zaman hard-delete edilmez.
type Subscription struct {
	gorm.Model
	UserID uint               `json:"user_id" gorm:"uniqueIndex;not null"`
	Plan   plan.Type          `json:"plan" gorm:"type:varchar(10);default:'FREE';not null"`
	Status SubscriptionStatus `json:"status" gorm:"type:varchar(10);default:'ACTIVE';not null"`

	// Kredi bakiyesi asla negatif olamaz
	Credits        int `json:"credits" gorm:"not null;default:0"`
	MonthlyCredits int `json:"monthly_credits" gorm:"not null;default:0"`

	StripeCustomerID     string `json:"-"`
	StripeSubscriptionID string `json:"-" gorm:"index"`
	StripePriceID        string `json:"-"`

	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end" gorm:"default:false"`
	CanceledAt         *time.Time `json:"canceled_at"`
	CreditsResetAt     *time.Time `json:"credits_reset_at"`

	// İlişkiler
	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive
}
