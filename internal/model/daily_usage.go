package model

import "time"

// DailyUsage kullanıcı başına günlük üretim sayacı. Gün sınırı UTC gece yarısıdır.
// Sadece kota karşılaştırmaları için kullanılır, faturalama için değil.
type DailyUsage struct {
	ID     uint      `json:"id" gorm:"primaryKey"`
	UserID uint      `json:"user_id" gorm:"uniqueIndex:idx_user_day;not null"`
	Date   time.Time `json:"date" gorm:"uniqueIndex:idx_user_day;not null"`

	Count    int `json:"count" gorm:"not null;default:0"`
	Duration int `json:"duration" gorm:"not null;default:0"` // toplam istenen saniye

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
