package model

import "gorm.io/gorm"

type ModerationAction string

const (
	ModerationAllowed ModerationAction = "allowed"
	ModerationFlagged ModerationAction = "flagged"
	ModerationBlocked ModerationAction = "blocked"
)

// ModerationLog her içerik tarama kararını denetim için saklar.
// Engellenen içeriğin ham metni asla kaydedilmez, sadece uzunluğu.
type ModerationLog struct {
	gorm.Model
	UserID        uint             `json:"user_id" gorm:"index;not null"`
	ContentLength int              `json:"content_length" gorm:"not null"`
	Action        ModerationAction `json:"action" gorm:"type:varchar(10);not null"`
	Severity      string           `json:"severity"`
	Category      string           `json:"category"`
}
