package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Generation Kind
type GenerationKind string

const (
	GenerationKindVideo GenerationKind = "video"
	GenerationKindImage GenerationKind = "image"
)

// Generation Type
type GenerationType string

const (
	TextToVideo  GenerationType = "TEXT_TO_VIDEO"
	ImageToVideo GenerationType = "IMAGE_TO_VIDEO"
	TextToImage  GenerationType = "TEXT_TO_IMAGE"
)

// Generation Status
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "PENDING"
	GenerationQueued     GenerationStatus = "QUEUED"
	GenerationProcessing GenerationStatus = "PROCESSING"
	GenerationCompleted  GenerationStatus = "COMPLETED"
	GenerationFailed     GenerationStatus = "FAILED"
)

// Generation tek bir üretim isteğinin yaşam döngüsünü tutar.
// CreditsUsed, kredi düşümü başarılı olana kadar sıfırdır; iade uygulandığında
// tekrar sıfırlanır. Bu alan aynı zamanda iade işaretçisidir: CreditsUsed == 0
// olan bir iş için ikinci kez iade yapılamaz.
type Generation struct {
	gorm.Model
	UserID uint           `json:"user_id" gorm:"index;not null"`
	Kind   GenerationKind `json:"kind" gorm:"type:varchar(10);not null"`

	Title          string         `json:"title"`
	Prompt         string         `json:"prompt" gorm:"type:text;not null"`
	GenerationType GenerationType `json:"generation_type" gorm:"type:varchar(20);not null"`
	AIModel        string         `json:"ai_model" gorm:"not null"`
	Duration       int            `json:"duration"`
	Resolution     string         `json:"resolution"`
	AspectRatio    string         `json:"aspect_ratio"`
	Seed           *int64         `json:"seed"`
	SourceImageKey string         `json:"source_image_key"`

	Status       GenerationStatus `json:"status" gorm:"type:varchar(12);default:'PENDING';index"`
	Progress     int              `json:"progress" gorm:"default:0"`
	CreditsUsed  int              `json:"credits_used" gorm:"default:0"`
	AITaskID     string           `json:"-" gorm:"index"`
	AIProvider   string           `json:"-"`
	OutputKey    string           `json:"output_key"`
	ErrorMessage string           `json:"error_message"`

	ShareSlug string `json:"share_slug" gorm:"index"`
	IsPublic  bool   `json:"is_public" gorm:"default:false"`

	// İstek parametrelerinin ham kopyası (debug için)
	Params datatypes.JSON `json:"-"`

	CompletedAt *time.Time `json:"completed_at"`

	// İlişkiler
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// IsTerminal true dönerse iş için artık durum değişikliği yapılmaz.
func (g *Generation) IsTerminal() bool {
	return g.Status == GenerationCompleted || g.Status == GenerationFailed
}
