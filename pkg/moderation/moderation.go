// Package moderation prompt'ları üretim başlamadan önce tarar. Sınıflandırma
// tamamen deterministiktir: dış servis veya model çağrısı yoktur.
package moderation

import (
	"fmt"
	"regexp"
	"strings"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/database"
)

const MaxPromptLength = 1000

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Result struct {
	Allowed      bool
	Flagged      bool
	Severity     Severity
	Reason       string
	BlockedTerms []string
}

// Engellenen kelimeler
var blockedWords = []string{
	// Şiddet
	"kill", "murder", "suicide", "bomb", "terrorist", "shooting", "massacre",
	// Yetişkin içerik
	"nude", "naked", "porn", "xxx", "nsfw", "explicit", "erotic",
	// Nefret söylemi
	"racist", "nazi", "supremacist",
	// Yasa dışı
	"drug dealing", "trafficking",
}

// Kritik kalıplar: eşleşme anında critical ile reddedilir
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)child\s*(porn|abuse|exploitation)`),
	regexp.MustCompile(`(?i)minor\s*(nude|naked|sexual)`),
	regexp.MustCompile(`(?i)(deep\s*fake|deepfake)\s*(porn|nude)`),
	regexp.MustCompile(`(?i)revenge\s*porn`),
	regexp.MustCompile(`(?i)non\s*consensual`),
}

// Filtre atlatma denemeleri (karakter değiştirme)
var obfuscationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(n|0|@)\s*(u|0)\s*d\s*(e|3)`),
	regexp.MustCompile(`(?i)\b(p|0)\s*(o|0)\s*r\s*n`),
}

// İnceleme listesi: otomatik engellenmez ama işaretlenebilir
var reviewWords = []string{
	"violence", "blood", "weapon", "gun", "knife",
	"sexy", "bikini", "lingerie",
	"death", "dead", "dying",
	"drugs", "alcohol", "smoke",
}

var allowedRune = regexp.MustCompile(`[^\w\s,.!?'-]`)
var multiSpace = regexp.MustCompile(`\s+`)

// Sanitize prompt'u normalize eder. İdempotenttir:
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(prompt string) string {
	s := allowedRune.ReplaceAllString(prompt, "")
	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if len(s) > MaxPromptLength {
		s = strings.TrimSpace(s[:MaxPromptLength])
	}
	return s
}

// Moderate normalize edilmiş prompt'u sınıflandırır.
func Moderate(prompt string) Result {
	normalized := strings.ToLower(strings.TrimSpace(prompt))

	// Önce kritik kalıplar
	for _, pattern := range blockedPatterns {
		if pattern.MatchString(normalized) {
			return Result{
				Allowed:  false,
				Flagged:  true,
				Reason:   "Content violates our terms of service",
				Severity: SeverityCritical,
			}
		}
	}

	// Engellenen kelime kontrolü
	var found []string
	for _, word := range blockedWords {
		if strings.Contains(normalized, word) {
			found = append(found, word)
		}
	}

	if len(found) > 0 {
		severity := SeverityMedium
		if len(found) > 2 {
			severity = SeverityHigh
		}
		return Result{
			Allowed:      false,
			Flagged:      true,
			Reason:       "Prompt contains inappropriate content",
			Severity:     severity,
			BlockedTerms: found,
		}
	}

	// Atlatma denemeleri
	for _, pattern := range obfuscationPatterns {
		if pattern.MatchString(normalized) {
			return Result{
				Allowed:  false,
				Flagged:  true,
				Reason:   "Suspicious content detected",
				Severity: SeverityMedium,
			}
		}
	}

	return Result{Allowed: true, Flagged: false}
}

// ShouldFlagForReview manuel inceleme gerektirebilecek içerikleri işaretler
func ShouldFlagForReview(prompt string) bool {
	normalized := strings.ToLower(prompt)
	for _, word := range reviewWords {
		if strings.Contains(normalized, word) {
			return true
		}
	}
	return false
}

// Category denetim kaydı için kategori etiketi
func Category(result Result) string {
	if !result.Flagged {
		return "clean"
	}
	switch result.Severity {
	case SeverityCritical:
		return "critical_violation"
	case SeverityHigh:
		return "high_violation"
	case SeverityMedium:
		return "medium_violation"
	default:
		return "low_violation"
	}
}

// Screen sanitize + moderate çalıştırır ve kararı denetim kaydına yazar.
// Denetim kaydı yazılamazsa hata çağırana döner, sessizce atlanmaz.
func Screen(userID uint, prompt string) (Result, error) {
	sanitized := Sanitize(prompt)
	result := Moderate(sanitized)

	action := model.ModerationAllowed
	if !result.Allowed {
		if result.Severity == SeverityCritical {
			action = model.ModerationBlocked
		} else {
			action = model.ModerationFlagged
		}
	}

	entry := model.ModerationLog{
		UserID:        userID,
		ContentLength: len(prompt),
		Action:        action,
		Severity:      string(result.Severity),
		Category:      Category(result),
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		return Result{}, fmt.Errorf("could not record moderation decision: %w", err)
	}

	return result, nil
}
