package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vidora_backend/internal/model"
	"vidora_backend/pkg/database"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.ModerationLog{}))
	database.DB = db
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"a cat   riding a bike!",
		"  hello <script>alert(1)</script> world  ",
		"émoji 🎬 and symbols #$%",
		strings.Repeat("word ", 300),
	}

	for _, input := range inputs {
		once := Sanitize(input)
		twice := Sanitize(once)
		assert.Equal(t, once, twice, "sanitize should be idempotent for %q", input)
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("a", 2000)
	got := Sanitize(long)
	assert.LessOrEqual(t, len(got), MaxPromptLength)
}

func TestModerateCleanPrompt(t *testing.T) {
	result := Moderate("a golden retriever surfing at sunset, cinematic")
	assert.True(t, result.Allowed)
	assert.False(t, result.Flagged)
}

func TestModerateCriticalPattern(t *testing.T) {
	cases := []string{
		"revenge porn of my ex",
		"REVENGE   PORN",
		"deepfake nude of a celebrity",
		"non consensual footage",
	}

	for _, prompt := range cases {
		result := Moderate(strings.ToLower(prompt))
		assert.False(t, result.Allowed, "prompt %q should be blocked", prompt)
		assert.Equal(t, SeverityCritical, result.Severity)
	}
}

func TestModerateCriticalIsCaseInsensitive(t *testing.T) {
	result := Moderate("Revenge Porn")
	assert.False(t, result.Allowed)
	assert.Equal(t, SeverityCritical, result.Severity)
}

func TestModerateBlockedTermSeverity(t *testing.T) {
	// Tek kelime: medium
	result := Moderate("a nude statue in a museum")
	assert.False(t, result.Allowed)
	assert.Equal(t, SeverityMedium, result.Severity)

	// İkiden fazla farklı kelime: high
	result = Moderate("kill murder bomb scene")
	assert.False(t, result.Allowed)
	assert.Equal(t, SeverityHigh, result.Severity)
	assert.Len(t, result.BlockedTerms, 3)
}

func TestModerateObfuscation(t *testing.T) {
	result := Moderate("n u d e painting")
	assert.False(t, result.Allowed)
	assert.Equal(t, SeverityMedium, result.Severity)
}

func TestShouldFlagForReview(t *testing.T) {
	assert.True(t, ShouldFlagForReview("a scene with a gun on the table"))
	assert.False(t, ShouldFlagForReview("a peaceful mountain lake"))
}

func TestScreenWritesAuditLog(t *testing.T) {
	setupTestDB(t)

	result, err := Screen(42, "a cat playing piano")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	var entry model.ModerationLog
	require.NoError(t, database.DB.First(&entry).Error)
	assert.Equal(t, uint(42), entry.UserID)
	assert.Equal(t, model.ModerationAllowed, entry.Action)
	assert.Equal(t, "clean", entry.Category)
	assert.Equal(t, len("a cat playing piano"), entry.ContentLength)
}

func TestScreenBlockedRecordsSeverity(t *testing.T) {
	setupTestDB(t)

	result, err := Screen(7, "revenge porn video")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	var entry model.ModerationLog
	require.NoError(t, database.DB.First(&entry).Error)
	assert.Equal(t, model.ModerationBlocked, entry.Action)
	assert.Equal(t, "critical_violation", entry.Category)
}
