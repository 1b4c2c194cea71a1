package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPlanLimitsUnknownFallsBackToFree(t *testing.T) {
	limits := GetPlanLimits(Type("ENTERPRISE"))
	assert.Equal(t, PlanFeatures[Free], limits)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(Free))
	assert.True(t, Valid(Max))
	assert.False(t, Valid(Type("PLATINUM")))
	assert.False(t, Valid(Type("free")))
}

func TestCreditsForModel(t *testing.T) {
	assert.Equal(t, 120, CreditsForModel("seedance-1.5-pro"))
	assert.Equal(t, 200, CreditsForModel("sora-2"))
	// Tabloda olmayan model varsayılan maliyete düşer
	assert.Equal(t, DefaultModelCredits, CreditsForModel("unknown-model-v9"))
}

func TestIsModelAllowed(t *testing.T) {
	tests := []struct {
		name    string
		plan    Type
		modelID string
		want    bool
	}{
		{"free allows seedance", Free, "seedance-1.5-pro", true},
		{"free blocks sora", Free, "sora-2", false},
		{"basic allows kling", Basic, "kling-ai", true},
		{"basic blocks sora", Basic, "sora-2", false},
		{"pro wildcard allows anything", Pro, "sora-2", true},
		{"max wildcard allows unknown", Max, "brand-new-model", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsModelAllowed(tt.plan, tt.modelID))
		})
	}
}

func TestResolutionWithin(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		max       string
		want      bool
	}{
		{"720p within 720p", "720p", "720p", true},
		{"1080p exceeds 720p", "1080p", "720p", false},
		{"480p within 1080p", "480p", "1080p", true},
		{"4K within Unlimited", "4K", "Unlimited", true},
		{"unknown requested rejected", "8K", "1080p", false},
		{"unknown max allows all", "1080p", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolutionWithin(tt.requested, tt.max))
		})
	}
}

func TestStripePriceID(t *testing.T) {
	t.Setenv("STRIPE_PRICE_PRO_MONTHLY", "price_pro_m")
	t.Setenv("STRIPE_PRICE_PRO_YEARLY", "price_pro_y")

	assert.Equal(t, "price_pro_m", StripePriceID(Pro, false))
	assert.Equal(t, "price_pro_y", StripePriceID(Pro, true))
	assert.Equal(t, "", StripePriceID(Free, false))
}

func TestDeterminePlanType(t *testing.T) {
	t.Setenv("STRIPE_PRICE_BASIC_MONTHLY", "price_basic_m")
	t.Setenv("STRIPE_PRICE_MAX_YEARLY", "price_max_y")

	assert.Equal(t, Basic, DeterminePlanType("price_basic_m"))
	assert.Equal(t, Max, DeterminePlanType("price_max_y"))
	assert.Equal(t, Free, DeterminePlanType("price_unknown"))
}
