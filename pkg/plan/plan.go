package plan

import "os"

type Type string
type Priority string

const (
	Free  Type = "FREE"
	Basic Type = "BASIC"
	Pro   Type = "PRO"
	Max   Type = "MAX"
)

const (
	PriorityLow     Priority = "low"
	PriorityNormal  Priority = "normal"
	PriorityHigh    Priority = "high"
	PriorityHighest Priority = "highest"
)

// Unlimited sınırsız günlük üretim / süre için kullanılır
const Unlimited = -1

// DefaultModelCredits tabloda olmayan modeller için varsayılan maliyet
const DefaultModelCredits = 100

type PlanLimits struct {
	DailyGenerations    int // Unlimited = sınırsız
	MaxDurationPerVideo int // saniye
	MaxTotalDuration    int // günlük toplam saniye, Unlimited = sınırsız
	MaxResolution       string
	AllowedModels       []string // "*" = tüm modeller
	QueuePriority       Priority
	MonthlyCredits      int
}

var PlanFeatures = map[Type]PlanLimits{
	Free: {
		DailyGenerations:    3,
		MaxDurationPerVideo: 5,
		MaxTotalDuration:    15,
		MaxResolution:       "720p",
		AllowedModels:       []string{"seedance-1.5-pro"},
		QueuePriority:       PriorityLow,
		MonthlyCredits:      100,
	},
	Basic: {
		DailyGenerations:    20,
		MaxDurationPerVideo: 10,
		MaxTotalDuration:    100,
		MaxResolution:       "1080p",
		AllowedModels:       []string{"seedance-1.5-pro", "seedance-2", "wan-2.5", "kling-ai", "hailuo-ai"},
		QueuePriority:       PriorityNormal,
		MonthlyCredits:      500,
	},
	Pro: {
		DailyGenerations:    Unlimited,
		MaxDurationPerVideo: 30,
		MaxTotalDuration:    Unlimited,
		MaxResolution:       "4K",
		AllowedModels:       []string{"*"},
		QueuePriority:       PriorityHigh,
		MonthlyCredits:      2000,
	},
	Max: {
		DailyGenerations:    Unlimited,
		MaxDurationPerVideo: 120,
		MaxTotalDuration:    Unlimited,
		MaxResolution:       "Unlimited",
		AllowedModels:       []string{"*"},
		QueuePriority:       PriorityHighest,
		MonthlyCredits:      10000,
	},
}

// ModelCredits model başına kredi maliyeti
var ModelCredits = map[string]int{
	"seedance-2.0":     150,
	"seedance-2":       150,
	"seedance-1.5-pro": 120,
	"sora-2":           200,
	"veo-3":            180,
	"wan-2.5":          100,
	"kling-ai":         80,
	"hailuo-ai":        60,
}

// Çözünürlük sıralaması karşılaştırma için
var resolutionOrder = []string{"480p", "720p", "1080p", "4K", "Unlimited"}

func GetPlanLimits(p Type) PlanLimits {
	limits, exists := PlanFeatures[p]
	if !exists {
		return PlanFeatures[Free]
	}
	return limits
}

func Valid(p Type) bool {
	_, exists := PlanFeatures[p]
	return exists
}

func CreditsForModel(modelID string) int {
	if cost, exists := ModelCredits[modelID]; exists {
		return cost
	}
	return DefaultModelCredits
}

// IsModelAllowed planın izin verdiği model listesini kontrol eder.
// "*" tüm modellere izin verir.
func IsModelAllowed(p Type, modelID string) bool {
	allowed := GetPlanLimits(p).AllowedModels
	if len(allowed) > 0 && allowed[0] == "*" {
		return true
	}
	for _, m := range allowed {
		if m == modelID {
			return true
		}
	}
	return false
}

func resolutionIndex(res string) int {
	for i, r := range resolutionOrder {
		if r == res {
			return i
		}
	}
	return -1
}

// ResolutionWithin istenen çözünürlüğün plan tavanını aşıp aşmadığını kontrol eder.
// Bilinmeyen çözünürlükler tavan içinde sayılmaz.
func ResolutionWithin(requested, max string) bool {
	maxIdx := resolutionIndex(max)
	reqIdx := resolutionIndex(requested)
	if maxIdx == -1 {
		return true
	}
	if reqIdx == -1 {
		return false
	}
	return reqIdx <= maxIdx
}

// DeterminePlanType Stripe price ID'sinden plan tipini belirler
func DeterminePlanType(stripePriceID string) Type {
	switch stripePriceID {
	case os.Getenv("STRIPE_PRICE_BASIC_MONTHLY"), os.Getenv("STRIPE_PRICE_BASIC_YEARLY"):
		return Basic
	case os.Getenv("STRIPE_PRICE_PRO_MONTHLY"), os.Getenv("STRIPE_PRICE_PRO_YEARLY"):
		return Pro
	case os.Getenv("STRIPE_PRICE_MAX_MONTHLY"), os.Getenv("STRIPE_PRICE_MAX_YEARLY"):
		return Max
	default:
		return Free
	}
}

// StripePriceID plan ve faturalama aralığı için env'de tanımlı price ID'yi döndürür
func StripePriceID(p Type, yearly bool) string {
	interval := "MONTHLY"
	if yearly {
		interval = "YEARLY"
	}
	switch p {
	case Basic:
		return os.Getenv("STRIPE_PRICE_BASIC_" + interval)
	case Pro:
		return os.Getenv("STRIPE_PRICE_PRO_" + interval)
	case Max:
		return os.Getenv("STRIPE_PRICE_MAX_" + interval)
	default:
		return ""
	}
}
