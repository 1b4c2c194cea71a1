// Package ai Replicate üzerinden video/görsel üretimini başlatır. Tamamlanma
// webhook ile bildirilir; bu katman sadece task'i başlatır, retry yapmaz.
package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"
)

const apiBaseURL = "https://api.replicate.com/v1"

type GenerationInput struct {
	Prompt      string
	ImageURL    string
	Duration    int
	Resolution  string
	AspectRatio string
	Seed        *int64
	Model       string
}

type GenerationResult struct {
	TaskID string
	Status string // starting, processing, succeeded, failed
	Error  string
}

type ModelConfig struct {
	Name           string
	DisplayName    string
	Kind           string // text-to-video, image-to-video, text-to-image
	ReplicateModel string
	MaxDuration    int
}

// ModelConfigs desteklenen modeller ve Replicate karşılıkları
var ModelConfigs = map[string]ModelConfig{
	"seedance-2": {
		Name:           "seedance-2",
		DisplayName:    "Seedance 2.0",
		Kind:           "text-to-video",
		ReplicateModel: "lucataco/animate-diff:1531004ee4c98894ab11f8a4ce6206099e732c1da15121987a8eef54828f0663",
		MaxDuration:    10,
	},
	"seedance-1.5-pro": {
		Name:           "seedance-1.5-pro",
		DisplayName:    "Seedance 1.5 Pro",
		Kind:           "text-to-video",
		ReplicateModel: "lucataco/animate-diff:1531004ee4c98894ab11f8a4ce6206099e732c1da15121987a8eef54828f0663",
		MaxDuration:    8,
	},
	"sora-2": {
		Name:           "sora-2",
		DisplayName:    "Sora 2",
		Kind:           "text-to-video",
		ReplicateModel: "stability-ai/stable-video-diffusion:3f0457e4619daac51203dedb472816fd4af51f3149fa7a9e0b5ffcf1b8172438",
		MaxDuration:    6,
	},
	"veo-3": {
		Name:           "veo-3",
		DisplayName:    "Veo 3",
		Kind:           "text-to-video",
		ReplicateModel: "lucataco/animate-diff:1531004ee4c98894ab11f8a4ce6206099e732c1da15121987a8eef54828f0663",
		MaxDuration:    8,
	},
	"wan-2.5": {
		Name:           "wan-2.5",
		DisplayName:    "Wan 2.5",
		Kind:           "text-to-video",
		ReplicateModel: "lucataco/animate-diff:1531004ee4c98894ab11f8a4ce6206099e732c1da15121987a8eef54828f0663",
		MaxDuration:    10,
	},
	"kling-ai": {
		Name:           "kling-ai",
		DisplayName:    "Kling AI",
		Kind:           "text-to-video",
		ReplicateModel: "lucataco/animate-diff:1531004ee4c98894ab11f8a4ce6206099e732c1da15121987a8eef54828f0663",
		MaxDuration:    10,
	},
	"hailuo-ai": {
		Name:           "hailuo-ai",
		DisplayName:    "Hailuo AI",
		Kind:           "text-to-video",
		ReplicateModel: "lucataco/animate-diff:1531004ee4c98894ab11f8a4ce6206099e732c1da15121987a8eef54828f0663",
		MaxDuration:    6,
	},
	"stable-video-diffusion": {
		Name:           "stable-video-diffusion",
		DisplayName:    "Stable Video Diffusion",
		Kind:           "image-to-video",
		ReplicateModel: "stability-ai/stable-video-diffusion:3f0457e4619daac51203dedb472816fd4af51f3149fa7a9e0b5ffcf1b8172438",
		MaxDuration:    4,
	},
	"flux-schnell": {
		Name:           "flux-schnell",
		DisplayName:    "Flux Schnell",
		Kind:           "text-to-image",
		ReplicateModel: "black-forest-labs/flux-schnell",
		MaxDuration:    0,
	},
}

var httpClient = &http.Client{Timeout: 60 * time.Second}

type predictionRequest struct {
	Version string                 `json:"version"`
	Input   map[string]interface{} `json:"input"`
	Webhook string                 `json:"webhook,omitempty"`
}

type predictionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func seedOrRandom(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return rand.Int63n(1000000)
}

// buildInput model bazlı Replicate input parametrelerini hazırlar
func buildInput(cfg ModelConfig, input GenerationInput) map[string]interface{} {
	switch cfg.Kind {
	case "image-to-video":
		return map[string]interface{}{
			"input_image": input.ImageURL,
			"seed":        seedOrRandom(input.Seed),
		}
	case "text-to-image":
		return map[string]interface{}{
			"prompt": input.Prompt,
			"seed":   seedOrRandom(input.Seed),
		}
	default:
		frames := input.Duration * 8
		maxFrames := cfg.MaxDuration * 8
		if frames > maxFrames {
			frames = maxFrames
		}
		return map[string]interface{}{
			"prompt":     input.Prompt,
			"num_frames": frames,
			"seed":       seedOrRandom(input.Seed),
		}
	}
}

// StartGeneration Replicate prediction'ı başlatır. Dönen TaskID webhook
// eşleşmesi için saklanmalıdır. Çağrı başarısızsa iş bu katmanda terminaldir.
func StartGeneration(modelID string, input GenerationInput, webhookURL string) (*GenerationResult, error) {
	cfg, exists := ModelConfigs[modelID]
	if !exists {
		return nil, fmt.Errorf("unknown model: %s", modelID)
	}

	reqBody := predictionRequest{
		Version: cfg.ReplicateModel,
		Input:   buildInput(cfg, input),
		Webhook: webhookURL,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, apiBaseURL+"/predictions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+os.Getenv("REPLICATE_API_TOKEN"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach AI provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GenerationResult{
			Status: "failed",
			Error:  fmt.Sprintf("AI provider returned %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	var prediction predictionResponse
	if err := json.Unmarshal(body, &prediction); err != nil {
		return nil, err
	}

	result := &GenerationResult{
		TaskID: prediction.ID,
		Status: prediction.Status,
		Error:  prediction.Error,
	}
	if prediction.Status == "failed" || prediction.Status == "canceled" {
		result.Status = "failed"
	}
	return result, nil
}
