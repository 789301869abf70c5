package intel

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// GeminiGateway invokes Google's Gemini API.
type GeminiGateway struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiGateway creates a Gemini-backed gateway.
func NewGeminiGateway(ctx context.Context, cfg GeminiConfig) (*GeminiGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiGateway{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Invoke sends the prompt as a single user turn and returns the response text.
func (g *GeminiGateway) Invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(g.temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}

// Name returns the gateway name.
func (g *GeminiGateway) Name() string {
	return fmt.Sprintf("gemini:%s", g.model)
}
