package intent

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiModel backs the classifier with the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini-backed model. An empty API key falls back
// to Application Default Credentials.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Complete sends the prompt and returns the raw model text. The Gemini API
// has no separate system slot in this call shape, so the system prompt is
// prepended to the user turn.
func (g *GeminiModel) Complete(ctx context.Context, system, user string) (string, error) {
	content := genai.NewContentFromText(system+"\n\nUser question: "+user, genai.RoleUser)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates from Gemini")
	}

	var result strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			result.WriteString(part.Text)
		}
	}
	return result.String(), nil
}
