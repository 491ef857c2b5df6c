package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini uses the Google generative AI SDK.
type Gemini struct {
	client *genai.Client
	model  string
	temp   float32
	max    int
}

func NewGemini(ctx context.Context, p Params) (*Gemini, error) {
	opts := []option.ClientOption{option.WithAPIKey(p.APIKey)}
	if p.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(p.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := p.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{client: client, model: model, temp: p.Temperature, max: p.MaxTokens}, nil
}

func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temp)
	if g.max > 0 {
		model.SetMaxOutputTokens(int32(g.max))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyCompletion
	}
	return text.String(), nil
}
