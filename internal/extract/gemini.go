package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/eventsync/eventsync/internal/event"
)

const geminiModel = "gemini-2.0-flash"

// GeminiExtractor runs extraction on Google's Gemini vision models.
type GeminiExtractor struct {
	client *genai.Client
	now    func() time.Time
}

// NewGeminiExtractor builds an extractor on a fresh genai client.
func NewGeminiExtractor(ctx context.Context, apiKey string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiExtractor{client: client, now: time.Now}, nil
}

// Close releases the underlying client connection.
func (e *GeminiExtractor) Close() error {
	return e.client.Close()
}

// Extract sends the screenshot and the extraction prompt to Gemini and
// parses the JSON-array reply.
func (e *GeminiExtractor) Extract(ctx context.Context, image []byte) ([]event.Record, error) {
	now := e.now()
	model := e.client.GenerativeModel(geminiModel)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData("jpeg", image),
		genai.Text(buildPrompt(now)),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	var text string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return parseModelResponse(text, now), nil
}
