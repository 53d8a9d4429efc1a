package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/eventsync/eventsync/internal/event"
)

// OpenAIExtractor runs extraction on an OpenAI vision-capable chat model.
// Selected by configuration as an alternative to Gemini.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func NewOpenAIExtractor(apiKey string) *OpenAIExtractor {
	return &OpenAIExtractor{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4oMini,
		now:    time.Now,
	}
}

// Extract sends the screenshot inline as a data URL alongside the extraction
// prompt and parses the JSON-array reply.
func (e *OpenAIExtractor) Extract(ctx context.Context, image []byte) ([]event.Record, error) {
	now := e.now()
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: buildPrompt(now),
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}
	return parseModelResponse(resp.Choices[0].Message.Content, now), nil
}
