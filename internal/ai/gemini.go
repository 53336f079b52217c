package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used for generation and vision OCR when a request
// does not name a model.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClient adapts the Gemini SDK to the generation and vision-OCR
// contracts of the pipeline.
type GeminiClient struct {
	client      *genai.Client
	visionModel string
}

// NewGeminiClient creates a Gemini client. visionModel selects the model
// used for OCR; empty means the default.
func NewGeminiClient(ctx context.Context, apiKey, visionModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if visionModel == "" {
		visionModel = DefaultGeminiModel
	}
	return &GeminiClient{client: client, visionModel: visionModel}, nil
}

// Complete sends a single prompt and returns the concatenated text parts of
// the first candidate.
func (c *GeminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	gm := c.client.GenerativeModel(model)
	gm.SetTemperature(0.2)

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	text := collectText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini returned no text candidates")
	}
	return text, nil
}

// DefaultModel returns the generation model used when none is requested.
func (c *GeminiClient) DefaultModel() string { return DefaultGeminiModel }

// ExtractImageText runs a vision completion over a single image.
func (c *GeminiClient) ExtractImageText(ctx context.Context, imageData []byte, format, prompt string) (string, error) {
	gm := c.client.GenerativeModel(c.visionModel)
	gm.SetTemperature(0.1)

	resp, err := gm.GenerateContent(ctx,
		genai.ImageData(format, imageData),
		genai.Text(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("gemini vision call failed: %w", err)
	}
	text := collectText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini vision returned no text")
	}
	return text, nil
}

// ModelName identifies the vision model for extraction metadata.
func (c *GeminiClient) ModelName() string { return c.visionModel }

// Close releases the underlying SDK client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
