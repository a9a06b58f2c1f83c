package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements Scanner using Google Gemini.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGemini creates a Gemini scanner. A zero timeout means 60 seconds.
func NewGemini(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

// Scan sends the image with the receipt prompt and decodes the answer.
func (g *Gemini) Scan(ctx context.Context, image []byte, contentType string) (*Extraction, error) {
	format, err := imageFormat(contentType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(receiptPrompt))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return Decode(text)
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// imageFormat maps a MIME type to the suffix genai.ImageData expects.
func imageFormat(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/jpeg", "image/jpg":
		return "jpeg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	case "image/heic":
		return "heic", nil
	default:
		return "", fmt.Errorf("unsupported receipt image type %q", contentType)
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no response from gemini", ErrDecode)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
