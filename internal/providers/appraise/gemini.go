package appraise

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
)

const valuationPrompt = `You are an expert appraiser of collectibles, antiques and secondhand goods.
Appraise the item shown in the attached photos. The owner describes its condition as %q.

Respond with a single JSON object using exactly these keys:
  item_name    - concise name of the item
  maker        - maker, author or manufacturer ("" if unknown)
  era          - production era or year range ("" if unknown)
  category     - one of: art, furniture, jewelry, watches, books, toys, electronics, fashion, collectibles, other
  description  - two or three sentences describing the item
  price_low    - low bound of the fair market value, number
  price_high   - high bound of the fair market value, number
  currency     - ISO 4217 code for the price bounds
  reasoning    - short narrative explaining the valuation
  references   - array of citation strings for comparable sales or reference works

Do not include any text outside the JSON object.`

// GeminiAppraiser implements Appraiser on the Gemini API.
type GeminiAppraiser struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// NewGeminiAppraiser wraps an existing Gemini client with the valuation prompt.
func NewGeminiAppraiser(client *genai.Client, model string, logger zerolog.Logger) *GeminiAppraiser {
	return &GeminiAppraiser{client: client, model: model, logger: logger}
}

// Appraise sends the fetched photos plus the condition hint to the model and
// decodes the structured valuation. An empty or malformed response is an error.
func (g *GeminiAppraiser) Appraise(ctx context.Context, images []Image, condition string) (*Result, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to appraise")
	}
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(fmt.Sprintf(valuationPrompt, condition)))
	for _, img := range images {
		parts = append(parts, genai.ImageData(imageSubtype(img.MIME), img.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("valuation call: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return nil, fmt.Errorf("valuation call: %w", err)
	}

	result, err := ParseResult(text)
	if err != nil {
		return nil, err
	}
	g.logger.Debug().
		Str("model", g.model).
		Str("item_name", result.ItemName).
		Msg("appraise: valuation decoded")
	return result, nil
}

// ParseResult decodes the model's JSON payload into a normalized Result.
func ParseResult(text string) (*Result, error) {
	cleaned := cleanJSONBlock(text)
	if cleaned == "" {
		return nil, fmt.Errorf("valuation response empty")
	}
	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("decode valuation response: %w", err)
	}
	if err := result.Normalize(); err != nil {
		return nil, err
	}
	return &result, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return b.String(), nil
}

// cleanJSONBlock strips markdown code fences the model sometimes wraps JSON in.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

// imageSubtype maps a MIME type to the bare format name the SDK expects.
func imageSubtype(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	default:
		return "jpeg"
	}
}

var _ Appraiser = (*GeminiAppraiser)(nil)
