package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
)

// GeminiRegenerator implements Regenerator on a Gemini image-capable model.
type GeminiRegenerator struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// NewGeminiRegenerator wraps an existing Gemini client for image regeneration.
func NewGeminiRegenerator(client *genai.Client, model string, logger zerolog.Logger) *GeminiRegenerator {
	return &GeminiRegenerator{client: client, model: model, logger: logger}
}

// Regenerate asks the model for a single clean rendering of the item and
// returns the first inline image candidate.
func (g *GeminiRegenerator) Regenerate(ctx context.Context, sources []SourceImage, itemName string) (*Rendering, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no source images for regeneration")
	}
	model := g.client.GenerativeModel(g.model)

	parts := make([]genai.Part, 0, len(sources)+1)
	parts = append(parts, genai.Text(buildRenderPrompt(itemName)))
	for _, src := range sources {
		parts = append(parts, genai.ImageData(blobSubtype(src.MIME), src.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("image regeneration call: %w", err)
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			blob, ok := part.(genai.Blob)
			if !ok || len(blob.Data) == 0 {
				continue
			}
			mime := blob.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			g.logger.Debug().
				Str("model", g.model).
				Int("bytes", len(blob.Data)).
				Msg("image: regenerated rendering")
			return &Rendering{Data: blob.Data, MIME: mime}, nil
		}
	}
	return nil, fmt.Errorf("image regeneration returned no image payload")
}

func blobSubtype(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	switch mime {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "jpeg"
	}
}

var _ Regenerator = (*GeminiRegenerator)(nil)
