// Package ai asks the Gemini API for a short written commentary on the
// weekly market digest.
package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/Bonaventura-EW/olx-monitor/internal/contextkeys"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

const systemInstruction = `You are a rental market analyst. You receive one week of monitoring data scraped from a Polish classifieds site: per-search-profile listing turnover (new and removed ads per day), the current market aggregate (listing counts and average monthly rents in PLN) and the listings whose price moved noticeably.

Write a short, factual commentary for the person following this market:
- "summary": 3 to 5 one-sentence bullet points stating what happened this week. Tie every claim to a number from the data.
- "observations": notable findings worth a closer look, each with a "category" (one of: supply, pricing, turnover, data-quality) and a "details" sentence with the concrete numbers.

Do not invent data, do not speculate about causes you cannot see in the numbers, and do not give financial advice. Plain language, no marketing tone.`

// GeminiCommentaryAdapter implements the commentary port against the Gemini
// API. The configured models are tried in order until one answers, so an
// exhausted free-tier quota on the first model degrades to the next instead
// of dropping the commentary.
type GeminiCommentaryAdapter struct {
	client *genai.Client
	models []string
}

func NewGeminiCommentaryAdapter(ctx context.Context, apiKey string, models []string) (*GeminiCommentaryAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini commentary: API key is required")
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("gemini commentary: at least one model name is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini commentary: create client: %w", err)
	}
	return &GeminiCommentaryAdapter{client: client, models: models}, nil
}

// MarketCommentary sends the digest to the first Gemini model that answers
// with parseable JSON.
func (a *GeminiCommentaryAdapter) MarketCommentary(ctx context.Context, report domain.WeeklyReport) (*domain.MarketCommentary, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "GeminiCommentaryAdapter"})

	digest, err := json.MarshalIndent(commentaryDigest{
		GeneratedAt: report.GeneratedAt.Format("2006-01-02"),
		Summaries:   report.Summaries,
		Market:      report.Market,
		Changes:     report.Changes,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("gemini commentary: marshal digest: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "system",
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: fmt.Sprintf("Weekly monitoring data:\n\n%s", digest)}},
		},
	}

	var lastErr error
	for _, model := range a.models {
		resp, err := a.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   commentarySchema(),
		})
		if err != nil {
			logger.Warn("Model call failed, trying the next one", port.Fields{"model": model, "error": err.Error()})
			lastErr = err
			continue
		}

		var commentary domain.MarketCommentary
		if err := json.Unmarshal([]byte(resp.Text()), &commentary); err != nil {
			logger.Warn("Model answered with unparseable JSON, trying the next one", port.Fields{"model": model, "error": err.Error()})
			lastErr = fmt.Errorf("unmarshal commentary from %s: %w", model, err)
			continue
		}

		logger.Debug("Commentary generated", port.Fields{"model": model})
		return &commentary, nil
	}
	return nil, fmt.Errorf("gemini commentary: all models failed: %w", lastErr)
}

// commentaryDigest is the exact JSON the model sees.
type commentaryDigest struct {
	GeneratedAt string                        `json:"generated_at"`
	Summaries   []domain.WeeklyProfileSummary `json:"profile_summaries"`
	Market      domain.MarketSnapshot         `json:"market"`
	Changes     []domain.PriceChangeEvent     `json:"price_changes"`
}

func commentarySchema() *genai.Schema {
	observationSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category": {Type: genai.TypeString, Description: "One of: supply, pricing, turnover, data-quality."},
			"details":  {Type: genai.TypeString, Description: "One sentence with the concrete numbers behind the finding."},
		},
		Required: []string{"category", "details"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "3-5 one-sentence bullet points, each tied to a number from the data.",
			},
			"observations": {
				Type:        genai.TypeArray,
				Items:       observationSchema,
				Description: "Notable findings worth a closer look.",
			},
		},
		Required: []string{"summary", "observations"},
	}
}
