/*
Package ai provides functionality to interact with the Gemini AI API and add
swing-trade commentary to high delivery stocks.
*/
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Commentary is free-form enrichment for one stock. It never carries the
// computed price levels, only the model's view of them.
type Commentary struct {
	MarketCapCategory string    `json:"market_cap_category" yaml:"market_cap_category"`
	SwingView         string    `json:"swing_view" yaml:"swing_view"`
	ChartPattern      string    `json:"chart_pattern" yaml:"chart_pattern"`
	VolumeTrend       string    `json:"volume_trend" yaml:"volume_trend"`
	RelativeStrength  string    `json:"relative_strength" yaml:"relative_strength"`
	Fundamentals      string    `json:"fundamentals" yaml:"fundamentals"`
	Support           []float64 `json:"support" yaml:"support"`
	Resistance        []float64 `json:"resistance" yaml:"resistance"`
	Risks             []string  `json:"risks" yaml:"risks"`
}

// StockInput is what the model is told about a stock.
type StockInput struct {
	Company           string
	Price             float64
	DeliveryPct       float64
	UpsideTargetPrice float64
	StopLossPrice     float64
	Date              time.Time
}

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models generator
	model  string
}

func NewClient(ctx context.Context, apiKey string, modelName string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{models: client.Models, model: modelName}, nil
}

// Annotate asks the model for commentary on a single stock.
func (c *Client) Annotate(ctx context.Context, in StockInput) (*Commentary, error) {
	userContent := &genai.Content{
		Parts: []*genai.Part{
			{Text: buildUserPrompt(in)},
		},
		Role: "user",
	}

	resp, err := c.models.GenerateContent(ctx, c.model, []*genai.Content{userContent}, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		Temperature:      genai.Ptr[float32](0.1),
		ResponseMIMEType: "application/json",
		ResponseSchema:   getResponseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	respText := resp.Text()

	var commentary Commentary
	if err := json.Unmarshal([]byte(respText), &commentary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gemini JSON response: %w. Raw text: %s", err, respText)
	}

	return &commentary, nil
}

func getResponseSchema() *genai.Schema {
	text := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	levels := func(desc string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeNumber},
			Description: desc,
		}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"market_cap_category": {
				Type:        genai.TypeString,
				Enum:        []string{"Large Cap", "Mid Cap", "Small Cap", "Unknown"},
				Description: "Market capitalisation bucket of the company.",
			},
			"swing_view":        text("One or two sentences on the 10-14 day swing setup."),
			"chart_pattern":     text("Chart pattern if any, otherwise None."),
			"volume_trend":      text("Rising, falling or flat."),
			"relative_strength": text("Strength relative to its sector and the index."),
			"fundamentals":      text("One or two line summary of the fundamentals."),
			"support":           levels("Up to two nearby support levels."),
			"resistance":        levels("Up to two nearby resistance levels."),
			"risks": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "A list of 1-3 concise risks to the trade.",
			},
		},
		Required: []string{"market_cap_category", "swing_view", "fundamentals", "risks"},
	}
}
