package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the model used by Gemini when none is set.
const DefaultModel = "gemini-2.5-flash"

const promptTemplate = `You are a financial sentiment analyzer.
Read the provided text and respond with a JSON object ONLY, no text explanation.
The JSON must have the following keys:
  - score: a number between -1.0 (very negative) and 1.0 (very positive)
  - summary: a single-sentence summary of the sentiment.
Do not include any other keys or comments.
Analyze this text:
"""%s"""
`

// generator is the part of the genai client used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini is an Analyzer backed by a Gemini model. Any failure of the model
// (transport, refusal, malformed answer) is logged and the Heuristic score is
// returned instead, so Analyze never fails.
type Gemini struct {
	Model    string
	models   generator
	fallback Heuristic
}

// NewGemini creates a Gemini analyzer. The API key is read from the
// environment (GEMINI_API_KEY or GOOGLE_API_KEY) when apiKey is empty.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create gemini client: %w", err)
	}
	return &Gemini{Model: DefaultModel, models: client.Models}, nil
}

// responseSchema constrains the model to the Result shape.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score": {
			Type:        genai.TypeNumber,
			Description: "Sentiment between -1.0 (very negative) and 1.0 (very positive).",
		},
		"summary": {
			Type:        genai.TypeString,
			Description: "A single-sentence summary of the sentiment.",
		},
	},
	Required: []string{"score", "summary"},
}

// Analyze implements Analyzer.
func (g *Gemini) Analyze(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		text = EmptyText
	}
	r, err := g.ask(ctx, text)
	if err != nil {
		log.Printf("gemini err (falling back to keywords): %v", err)
		return Result{
			Score:   g.fallback.Score(text),
			Summary: "LLM parsing failed. " + excerpt(text),
		}, nil
	}
	return r, nil
}

func (g *Gemini) ask(ctx context.Context, text string) (Result, error) {
	model := g.Model
	if model == "" {
		model = DefaultModel
	}
	resp, err := g.models.GenerateContent(ctx, model, genai.Text(fmt.Sprintf(promptTemplate, text)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return Result{}, err
	}
	return parseResult(resp.Text())
}

// parseResult decodes the model answer. A missing score is an error, a
// score out of range is clamped.
func parseResult(answer string) (Result, error) {
	var jr struct {
		Score   *float64 `json:"score"`
		Summary string   `json:"summary"`
	}
	answer = strings.TrimSpace(answer)
	if err := json.Unmarshal([]byte(answer), &jr); err != nil {
		return Result{}, fmt.Errorf("invalid answer %q: %w", excerpt(answer), err)
	}
	if jr.Score == nil {
		return Result{}, fmt.Errorf("answer without score: %q", excerpt(answer))
	}
	return Result{Score: clamp(*jr.Score), Summary: jr.Summary}, nil
}
