package analyze

import (
	"context"
	_ "embed"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

//go:embed system_prompt.txt
var systemPrompt string

// Analyzer is the external analysis capability the stage invokes.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (Analysis, error)
}

// GeminiAnalyzer implements Analyzer on the Gemini API. The request pins
// a response schema, so the model either returns schema-conformant JSON
// or the call fails explicitly.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer builds the client against the Gemini API backend.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

// Analyze sends the speaker-labeled transcript to the model and decodes
// the structured result.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, transcript string) (Analysis, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(transcript), config)
	if err != nil {
		return Analysis{}, fmt.Errorf("gemini analyze: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return Analysis{}, fmt.Errorf("gemini analyze: empty response")
	}

	var a Analysis
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return Analysis{}, fmt.Errorf("gemini analyze: malformed response: %w", err)
	}
	log.Info().Int("utterances", len(a.Utterances)).Msg("LLM analysis completed")
	return a, nil
}

var roleSchema = &genai.Schema{
	Type: genai.TypeString,
	Enum: []string{RoleTherapist, RolePatient},
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"speaker_roles": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"speaker_a": roleSchema,
				"speaker_b": roleSchema,
			},
			Required: []string{"speaker_a", "speaker_b"},
		},
		"utterances": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id":              {Type: genai.TypeInteger},
					"speaker":         {Type: genai.TypeString},
					"role":            roleSchema,
					"text":            {Type: genai.TypeString},
					"topic":           {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"emotion":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"sentiment_score": {Type: genai.TypeNumber},
				},
				Required: []string{"id", "speaker", "role", "text", "topic", "emotion", "sentiment_score"},
			},
		},
		"relationships": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":            {Type: genai.TypeString},
					"relationship":    {Type: genai.TypeString},
					"sentiment_score": {Type: genai.TypeNumber},
					"mentions":        {Type: genai.TypeInteger},
				},
				Required: []string{"name", "relationship", "sentiment_score", "mentions"},
			},
		},
		"sentiment_score": {Type: genai.TypeNumber},
	},
	Required: []string{"sentiment_score"},
}
