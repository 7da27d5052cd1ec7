package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// llmTimeout is the hard ceiling spec §4.4/§5 require for the LLM tier.
const llmTimeout = 2 * time.Second

const systemPrompt = `You correct e-commerce search queries and extract structured intent.
Given a user's raw search query, respond with ONLY a JSON object:
{"corrected_query": string, "brands": [string], "categories": [string], "product_terms": [string], "confidence": number}
Fix obvious misspellings in corrected_query. Leave arrays empty if nothing applies.`

// OpenAIRewriter implements LLMRewriter against an OpenAI-compatible chat
// completions endpoint in JSON mode, grounded on
// other_examples/ec467766_benjamindataiads-feedenrich's agent.CreateChatCompletion
// call shape.
type OpenAIRewriter struct {
	client *openai.Client
	model  string
}

// NewOpenAIRewriter returns nil if apiKey is empty, so callers can always do
// rewrite.New(NewOpenAIRewriter(cfg.LLMAPIKey, cfg.LLMModel)) and get the LLM tier
// disabled for free when no key is configured (spec §4.4 "disabled if no
// API key").
func NewOpenAIRewriter(apiKey, model string) *OpenAIRewriter {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIRewriter{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAIRewriter) Rewrite(ctx context.Context, query string) (Result, error) {
	if o == nil {
		return Result{}, fmt.Errorf("llm rewriter not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.1,
		MaxTokens:      300,
	})
	if err != nil {
		return Result{}, fmt.Errorf("llm rewrite: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("llm rewrite: empty response")
	}

	return parseLLMResponse(resp.Choices[0].Message.Content, query)
}

type llmPayload struct {
	CorrectedQuery string   `json:"corrected_query"`
	Brands         []string `json:"brands"`
	Categories     []string `json:"categories"`
	ProductTerms   []string `json:"product_terms"`
	Confidence     float64  `json:"confidence"`
}

// parseLLMResponse extracts the JSON object from raw with a greedy brace
// match (spec §4.4: "expected as JSON embedded in free text; extract with a
// greedy brace match and parse leniently"), in case the model ignores JSON
// mode and wraps the object in prose.
func parseLLMResponse(raw, originalQuery string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return Result{}, fmt.Errorf("no JSON object found in llm response")
	}

	var payload llmPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return Result{}, fmt.Errorf("malformed llm json: %w", err)
	}

	corrected := payload.CorrectedQuery
	if corrected == "" {
		corrected = originalQuery
	}
	confidence := payload.Confidence
	if confidence == 0 {
		confidence = 0.7
	}

	return Result{
		CorrectedQuery: corrected,
		Components: Components{
			Brands:       payload.Brands,
			Categories:   payload.Categories,
			ProductTerms: payload.ProductTerms,
		},
		Confidence: confidence,
	}, nil
}
