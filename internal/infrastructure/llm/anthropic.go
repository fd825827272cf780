package llm

import (
	"context"
	"fmt"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

type promptFunc func(systemPrompt, userPrompt, schema string) (string, error)

// AnthropicExtractor calls Claude through llmkit with structured output when a schema is set.
type AnthropicExtractor struct {
	opts   Options
	prompt promptFunc
}

var _ ports.Extractor = (*AnthropicExtractor)(nil)

// NewAnthropicExtractor builds an extractor for apiKey.
func NewAnthropicExtractor(apiKey string, opts Options) (*AnthropicExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic extractor needs an api key", domain.ErrConfiguration)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	settings := types.RequestSettings{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	call := func(systemPrompt, userPrompt, schema string) (string, error) {
		response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, schema, apiKey, settings)
		if err != nil {
			return "", err
		}
		if len(response.Content) == 0 {
			return "", fmt.Errorf("no content in response")
		}
		return response.Content[0].Text, nil
	}
	return &AnthropicExtractor{opts: opts, prompt: call}, nil
}

// Extract asks the model for a JSON object describing the article.
// llmkit does not take a context, so cancellation is only observed before the call.
func (a *AnthropicExtractor) Extract(ctx context.Context, ref domain.ArticleRef, content []byte) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	system := a.opts.systemPrompt()
	if a.opts.Schema != "" {
		system = Options{SystemPrompt: a.opts.SystemPrompt}.systemPrompt()
	}
	reply, err := a.prompt(system, a.opts.userPrompt(ref, content), a.opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic: %v", domain.ErrExtraction, err)
	}
	return decodeObject(reply)
}
