package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

// ChatCompletionsExtractor implements ports.Extractor backed by OpenAI-compatible APIs
// (OpenAI, NVIDIA NIM, Zhipu and other /chat/completions endpoints).
type ChatCompletionsExtractor struct {
	endpoint   string
	apiKey     string
	opts       Options
	jsonMode   bool
	httpClient *http.Client
}

var _ ports.Extractor = (*ChatCompletionsExtractor)(nil)

// NewChatCompletionsExtractor builds an extractor. jsonMode asks the server for a JSON object reply.
func NewChatCompletionsExtractor(endpoint, apiKey string, opts Options, jsonMode bool, timeout time.Duration) (*ChatCompletionsExtractor, error) {
	if endpoint == "" || opts.Model == "" {
		return nil, fmt.Errorf("%w: chat completions extractor needs endpoint and model", domain.ErrConfiguration)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatCompletionsExtractor{
		endpoint:   endpoint,
		apiKey:     apiKey,
		opts:       opts,
		jsonMode:   jsonMode,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Extract posts the article as a user message and decodes the reply as a JSON object.
func (c *ChatCompletionsExtractor) Extract(ctx context.Context, ref domain.ArticleRef, content []byte) (map[string]any, error) {
	payload := map[string]any{
		"model": c.opts.Model,
		"messages": []chatMessage{
			{Role: "system", Content: c.opts.systemPrompt()},
			{Role: "user", Content: c.opts.userPrompt(ref, content)},
		},
		"temperature": c.opts.Temperature,
	}
	if c.opts.MaxTokens > 0 {
		payload["max_tokens"] = c.opts.MaxTokens
	}
	if c.jsonMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: chat completions: %v", domain.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		kind := domain.ErrExtraction
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			kind = domain.ErrTransientFetch
		}
		return nil, fmt.Errorf("%w: chat completions %s: %s", kind, resp.Status, strings.TrimSpace(string(detail)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode chat response: %v", domain.ErrExtraction, err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat response has no choices", domain.ErrExtraction)
	}
	return decodeObject(decoded.Choices[0].Message.Content)
}
