package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

// Client talks to an external extraction service over JSON/HTTP.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Extractor = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, timeout time.Duration) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: extraction service endpoint is empty", domain.ErrConfiguration)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

type extractRequest struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	PublishDate string `json:"publish_date,omitempty"`
	Content     string `json:"content"`
}

type extractResponse struct {
	Data  map[string]any `json:"data"`
	Error string         `json:"error"`
}

// Extract sends the cleaned article to POST {endpoint}/extract.
func (c *Client) Extract(ctx context.Context, ref domain.ArticleRef, content []byte) (map[string]any, error) {
	payload := extractRequest{
		Title:       ref.Title,
		Link:        ref.Link,
		PublishDate: ref.PublishDate(),
		Content:     string(content),
	}

	var resp extractResponse
	if err := c.post(ctx, "/extract", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: service: %s", domain.ErrExtraction, resp.Error)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: service returned no data", domain.ErrExtraction)
	}
	return resp.Data, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %v", domain.ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: unexpected status %s", domain.ErrTransientFetch, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %s", domain.ErrExtraction, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrExtraction, err)
	}
	return nil
}
