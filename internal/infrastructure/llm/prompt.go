package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"ArticlesHarvester/internal/domain"
)

// DefaultMaxInputChars bounds the article text sent in one prompt.
const DefaultMaxInputChars = 50000

const defaultSystemPrompt = `You extract structured data from articles.
Return a single JSON object and nothing else.
Use null or an empty array for fields the article does not mention.
Keep URLs exactly as they appear in the article.`

// Options are shared by every LLM-backed extractor.
type Options struct {
	Model         string
	SystemPrompt  string
	Schema        string
	MaxTokens     int
	Temperature   float64
	MaxInputChars int
}

func (o Options) systemPrompt() string {
	prompt := strings.TrimSpace(o.SystemPrompt)
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	if schema := strings.TrimSpace(o.Schema); schema != "" {
		prompt += "\n\nFollow this JSON Schema exactly:\n" + schema
	}
	return prompt
}

func (o Options) userPrompt(ref domain.ArticleRef, content []byte) string {
	limit := o.MaxInputChars
	if limit <= 0 {
		limit = DefaultMaxInputChars
	}
	text := []rune(string(content))
	if len(text) > limit {
		text = text[:limit]
	}

	var b strings.Builder
	b.WriteString("Extract structured information from the following article.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", ref.Title)
	fmt.Fprintf(&b, "URL: %s\n", ref.Link)
	if date := ref.PublishDate(); date != "" {
		fmt.Fprintf(&b, "Published: %s\n", date)
	}
	b.WriteString("\n")
	b.WriteString(string(text))
	return b.String()
}

// decodeObject parses a model reply into a JSON object, tolerating Markdown code fences.
func decodeObject(reply string) (map[string]any, error) {
	body := stripFences(reply)
	if body == "" {
		return nil, fmt.Errorf("%w: empty model reply", domain.ErrExtraction)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		start := strings.Index(body, "{")
		end := strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: reply is not a JSON object: %v", domain.ErrExtraction, err)
		}
		if err := json.Unmarshal([]byte(body[start:end+1]), &data); err != nil {
			return nil, fmt.Errorf("%w: reply is not a JSON object: %v", domain.ErrExtraction, err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: model returned an empty object", domain.ErrExtraction)
	}
	return data, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
