package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Ztola/shopify-ai-seo/internal/logger"
	"github.com/Ztola/shopify-ai-seo/pkg/httpclient"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	defaultMaxAttempts = 3
	defaultTimeout     = 60 * time.Second
	productTemperature = 0.4
	articleTemperature = 0.7
)

// OpenAIClient implements Generator over the OpenAI chat-completions API.
// Any OpenAI-compatible service works by overriding the base URL.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxAttempts int
	http        *resty.Client
	log         logger.Logger
}

// OpenAIOption configures the client.
type OpenAIOption func(*OpenAIClient)

// WithModel sets the model name.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) { c.model = model }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithMaxAttempts bounds the transient-failure retry loop.
func WithMaxAttempts(n int) OpenAIOption {
	return func(c *OpenAIClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// NewOpenAIClient creates a generation gateway for the given API key.
func NewOpenAIClient(apiKey string, log logger.Logger, opts ...OpenAIOption) *OpenAIClient {
	if log == nil {
		log = &logger.NopLogger{}
	}
	c := &OpenAIClient{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		maxAttempts: defaultMaxAttempts,
		http:        httpclient.NewRestyHTTPClient(defaultTimeout),
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateProduct requests optimized product content and validates the
// returned shape. Missing required fields are a fatal validation failure,
// never silently defaulted.
func (c *OpenAIClient) GenerateProduct(ctx context.Context, req ProductRequest) (*ProductContent, error) {
	raw, err := c.complete(ctx, buildProductPrompt(req), productTemperature)
	if err != nil {
		return nil, err
	}

	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, &GenerationError{Raw: raw, Err: err}
	}
	var content ProductContent
	if err := json.Unmarshal([]byte(obj), &content); err != nil {
		return nil, &GenerationError{Raw: raw, Err: fmt.Errorf("decode product content: %w", err)}
	}
	if err := validateProductContent(content); err != nil {
		return nil, &GenerationError{Raw: raw, Err: err}
	}

	cleaned, err := SanitizeHTML(content.BodyHTML)
	if err != nil {
		return nil, &GenerationError{Raw: raw, Err: err}
	}
	content.BodyHTML = cleaned
	return &content, nil
}

// GenerateArticle requests a blog article themed on the given topic.
func (c *OpenAIClient) GenerateArticle(ctx context.Context, req ArticleRequest) (*ArticleContent, error) {
	raw, err := c.complete(ctx, buildArticlePrompt(req), articleTemperature)
	if err != nil {
		return nil, err
	}

	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, &GenerationError{Raw: raw, Err: err}
	}
	var content ArticleContent
	if err := json.Unmarshal([]byte(obj), &content); err != nil {
		return nil, &GenerationError{Raw: raw, Err: fmt.Errorf("decode article content: %w", err)}
	}
	if content.Title == "" || content.BodyHTML == "" {
		return nil, &GenerationError{Raw: raw, Err: errors.New("article content missing title or body")}
	}

	cleaned, err := SanitizeHTML(content.BodyHTML)
	if err != nil {
		return nil, &GenerationError{Raw: raw, Err: err}
	}
	content.BodyHTML = cleaned
	return &content, nil
}

// complete sends one prompt, retrying transient API failures with backoff.
func (c *OpenAIClient) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		raw, err := c.doRequest(ctx, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var genErr *GenerationError
		if errors.As(err, &genErr) && !genErr.Retryable {
			return "", err
		}
		if attempt == c.maxAttempts {
			break
		}

		c.log.WarnObj("generation call retrying", "generation_retry", map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})
		backoff := time.Duration(attempt) * 2 * time.Second
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", lastErr
}

func (c *OpenAIClient) doRequest(ctx context.Context, body chatRequest) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", &GenerationError{Retryable: true, Err: fmt.Errorf("generation request: %w", err)}
	}

	if resp.IsError() {
		retryable := resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		return "", &GenerationError{
			Retryable: retryable,
			Raw:       string(resp.Body()),
			Err:       fmt.Errorf("generation api status %d", resp.StatusCode()),
		}
	}

	var chat chatResponse
	if err := json.Unmarshal(resp.Body(), &chat); err != nil {
		return "", &GenerationError{Raw: string(resp.Body()), Err: fmt.Errorf("decode api response: %w", err)}
	}
	if chat.Error != nil {
		return "", &GenerationError{Raw: string(resp.Body()), Err: fmt.Errorf("api error: %s", chat.Error.Message)}
	}
	if len(chat.Choices) == 0 {
		return "", &GenerationError{Raw: string(resp.Body()), Err: errors.New("no choices in api response")}
	}
	return chat.Choices[0].Message.Content, nil
}

func validateProductContent(c ProductContent) error {
	var missing []string
	if strings.TrimSpace(c.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(c.Slug) == "" {
		missing = append(missing, "slug")
	}
	if strings.TrimSpace(c.MetaTitle) == "" {
		missing = append(missing, "meta_title")
	}
	if strings.TrimSpace(c.MetaDescription) == "" {
		missing = append(missing, "meta_description")
	}
	if strings.TrimSpace(c.BodyHTML) == "" {
		missing = append(missing, "description_html")
	}
	if len(missing) > 0 {
		return fmt.Errorf("product content missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
