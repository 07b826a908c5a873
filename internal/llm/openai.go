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

	"github.com/seenimoa/newspulse/pkg/models"
)

// openAIModels lists commonly used OpenAI models.
var openAIModels = []string{
	"gpt-4o-mini",
	"gpt-4o",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
}

// OpenAIProvider implements Provider for OpenAI's Chat Completions API.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	opts    Options
	client  *http.Client
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL sets a custom base URL (e.g., for proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) { p.model = model }
}

// WithOpenAIOptions sets request parameters.
func WithOpenAIOptions(opts Options) OpenAIOption {
	return func(p *OpenAIProvider) { p.opts = opts }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = client }
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		model:   "gpt-4o-mini",
		opts:    DefaultOptions(),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *OpenAIProvider) Name() string     { return ProviderOpenAI }
func (p *OpenAIProvider) Models() []string { return openAIModels }

// Ping verifies the API key by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	return pingOpenAIWire(ctx, p.client, p.baseURL, p.apiKey)
}

// Enrich sends a chat completion request and parses the structured output.
func (p *OpenAIProvider) Enrich(ctx context.Context, item models.FilterResult, mode Mode) (*Enrichment, error) {
	content, err := chatOpenAIWire(ctx, p.client, p.baseURL, p.apiKey, p.model, item, mode, p.opts, ProviderOpenAI)
	if err != nil {
		return nil, err
	}
	return parseEnrichment(content.text, ProviderOpenAI, p.model, content.latency)
}

// ── OpenAI wire format ──
//
// Groq exposes the same chat/completions wire format, so the request and
// response plumbing below is shared between the two adapters.

type oaChatRequest struct {
	Model       string      `json:"model"`
	Messages    []oaMessage `json:"messages"`
	Temperature *float64    `json:"temperature,omitempty"`
	MaxTokens   *int        `json:"max_tokens,omitempty"`
}

type oaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaChatResponse struct {
	ID      string     `json:"id"`
	Choices []oaChoice `json:"choices"`
	Model   string     `json:"model"`
}

type oaChoice struct {
	Index        int       `json:"index"`
	Message      oaMessage `json:"message"`
	FinishReason string    `json:"finish_reason"`
}

type oaErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

type wireResult struct {
	text    string
	latency time.Duration
}

// chatOpenAIWire runs one chat completion round-trip on an
// OpenAI-compatible endpoint.
func chatOpenAIWire(ctx context.Context, client *http.Client, baseURL, apiKey, model string,
	item models.FilterResult, mode Mode, opts Options, provider string) (*wireResult, error) {

	start := time.Now()
	body := oaChatRequest{
		Model: model,
		Messages: []oaMessage{
			{Role: "system", Content: systemPrompt(mode)},
			{Role: "user", Content: userPrompt(item)},
		},
	}
	if opts.Temperature > 0 {
		body.Temperature = &opts.Temperature
	}
	if opts.MaxTokens > 0 {
		body.MaxTokens = &opts.MaxTokens
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	defer resp.Body.Close()

	if err := checkOpenAIWireError(resp, provider); err != nil {
		return nil, err
	}

	var result oaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %s: decode response: %v", ErrMalformed, provider, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: %s: empty choices", ErrMalformed, provider)
	}

	return &wireResult{text: result.Choices[0].Message.Content, latency: time.Since(start)}, nil
}

// checkOpenAIWireError maps HTTP failures onto the error taxonomy.
func checkOpenAIWireError(resp *http.Response, provider string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr oaErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuthInvalid, apiErr.Error.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error.Message)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%w: %s", ErrTimeout, apiErr.Error.Message)
		}
		return fmt.Errorf("%s: API error (%d): %s", provider, resp.StatusCode, apiErr.Error.Message)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrAuthInvalid, resp.StatusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, resp.StatusCode)
	}
	return fmt.Errorf("%s: HTTP %d: %s", provider, resp.StatusCode, string(body))
}

// pingOpenAIWire verifies the key against an OpenAI-compatible /models endpoint.
func pingOpenAIWire(ctx context.Context, client *http.Client, baseURL, apiKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	resp, err := client.Do(req)
	if err != nil {
		return wrapTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrAuthInvalid, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode)
	}
	return nil
}
