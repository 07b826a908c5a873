package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/seenimoa/newspulse/pkg/models"
)

// groqModels lists free-tier Groq models suitable for news classification.
var groqModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
	"mixtral-8x7b-32768",
	"gemma2-9b-it",
}

// GroqProvider implements Provider for Groq's OpenAI-compatible API.
type GroqProvider struct {
	apiKey  string
	baseURL string
	model   string
	opts    Options
	client  *http.Client
}

// GroqOption configures the Groq provider.
type GroqOption func(*GroqProvider)

// WithGroqBaseURL sets a custom base URL.
func WithGroqBaseURL(url string) GroqOption {
	return func(p *GroqProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithGroqModel sets the default model.
func WithGroqModel(model string) GroqOption {
	return func(p *GroqProvider) { p.model = model }
}

// WithGroqOptions sets request parameters.
func WithGroqOptions(opts Options) GroqOption {
	return func(p *GroqProvider) { p.opts = opts }
}

// WithGroqHTTPClient sets a custom HTTP client.
func WithGroqHTTPClient(client *http.Client) GroqOption {
	return func(p *GroqProvider) { p.client = client }
}

// NewGroqProvider creates a Groq provider.
func NewGroqProvider(apiKey string, opts ...GroqOption) (*GroqProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &GroqProvider{
		apiKey:  apiKey,
		baseURL: "https://api.groq.com/openai/v1",
		model:   "llama-3.3-70b-versatile",
		opts:    DefaultOptions(),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *GroqProvider) Name() string     { return ProviderGroq }
func (p *GroqProvider) Models() []string { return groqModels }

// Ping verifies the API key by listing models.
func (p *GroqProvider) Ping(ctx context.Context) error {
	return pingOpenAIWire(ctx, p.client, p.baseURL, p.apiKey)
}

// Enrich sends a chat completion request and parses the structured output.
func (p *GroqProvider) Enrich(ctx context.Context, item models.FilterResult, mode Mode) (*Enrichment, error) {
	content, err := chatOpenAIWire(ctx, p.client, p.baseURL, p.apiKey, p.model, item, mode, p.opts, ProviderGroq)
	if err != nil {
		return nil, err
	}
	return parseEnrichment(content.text, ProviderGroq, p.model, content.latency)
}
