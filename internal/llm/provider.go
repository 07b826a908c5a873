// Package llm provides a uniform enrichment interface over multiple LLM
// providers (Groq, Gemini, OpenAI, Anthropic). Every provider takes a
// filtered news item and returns a structured enrichment; failures map to
// a small error taxonomy the pipeline uses for fallback decisions.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/seenimoa/newspulse/pkg/models"
	"github.com/seenimoa/newspulse/pkg/utils"
)

// promptBodyLimit caps the article body included in the user message,
// in runes.
const promptBodyLimit = 2000

// Provider names for routing and configuration.
const (
	ProviderGroq      = "groq"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Common errors returned by providers.
var (
	ErrNoAPIKey     = errors.New("llm: API key not configured")
	ErrAuthInvalid  = errors.New("llm: invalid API key")
	ErrRateLimited  = errors.New("llm: rate limit exceeded")
	ErrTimeout      = errors.New("llm: request timed out")
	ErrMalformed    = errors.New("llm: malformed provider response")
	ErrProviderDown = errors.New("llm: provider unavailable")
)

// Mode selects the enrichment depth.
type Mode string

const (
	// ModeClassify asks for a quick category/sentiment pass.
	ModeClassify Mode = "classify"
	// ModeAnalyze asks for a deeper revenue-focused summary.
	ModeAnalyze Mode = "analyze"
)

// Enrichment is a provider's structured answer for one item.
type Enrichment struct {
	Summary   string           `json:"summary"`
	Sentiment models.Sentiment `json:"sentiment"`
	Category  string           `json:"category,omitempty"`
	Direction models.Direction `json:"direction,omitempty"`
	Model     string           `json:"model"`
	Provider  string           `json:"provider"`
	Latency   time.Duration    `json:"latency"`
}

// Provider is the interface all LLM backends must implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "groq", "gemini").
	Name() string

	// Enrich submits one item and returns the structured enrichment.
	Enrich(ctx context.Context, item models.FilterResult, mode Mode) (*Enrichment, error)

	// Models returns the list of known models for this provider.
	Models() []string

	// Ping checks if the provider is reachable and the API key is valid.
	Ping(ctx context.Context) error
}

// Options configures a provider's request parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions returns sensible request defaults.
func DefaultOptions() Options {
	return Options{Temperature: 0.1, MaxTokens: 1024}
}

// ── Prompting ──

const classifySystemPrompt = `You are a news analyst for a mobile-game revenue tracker.
Given one article, respond with a single JSON object and nothing else:
{"summary": "<one sentence in the article's language>",
 "sentiment": "positive"|"negative"|"neutral",
 "category": "<revenue|ranking|update|regulation|market|other>",
 "direction": "growth"|"decline"|"neutral"}`

const analyzeSystemPrompt = `You are a news analyst for a mobile-game revenue tracker.
Given one article, write a detailed revenue-focused analysis. Respond with a
single JSON object and nothing else:
{"summary": "<2-3 sentences covering revenue figures, country, and cause>",
 "sentiment": "positive"|"negative"|"neutral",
 "category": "<revenue|ranking|update|regulation|market|other>",
 "direction": "growth"|"decline"|"neutral"}`

// systemPrompt returns the instruction block for the given mode.
func systemPrompt(mode Mode) string {
	if mode == ModeAnalyze {
		return analyzeSystemPrompt
	}
	return classifySystemPrompt
}

// userPrompt flattens the item into the user message.
func userPrompt(item models.FilterResult) string {
	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(item.Title)
	b.WriteString("\nSource: ")
	b.WriteString(item.SourceFeed)
	if item.MatchedCountry != "" {
		b.WriteString("\nCountry: ")
		b.WriteString(item.MatchedCountry)
	}
	if item.RawText != "" {
		// Rune-safe cap so multibyte feed text is never split mid-rune.
		b.WriteString("\nBody: ")
		b.WriteString(utils.Truncate(item.RawText, promptBodyLimit))
	}
	return b.String()
}

// ── Response parsing ──

// enrichmentPayload is the JSON shape every provider is prompted to emit.
type enrichmentPayload struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
	Category  string `json:"category"`
	Direction string `json:"direction"`
}

// parseEnrichment extracts the structured payload from raw model output.
// Models occasionally wrap JSON in code fences or add prose around it;
// anything that doesn't yield a usable object maps to ErrMalformed so the
// caller can fall back to another provider.
func parseEnrichment(content, provider, model string, latency time.Duration) (*Enrichment, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrMalformed)
	}

	var payload enrichmentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrMalformed)
	}

	return &Enrichment{
		Summary:   strings.TrimSpace(payload.Summary),
		Sentiment: normalizeSentiment(payload.Sentiment),
		Category:  strings.ToLower(strings.TrimSpace(payload.Category)),
		Direction: normalizeDirection(payload.Direction),
		Model:     model,
		Provider:  provider,
		Latency:   latency,
	}, nil
}

// extractJSON returns the first top-level JSON object in s, stripping
// markdown code fences if present.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func normalizeSentiment(s string) models.Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return models.SentimentPositive
	case "negative":
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func normalizeDirection(s string) models.Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "growth", "up", "increase":
		return models.DirectionGrowth
	case "decline", "down", "decrease":
		return models.DirectionDecline
	default:
		return models.DirectionNeutral
	}
}

// ── Error helpers ──

// wrapTransportError maps transport failures onto the error taxonomy.
// Deadline and client timeouts become ErrTimeout; everything else is
// ErrProviderDown.
func wrapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if strings.Contains(err.Error(), "Client.Timeout") {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderDown, err)
}

// IsRetryable reports whether the pipeline should try the next provider
// after this error. Auth failures and missing keys are permanent for the
// provider but still allow trying others; the caller distinguishes.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrProviderDown)
}
