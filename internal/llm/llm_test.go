package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/seenimoa/newspulse/internal/config"
	"github.com/seenimoa/newspulse/pkg/models"
)

// Compile-time interface checks.
var (
	_ Provider = (*GroqProvider)(nil)
	_ Provider = (*GeminiProvider)(nil)
	_ Provider = (*OpenAIProvider)(nil)
	_ Provider = (*AnthropicProvider)(nil)
)

func testItem() models.FilterResult {
	return models.FilterResult{
		NewsItem: models.NewsItem{
			Title:      "PUBG Mobile hits record revenue in India",
			URL:        "https://example.com/news/1",
			SourceFeed: "example.com",
			RawText:    "The battle royale title posted its best quarter yet.",
		},
		MatchedCountry: "India",
		RelevanceScore: 0.9,
	}
}

const enrichmentJSON = `{"summary":"Record quarterly revenue in India.","sentiment":"positive","category":"revenue","direction":"growth"}`

// ── Groq / OpenAI wire ──

func TestGroqEnrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer gsk-test" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, enrichmentJSON)
	}))
	defer server.Close()

	p, err := NewGroqProvider("gsk-test", WithGroqBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewGroqProvider: %v", err)
	}

	enr, err := p.Enrich(context.Background(), testItem(), ModeClassify)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if enr.Summary != "Record quarterly revenue in India." {
		t.Errorf("unexpected summary: %q", enr.Summary)
	}
	if enr.Sentiment != models.SentimentPositive {
		t.Errorf("unexpected sentiment: %q", enr.Sentiment)
	}
	if enr.Provider != ProviderGroq {
		t.Errorf("unexpected provider: %q", enr.Provider)
	}
}

func TestOpenAIErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"invalid key"}}`, ErrAuthInvalid},
		{"forbidden", http.StatusForbidden, `{"error":{"message":"forbidden"}}`, ErrAuthInvalid},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, ErrRateLimited},
		{"rate limited no body", http.StatusTooManyRequests, `not json`, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			p, err := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
			if err != nil {
				t.Fatalf("NewOpenAIProvider: %v", err)
			}
			_, err = p.Enrich(context.Background(), testItem(), ModeAnalyze)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
	_, err := p.Enrich(context.Background(), testItem(), ModeClassify)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("got %v, want ErrMalformed", err)
	}
}

func TestGroqTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p, _ := NewGroqProvider("gsk-test",
		WithGroqBaseURL(server.URL),
		WithGroqHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := p.Enrich(context.Background(), testItem(), ModeClassify)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("got %v, want ErrTimeout", err)
	}
}

// ── Gemini ──

func TestGeminiEnrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if key := r.URL.Query().Get("key"); key != "gm-test" {
			t.Errorf("unexpected key param: %s", key)
		}
		fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]},"finishReason":"STOP"}]}`, enrichmentJSON)
	}))
	defer server.Close()

	p, err := NewGeminiProvider("gm-test", WithGeminiBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}
	enr, err := p.Enrich(context.Background(), testItem(), ModeClassify)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if enr.Direction != models.DirectionGrowth {
		t.Errorf("unexpected direction: %q", enr.Direction)
	}
}

func TestGeminiErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`, ErrAuthInvalid},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			p, _ := NewGeminiProvider("gm-test", WithGeminiBaseURL(server.URL))
			_, err := p.Enrich(context.Background(), testItem(), ModeClassify)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ── Anthropic ──

func TestAnthropicEnrich(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "ak-test" {
			t.Errorf("unexpected api key header: %s", key)
		}
		if v := r.Header.Get("anthropic-version"); v != anthropicVersion {
			t.Errorf("unexpected version header: %s", v)
		}
		fmt.Fprintf(w, `{"content":[{"type":"text","text":%q}],"stop_reason":"end_turn"}`, enrichmentJSON)
	}))
	defer server.Close()

	p, err := NewAnthropicProvider("ak-test", WithAnthropicBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	enr, err := p.Enrich(context.Background(), testItem(), ModeAnalyze)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if enr.Category != "revenue" {
		t.Errorf("unexpected category: %q", enr.Category)
	}
}

func TestAnthropicOverloaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		fmt.Fprint(w, `{"error":{"type":"overloaded_error","message":"overloaded"}}`)
	}))
	defer server.Close()

	p, _ := NewAnthropicProvider("ak-test", WithAnthropicBaseURL(server.URL))
	_, err := p.Enrich(context.Background(), testItem(), ModeClassify)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
}

// ── Parsing ──

func TestParseEnrichment(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain json", enrichmentJSON, false},
		{"fenced json", "```json\n" + enrichmentJSON + "\n```", false},
		{"json with preamble", "Here is the analysis:\n" + enrichmentJSON, false},
		{"no json", "I cannot analyze this article.", true},
		{"truncated json", `{"summary":"cut off`, true},
		{"empty summary", `{"summary":"","sentiment":"neutral"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseEnrichment(tt.content, ProviderGroq, "test-model", 0)
			if tt.wantErr && !errors.Is(err, ErrMalformed) {
				t.Errorf("got %v, want ErrMalformed", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUserPromptTruncatesOnRuneBoundary(t *testing.T) {
	item := testItem()
	item.RawText = strings.Repeat("배틀그라운드 모바일 매출 급증 ", 300)

	prompt := userPrompt(item)
	if !utf8.ValidString(prompt) {
		t.Fatal("prompt contains invalid UTF-8 after truncation")
	}
	if got := utf8.RuneCountInString(prompt); got > promptBodyLimit+200 {
		t.Errorf("prompt is %d runes, body cap %d not applied", got, promptBodyLimit)
	}
	if !strings.Contains(prompt, "Body: ") {
		t.Error("body section missing from prompt")
	}
}

func TestNormalizeSentiment(t *testing.T) {
	tests := []struct {
		in   string
		want models.Sentiment
	}{
		{"positive", models.SentimentPositive},
		{"Positive", models.SentimentPositive},
		{"NEGATIVE", models.SentimentNegative},
		{"neutral", models.SentimentNeutral},
		{"bullish", models.SentimentNeutral},
		{"", models.SentimentNeutral},
	}
	for _, tt := range tests {
		if got := normalizeSentiment(tt.in); got != tt.want {
			t.Errorf("normalizeSentiment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrRateLimited, true},
		{ErrTimeout, true},
		{ErrMalformed, true},
		{ErrProviderDown, true},
		{ErrAuthInvalid, false},
		{ErrNoAPIKey, false},
		{fmt.Errorf("%w: too many requests", ErrRateLimited), true},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

// ── Registry ──

func TestNewRegistry(t *testing.T) {
	cfg := config.LLMConfig{
		GroqKey:     "gsk-test",
		GeminiKey:   "gm-test",
		GroqModel:   "llama-3.3-70b-versatile",
		GeminiModel: "gemini-2.0-flash",
		Temperature: 0.1,
		MaxTokens:   1024,
	}
	reg, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if len(reg) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(reg))
	}
	if _, ok := reg[ProviderGroq]; !ok {
		t.Error("groq not registered")
	}
	if _, ok := reg[ProviderOpenAI]; ok {
		t.Error("openai registered without a key")
	}
}

func TestNewRegistryNoKeys(t *testing.T) {
	_, err := NewRegistry(config.LLMConfig{})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("got %v, want ErrNoAPIKey", err)
	}
}
