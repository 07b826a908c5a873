package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	// Unset any env vars that would interfere
	envVars := []string{
		"GROQ_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY",
		"CLAUDE_API_KEY", "ANTHROPIC_API_KEY",
		"USE_PAID_API", "CROSS_VALIDATE", "SLACK_WEBHOOK_URL",
	}
	for _, e := range envVars {
		os.Unsetenv(e)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// App defaults
	if cfg.App.BatchSize != 50 {
		t.Errorf("App.BatchSize: got %d, want 50", cfg.App.BatchSize)
	}
	if cfg.App.DeepCutoff != 10 {
		t.Errorf("App.DeepCutoff: got %d, want 10", cfg.App.DeepCutoff)
	}
	if cfg.App.Workers != 5 {
		t.Errorf("App.Workers: got %d, want 5", cfg.App.Workers)
	}
	if cfg.App.TimeoutSeconds != 300 {
		t.Errorf("App.TimeoutSeconds: got %d, want 300", cfg.App.TimeoutSeconds)
	}

	// LLM defaults
	if cfg.LLM.Primary != "groq" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "groq")
	}
	if cfg.LLM.GroqModel != "llama-3.3-70b-versatile" {
		t.Errorf("LLM.GroqModel: got %q", cfg.LLM.GroqModel)
	}
	if cfg.LLM.UsePaid {
		t.Error("LLM.UsePaid should be false by default")
	}
	if cfg.LLM.Temperature != 0.1 {
		t.Errorf("LLM.Temperature: got %f, want 0.1", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 1024 {
		t.Errorf("LLM.MaxTokens: got %d, want 1024", cfg.LLM.MaxTokens)
	}

	// Quota defaults
	if cfg.Quota.Groq.MinuteLimit != 30 || cfg.Quota.Groq.DailyLimit != 14400 {
		t.Errorf("Quota.Groq: got %+v", cfg.Quota.Groq)
	}
	if cfg.Quota.Gemini.MinuteLimit != 15 || cfg.Quota.Gemini.DailyLimit != 1500 {
		t.Errorf("Quota.Gemini: got %+v", cfg.Quota.Gemini)
	}

	// Feed defaults
	if cfg.Feeds.MaxAgeDays != 7 {
		t.Errorf("Feeds.MaxAgeDays: got %d, want 7", cfg.Feeds.MaxAgeDays)
	}
	if cfg.Feeds.MaxPerFeed != 10 {
		t.Errorf("Feeds.MaxPerFeed: got %d, want 10", cfg.Feeds.MaxPerFeed)
	}
	if cfg.Feeds.CEID != "KR:ko" {
		t.Errorf("Feeds.CEID: got %q, want %q", cfg.Feeds.CEID, "KR:ko")
	}
	if len(cfg.Feeds.Keywords) == 0 {
		t.Error("Feeds.Keywords should not be empty by default")
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
app:
  batch_size: 20
  deep_cutoff: 5
llm:
  primary: "gemini"
  use_paid: true
  temperature: 0.3
quota:
  groq:
    minute_limit: 10
    daily_limit: 100
output:
  csv_path: "out/test.csv"
logging:
  level: "debug"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	os.Unsetenv("USE_PAID_API")
	os.Unsetenv("GROQ_API_KEY")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.App.BatchSize != 20 {
		t.Errorf("App.BatchSize: got %d, want 20", cfg.App.BatchSize)
	}
	if cfg.App.DeepCutoff != 5 {
		t.Errorf("App.DeepCutoff: got %d, want 5", cfg.App.DeepCutoff)
	}
	if cfg.LLM.Primary != "gemini" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "gemini")
	}
	if !cfg.LLM.UsePaid {
		t.Error("LLM.UsePaid should be true from file")
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Errorf("LLM.Temperature: got %f, want 0.3", cfg.LLM.Temperature)
	}
	if cfg.Quota.Groq.MinuteLimit != 10 || cfg.Quota.Groq.DailyLimit != 100 {
		t.Errorf("Quota.Groq: got %+v", cfg.Quota.Groq)
	}
	if cfg.Output.CSVPath != "out/test.csv" {
		t.Errorf("Output.CSVPath: got %q", cfg.Output.CSVPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	// Defaults still apply for unset sections
	if cfg.Feeds.MaxAgeDays != 7 {
		t.Errorf("Feeds.MaxAgeDays default lost: got %d", cfg.Feeds.MaxAgeDays)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	cfg := &Config{}

	os.Setenv("GROQ_API_KEY", "gsk-test-groq-key-123456")
	os.Setenv("GEMINI_API_KEY", "gemini-key-789")
	os.Setenv("OPENAI_API_KEY", "sk-test-openai")
	os.Setenv("CLAUDE_API_KEY", "sk-ant-test")
	os.Setenv("USE_PAID_API", "true")
	os.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T00/B00/xyz")
	defer func() {
		os.Unsetenv("GROQ_API_KEY")
		os.Unsetenv("GEMINI_API_KEY")
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("CLAUDE_API_KEY")
		os.Unsetenv("USE_PAID_API")
		os.Unsetenv("SLACK_WEBHOOK_URL")
	}()

	overrideFromEnv(cfg)

	if cfg.LLM.GroqKey != "gsk-test-groq-key-123456" {
		t.Errorf("GroqKey: got %q", cfg.LLM.GroqKey)
	}
	if cfg.LLM.GeminiKey != "gemini-key-789" {
		t.Errorf("GeminiKey: got %q", cfg.LLM.GeminiKey)
	}
	if cfg.LLM.OpenAIKey != "sk-test-openai" {
		t.Errorf("OpenAIKey: got %q", cfg.LLM.OpenAIKey)
	}
	if cfg.LLM.AnthropicKey != "sk-ant-test" {
		t.Errorf("AnthropicKey: got %q", cfg.LLM.AnthropicKey)
	}
	if !cfg.LLM.UsePaid {
		t.Error("UsePaid should be true from USE_PAID_API")
	}
	if !cfg.Slack.Enabled || cfg.Slack.WebhookURL == "" {
		t.Errorf("Slack should be enabled from SLACK_WEBHOOK_URL: %+v", cfg.Slack)
	}
}

func TestOverrideFromEnvAnthropicAlias(t *testing.T) {
	os.Unsetenv("CLAUDE_API_KEY")
	os.Setenv("ANTHROPIC_API_KEY", "sk-ant-alias")
	defer os.Unsetenv("ANTHROPIC_API_KEY")

	cfg := &Config{}
	overrideFromEnv(cfg)
	if cfg.LLM.AnthropicKey != "sk-ant-alias" {
		t.Errorf("AnthropicKey from ANTHROPIC_API_KEY: got %q", cfg.LLM.AnthropicKey)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	for _, e := range []string{"GROQ_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "CLAUDE_API_KEY", "ANTHROPIC_API_KEY", "USE_PAID_API"} {
		os.Unsetenv(e)
	}

	cfg := &Config{
		LLM: LLMConfig{OpenAIKey: "from-config", UsePaid: true},
	}
	overrideFromEnv(cfg)

	// Should retain the original values when env is not set
	if cfg.LLM.OpenAIKey != "from-config" {
		t.Errorf("OpenAIKey should stay as 'from-config' when env is unset, got %q", cfg.LLM.OpenAIKey)
	}
	if !cfg.LLM.UsePaid {
		t.Error("UsePaid should stay true when USE_PAID_API is unset")
	}
}

// ── parseBool ──

func TestParseBool(t *testing.T) {
	tests := map[string]bool{
		"true": true, "1": true, "yes": true, "YES": true, "on": true,
		"false": false, "0": false, "no": false, "": false, "maybe": false,
	}
	for input, want := range tests {
		if got := parseBool(input); got != want {
			t.Errorf("parseBool(%q): got %v, want %v", input, got, want)
		}
	}
}

// ── maskKey ──

func TestMaskKeyShort(t *testing.T) {
	// Keys with 8 or fewer characters should be fully masked
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"a", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestMaskKeyLong(t *testing.T) {
	// Keys with more than 8 characters show first 3 + ... + last 3
	tests := []struct {
		input string
		want  string
	}{
		{"123456789", "123...789"},
		{"sk-abcdef1234567890xyz", "sk-...xyz"},
		{"ABCDEFGHIJKLMNOP", "ABC...NOP"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckAPIKeys / checkKey ──

func TestCheckAPIKeysAllEmpty(t *testing.T) {
	for _, e := range []string{"GROQ_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "CLAUDE_API_KEY", "ANTHROPIC_API_KEY"} {
		os.Unsetenv(e)
	}

	cfg := &Config{}
	statuses := CheckAPIKeys(cfg)

	if len(statuses) != 4 {
		t.Fatalf("CheckAPIKeys: got %d statuses, want 4", len(statuses))
	}
	for _, s := range statuses {
		if s.IsSet {
			t.Errorf("Key %q should not be set", s.Name)
		}
		if s.Source != KeySourceNone {
			t.Errorf("Key %q source: got %q, want %q", s.Name, s.Source, KeySourceNone)
		}
	}
}

func TestCheckAPIKeysFromConfig(t *testing.T) {
	os.Unsetenv("GROQ_API_KEY")

	cfg := &Config{
		LLM: LLMConfig{
			GroqKey: "gsk-test-very-long-key-value",
		},
	}
	statuses := CheckAPIKeys(cfg)

	found := false
	for _, s := range statuses {
		if s.Name == "Groq API Key" {
			found = true
			if !s.IsSet {
				t.Error("Groq key should be set")
			}
			if s.Source != KeySourceConfig {
				t.Errorf("Source: got %q, want %q", s.Source, KeySourceConfig)
			}
			if s.Masked != "gsk...lue" {
				t.Errorf("Masked: got %q, want %q", s.Masked, "gsk...lue")
			}
		}
	}
	if !found {
		t.Error("Groq API Key status not found")
	}
}

func TestCheckKeySourceDetection(t *testing.T) {
	// No env, no value
	os.Unsetenv("TEST_VAR")
	s := checkKey("Test", "", "TEST_VAR")
	if s.Source != KeySourceNone {
		t.Errorf("empty value: got source %q, want %q", s.Source, KeySourceNone)
	}
	if s.IsSet {
		t.Error("empty value should not be set")
	}

	// Value from config (no env)
	s = checkKey("Test", "config-value-long-enough", "TEST_VAR")
	if s.Source != KeySourceConfig {
		t.Errorf("config value: got source %q, want %q", s.Source, KeySourceConfig)
	}
	if !s.IsSet {
		t.Error("config value should be set")
	}

	// Value from env
	os.Setenv("TEST_VAR", "env-value-long-enough")
	defer os.Unsetenv("TEST_VAR")
	s = checkKey("Test", "env-value-long-enough", "TEST_VAR")
	if s.Source != KeySourceEnv {
		t.Errorf("env value: got source %q, want %q", s.Source, KeySourceEnv)
	}

	// Alias env var also detected
	os.Unsetenv("TEST_VAR")
	os.Setenv("TEST_VAR_ALIAS", "alias-value-long-enough")
	defer os.Unsetenv("TEST_VAR_ALIAS")
	s = checkKey("Test", "alias-value-long-enough", "TEST_VAR", "TEST_VAR_ALIAS")
	if s.Source != KeySourceEnv {
		t.Errorf("alias env value: got source %q, want %q", s.Source, KeySourceEnv)
	}
}

// ── homeDir ──

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	h := homeDir()
	if h == "" {
		t.Error("homeDir() should not return empty string")
	}
}

// ── APIKeySource constants ──

func TestAPIKeySourceConstants(t *testing.T) {
	if string(KeySourceEnv) != "env" {
		t.Errorf("KeySourceEnv: got %q", KeySourceEnv)
	}
	if string(KeySourceConfig) != "config" {
		t.Errorf("KeySourceConfig: got %q", KeySourceConfig)
	}
	if string(KeySourceNone) != "none" {
		t.Errorf("KeySourceNone: got %q", KeySourceNone)
	}
}
