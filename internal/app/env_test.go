package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")
	t.Setenv("BAZ", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nexport BAR=\"beta gamma\"\nBAZ='x=y'\nnot a pair\n=orphan\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	for k, want := range map[string]string{"FOO": "alpha", "BAR": "beta gamma", "BAZ": "x=y"} {
		if got := os.Getenv(k); got != want {
			t.Fatalf("%s=%q, want %q", k, got, want)
		}
	}
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

func TestApplyEnvToConfig_FromEnv(t *testing.T) {
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("OPENAI_BASE_URL", "http://stub.local/v1")
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("LLM_MODEL", "m1")
	t.Setenv("SUMMARY_PROMPT", "Sum up:")
	t.Setenv("FETCH_TIMEOUT", "12s")
	t.Setenv("IMAGE_CONCURRENCY", "7")
	t.Setenv("IMAGE_MAX_BYTES", "1024")
	t.Setenv("MIN_LATENCY", "1500ms")
	t.Setenv("VERBOSE", "yes")

	var cfg Config
	ApplyEnvToConfig(&cfg)
	if cfg.LLMBaseURL != "http://stub.local/v1" {
		t.Fatalf("LLMBaseURL=%q, want fallback from OPENAI_BASE_URL", cfg.LLMBaseURL)
	}
	if cfg.LLMAPIKey != "secret" || cfg.LLMModel != "m1" || cfg.SummaryPrompt != "Sum up:" {
		t.Fatalf("llm settings not applied: %+v", cfg)
	}
	if cfg.FetchTimeout != 12*time.Second || cfg.MinLatency != 1500*time.Millisecond {
		t.Fatalf("durations not applied: %+v", cfg)
	}
	if cfg.ImageConcurrency != 7 || cfg.ImageMaxBytes != 1024 || !cfg.Verbose {
		t.Fatalf("limits not applied: %+v", cfg)
	}
}

func TestApplyEnvToConfig_ExplicitWins(t *testing.T) {
	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("IMAGE_CONCURRENCY", "9")
	t.Setenv("FETCH_TIMEOUT", "not-a-duration")
	cfg := Config{LLMModel: "from-flag", ImageConcurrency: 2}
	ApplyEnvToConfig(&cfg)
	if cfg.LLMModel != "from-flag" || cfg.ImageConcurrency != 2 {
		t.Fatalf("explicit values overridden: %+v", cfg)
	}
	if cfg.FetchTimeout != 0 {
		t.Fatalf("malformed duration should be ignored, got %v", cfg.FetchTimeout)
	}
}
