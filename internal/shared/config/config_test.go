package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("LLM_PROVIDER", "Google")
	t.Setenv("INGEST_CONCURRENCY", "nope")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %s", cfg.LLMProvider)
	}
	if cfg.IngestConcurrency != 1 {
		t.Fatalf("expected fallback concurrency 1, got %d", cfg.IngestConcurrency)
	}
}

func TestValidateRequiresBucketForS3(t *testing.T) {
	cfg := Config{
		ObjectStoreType:   "s3",
		LLMProvider:       "none",
		IngestConcurrency: 1,
		WorkerConcurrency: 1,
		Env:               "dev",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error without S3 bucket")
	}
	cfg.S3Bucket = "uploads"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRequiresModelForProvider(t *testing.T) {
	cfg := Config{
		ObjectStoreType:   "local",
		LocalStoreDir:     "./data",
		LLMProvider:       "openai",
		IngestConcurrency: 1,
		WorkerConcurrency: 1,
		Env:               "dev",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error without model")
	}
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PROFILE_TEST_A=from-file\nPROFILE_TEST_B=\"quoted\"\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("PROFILE_TEST_A", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("PROFILE_TEST_B") })

	loadEnvFiles(path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("PROFILE_TEST_A"); got != "from-env" {
		t.Fatalf("expected env to win, got %s", got)
	}
	if got := os.Getenv("PROFILE_TEST_B"); got != "quoted" {
		t.Fatalf("expected quoted value unwrapped, got %s", got)
	}
}

func TestLoadWorkerAndMergeSettings(t *testing.T) {
	t.Setenv("MERGE_DEDUPE", "true")
	t.Setenv("QUEUE_VISIBILITY_TIMEOUT_SECONDS", "120")
	t.Setenv("PROMPT_VERSION", "v1")

	cfg := Load()
	if !cfg.MergeDedupe {
		t.Fatalf("expected dedupe enabled")
	}
	if cfg.QueueVisibility != 120 {
		t.Fatalf("expected visibility 120, got %d", cfg.QueueVisibility)
	}
	if cfg.PromptVersion != "v1" || cfg.ShutdownTimeout != 30 {
		t.Fatalf("unexpected prompt/shutdown settings %q %d", cfg.PromptVersion, cfg.ShutdownTimeout)
	}
}
