package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoaderDefaultsWithoutFile(t *testing.T) {
	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "missing.yaml"))

	result, err := loader.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if result.Path != "" {
		t.Fatalf("expected empty path for missing file, got %q", result.Path)
	}
	if result.Config.ASR.Timeout != 10*time.Second {
		t.Fatalf("expected default ASR timeout, got %v", result.Config.ASR.Timeout)
	}
	if result.Config.Recording.StartStop != 5*time.Second {
		t.Fatalf("expected default start/stop timeout, got %v", result.Config.Recording.StartStop)
	}
}

func TestLoaderMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  ip: 127.0.0.1
  port: 9001
ASR:
  url: http://localhost:9099/recognize
  timeout: 3s
TTS:
  voices:
    fr: fr-FR-DeniseNeural
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	result, err := NewLoader().WithDotEnv(false).WithPath(path).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg := result.Config
	if cfg.Server.Port != 9001 {
		t.Fatalf("expected port override, got %d", cfg.Server.Port)
	}
	if cfg.ASR.Timeout != 3*time.Second {
		t.Fatalf("expected ASR timeout override, got %v", cfg.ASR.Timeout)
	}
	if cfg.ASR.PhraseBoost != 20 {
		t.Fatalf("defaults below the file must survive, got boost %v", cfg.ASR.PhraseBoost)
	}
	if cfg.TTS.Voices["fr"] != "fr-FR-DeniseNeural" {
		t.Fatalf("expected voice override, got %v", cfg.TTS.Voices)
	}
}

func TestLoaderEnvOverrides(t *testing.T) {
	t.Setenv("ASR_API_KEY", "test-key")
	t.Setenv("ASR_TIMEOUT", "7s")

	result, err := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if result.Config.ASR.APIKey != "test-key" {
		t.Fatalf("expected api key from env, got %q", result.Config.ASR.APIKey)
	}
	if result.Config.ASR.Timeout != 7*time.Second {
		t.Fatalf("expected timeout from env, got %v", result.Config.ASR.Timeout)
	}
}
