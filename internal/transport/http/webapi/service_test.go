package webapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"kouyu-server-go/internal/domain/asr"
	asrinter "kouyu-server-go/internal/domain/asr/inter"
	"kouyu-server-go/internal/domain/audio"
	"kouyu-server-go/internal/domain/language"
	"kouyu-server-go/internal/domain/recording"
	recinter "kouyu-server-go/internal/domain/recording/inter"
	"kouyu-server-go/internal/domain/scoring"
	"kouyu-server-go/internal/domain/voice"
	"kouyu-server-go/internal/platform/config"
	platformtesting "kouyu-server-go/internal/platform/testing"
)

type stubRecognizer struct {
	transcript string
	confidence float64
}

func (r *stubRecognizer) Recognize(ctx context.Context, req asrinter.Request) (*asrinter.Result, error) {
	return &asrinter.Result{Transcript: r.transcript, Confidence: r.confidence}, nil
}

type stubCapture struct{}

func (stubCapture) HasPermission(ctx context.Context) bool { return true }
func (stubCapture) Start(ctx context.Context, path string, profile config.CaptureProfile) (recinter.CaptureSession, error) {
	return nil, nil
}

type stubSynth struct{}

func (stubSynth) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	return []byte("mp3"), nil
}

func setupRouter(t *testing.T, recognizer asrinter.Recognizer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := platformtesting.SetupTestLogger(t).Tagged()
	registry := language.NewRegistry()
	audioCfg := config.AudioConfig{TransitionWait: 100 * time.Millisecond}
	coordinator := audio.NewCoordinator(audio.NewNullDevice(), audioCfg, logger)
	asrService := asr.NewService(recognizer, registry, config.ASRConfig{Timeout: time.Second}, logger)
	scorer := scoring.NewScorer(registry)
	recCfg := config.RecordingConfig{OutputDir: t.TempDir(), StartStop: time.Second}
	orchestrator := recording.NewOrchestrator(coordinator, stubCapture{}, asrService, scorer, recCfg, audioCfg, logger)

	resolver := voice.NewResolver(registry, voice.NewEdgeCatalog(), logger)
	speaker := voice.NewSpeaker(coordinator, resolver, stubSynth{}, registry, config.TTSConfig{OutputDir: t.TempDir()}, logger)

	cfg := config.DefaultConfig()
	cfg.Recording.OutputDir = recCfg.OutputDir

	service, err := NewService(cfg, orchestrator, speaker, resolver, registry, nil, logger)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	engine := gin.New()
	if err := service.Register(context.Background(), engine.Group("/api")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := sonic.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestEvaluateWithEmbeddedAudio(t *testing.T) {
	engine := setupRouter(t, &stubRecognizer{transcript: "chaise", confidence: 0.95})

	w := postJSON(t, engine, "/api/evaluate", gin.H{
		"audio_b64":     base64.StdEncoding.EncodeToString([]byte("fake-wav-bytes")),
		"expected_text": "chaise",
		"language":      "fr",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool                     `json:"success"`
		Data    scoring.EvaluationResult `json:"data"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !resp.Success || !resp.Data.IsCorrect {
		t.Fatalf("exact match should evaluate as correct: %s", w.Body.String())
	}
	if resp.Data.Confidence < 85 {
		t.Fatalf("exact match confidence should be >= 85, got %d", resp.Data.Confidence)
	}
}

func TestEvaluateRejectsMissingAudio(t *testing.T) {
	engine := setupRouter(t, &stubRecognizer{})
	w := postJSON(t, engine, "/api/evaluate", gin.H{
		"expected_text": "chaise",
		"language":      "fr",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestEvaluateRejectsBadBase64(t *testing.T) {
	engine := setupRouter(t, &stubRecognizer{})
	w := postJSON(t, engine, "/api/evaluate", gin.H{
		"audio_b64":     "not base64 at all!!",
		"expected_text": "chaise",
		"language":      "fr",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLanguagesRoute(t *testing.T) {
	engine := setupRouter(t, &stubRecognizer{})
	req := httptest.NewRequest(http.MethodGet, "/api/languages", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(resp.Data) == 0 {
		t.Fatal("expected at least one registered language")
	}
}

func TestVoicesRoute(t *testing.T) {
	engine := setupRouter(t, &stubRecognizer{})
	req := httptest.NewRequest(http.MethodGet, "/api/voices?language=fr", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			ResolvedLanguage string `json:"resolved_language"`
			Voice            struct {
				ID string `json:"id"`
			} `json:"voice"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Data.ResolvedLanguage != "fr" || resp.Data.Voice.ID == "" {
		t.Fatalf("unexpected voices payload: %s", w.Body.String())
	}
}

func TestAttemptsRouteDisabled(t *testing.T) {
	engine := setupRouter(t, &stubRecognizer{})
	req := httptest.NewRequest(http.MethodGet, "/api/attempts", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when history is disabled, got %d", w.Code)
	}
}
