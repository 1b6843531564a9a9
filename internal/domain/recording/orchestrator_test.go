package recording

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"kouyu-server-go/internal/domain/asr"
	asrinter "kouyu-server-go/internal/domain/asr/inter"
	"kouyu-server-go/internal/domain/audio"
	"kouyu-server-go/internal/domain/language"
	"kouyu-server-go/internal/domain/recording/inter"
	"kouyu-server-go/internal/domain/scoring"
	"kouyu-server-go/internal/platform/config"
	"kouyu-server-go/internal/platform/errors"
	platformtesting "kouyu-server-go/internal/platform/testing"
)

type fakeSession struct {
	path    string
	payload []byte
	stopErr error
	stopped bool
}

func (s *fakeSession) Stop(ctx context.Context) (string, error) {
	s.stopped = true
	if s.stopErr != nil {
		return "", s.stopErr
	}
	if err := os.WriteFile(s.path, s.payload, 0o644); err != nil {
		return "", err
	}
	return s.path, nil
}

type fakeCapture struct {
	mu         sync.Mutex
	permission bool
	payload    []byte
	startErr   error
	sessions   []*fakeSession
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{permission: true, payload: bytes.Repeat([]byte{0x7f}, 8192)}
}

func (c *fakeCapture) HasPermission(ctx context.Context) bool {
	return c.permission
}

func (c *fakeCapture) Start(ctx context.Context, path string, profile config.CaptureProfile) (inter.CaptureSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return nil, c.startErr
	}
	s := &fakeSession{path: path, payload: c.payload}
	c.sessions = append(c.sessions, s)
	return s, nil
}

// liveSessions 当前未被停止的原生句柄数
func (c *fakeCapture) liveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sessions {
		if !s.stopped {
			n++
		}
	}
	return n
}

type fakeRecognizer struct {
	result *asrinter.Result
	err    error
	// delay 模拟慢速远端，配合短超时测试
	delay time.Duration
}

func (r *fakeRecognizer) Recognize(ctx context.Context, req asrinter.Request) (*asrinter.Result, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, errors.Wrap(errors.KindNetwork, "fake", "识别请求失败", ctx.Err())
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &asrinter.Result{}, nil
}

func newTestOrchestrator(t *testing.T, capture *fakeCapture, recognizer asrinter.Recognizer) *Orchestrator {
	t.Helper()
	o, _ := newTestOrchestratorWithDevice(t, capture, recognizer)
	return o
}

func newTestOrchestratorWithDevice(t *testing.T, capture *fakeCapture, recognizer asrinter.Recognizer) (*Orchestrator, *audio.NullDevice) {
	t.Helper()
	logger := platformtesting.SetupTestLogger(t).Tagged()
	device := audio.NewNullDevice()
	audioCfg := config.AudioConfig{
		TransitionWait: 200 * time.Millisecond,
		RecoveryPause:  time.Millisecond,
	}
	coordinator := audio.NewCoordinator(device, audioCfg, logger)
	asrCfg := config.ASRConfig{Timeout: time.Second, PhraseBoost: 20}
	service := asr.NewService(recognizer, language.NewRegistry(), asrCfg, logger)
	scorer := scoring.NewScorer(language.NewRegistry())
	cfg := config.RecordingConfig{
		OutputDir:    t.TempDir(),
		StartStop:    2 * time.Second,
		TestDuration: 10 * time.Millisecond,
		TestMinBytes: 4096,
		Profiles: map[string]config.CaptureProfile{
			"linux": {Container: "wav", Codec: "LINEAR16", SampleRate: 16000, Channels: 1},
		},
	}
	return NewOrchestrator(coordinator, capture, service, scorer, cfg, audioCfg, logger), device
}

func TestStartStopRoundTrip(t *testing.T) {
	capture := newFakeCapture()
	o := newTestOrchestrator(t, capture, &fakeRecognizer{})
	ctx := context.Background()

	if !o.StartRecording(ctx) {
		t.Fatal("StartRecording should succeed")
	}
	if !o.IsRecording() {
		t.Fatal("IsRecording should report true after start")
	}

	path := o.StopRecording(ctx)
	if path == "" {
		t.Fatal("StopRecording should return the capture path")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("capture file should exist: %v", err)
	}
	if o.IsRecording() {
		t.Fatal("IsRecording should report false after stop")
	}
	if filepath.Ext(path) != ".wav" {
		t.Fatalf("capture should use the profile container, got %s", path)
	}
}

func TestStartStopsExistingSession(t *testing.T) {
	capture := newFakeCapture()
	o := newTestOrchestrator(t, capture, &fakeRecognizer{})
	ctx := context.Background()

	if !o.StartRecording(ctx) {
		t.Fatal("first start should succeed")
	}
	if !o.StartRecording(ctx) {
		t.Fatal("second start should succeed")
	}

	// 任意时刻最多一个活跃原生句柄
	if got := capture.liveSessions(); got != 1 {
		t.Fatalf("expected exactly 1 live session, got %d", got)
	}
	if len(capture.sessions) != 2 {
		t.Fatalf("expected 2 sessions opened in total, got %d", len(capture.sessions))
	}
}

func TestStopRecoverySequenceOrder(t *testing.T) {
	capture := newFakeCapture()
	o, device := newTestOrchestratorWithDevice(t, capture, &fakeRecognizer{})
	ctx := context.Background()

	if !o.StartRecording(ctx) {
		t.Fatal("StartRecording should succeed")
	}
	mark := len(device.Ops)
	if path := o.StopRecording(ctx); path == "" {
		t.Fatal("StopRecording should return the capture path")
	}

	// 恢复序列的步骤与顺序不可改动：
	// 整体禁用 → 重新启用 → 中性模式 → 播放模式 → 中性模式
	want := []string{
		"disable",
		"enable",
		"apply:uninitialized",
		"apply:playback",
		"apply:uninitialized",
	}
	got := device.Ops[mark:]
	if len(got) != len(want) {
		t.Fatalf("recovery sequence = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("recovery step %d = %q, want %q (full sequence %v)", i, got[i], want[i], got)
		}
	}
}

func TestStopWithoutSession(t *testing.T) {
	o := newTestOrchestrator(t, newFakeCapture(), &fakeRecognizer{})
	if path := o.StopRecording(context.Background()); path != "" {
		t.Fatalf("stop without session should return empty path, got %q", path)
	}
}

func TestStartFailureClearsState(t *testing.T) {
	capture := newFakeCapture()
	capture.startErr = errors.New(errors.KindDevice, "fake", "设备忙")
	o := newTestOrchestrator(t, capture, &fakeRecognizer{})

	if o.StartRecording(context.Background()) {
		t.Fatal("start should fail when the device errors")
	}
	if o.IsRecording() {
		t.Fatal("failed start must not leave the recording flag set")
	}
}

func TestTestMicrophone(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		o := newTestOrchestrator(t, newFakeCapture(), &fakeRecognizer{})
		report := o.TestMicrophone(context.Background())
		if !report.Success {
			t.Fatalf("expected success, got %q", report.Message)
		}
		if report.ByteSize < 4096 {
			t.Fatalf("expected at least 4096 bytes, got %d", report.ByteSize)
		}
	})

	t.Run("silent input", func(t *testing.T) {
		capture := newFakeCapture()
		capture.payload = []byte{0, 0, 0, 0}
		o := newTestOrchestrator(t, capture, &fakeRecognizer{})
		report := o.TestMicrophone(context.Background())
		if report.Success {
			t.Fatal("tiny capture should fail the microphone test")
		}
		if !strings.Contains(report.Message, "silent") {
			t.Fatalf("expected silence hint, got %q", report.Message)
		}
	})

	t.Run("permission denied", func(t *testing.T) {
		capture := newFakeCapture()
		capture.permission = false
		o := newTestOrchestrator(t, capture, &fakeRecognizer{})
		report := o.TestMicrophone(context.Background())
		if report.Success {
			t.Fatal("denied permission should fail the test")
		}
		if !strings.Contains(report.Message, "permission") {
			t.Fatalf("expected permission hint, got %q", report.Message)
		}
	})

	t.Run("artifact removed", func(t *testing.T) {
		capture := newFakeCapture()
		o := newTestOrchestrator(t, capture, &fakeRecognizer{})
		o.TestMicrophone(context.Background())
		for _, s := range capture.sessions {
			if _, err := os.Stat(s.path); !os.IsNotExist(err) {
				t.Fatalf("test artifact %s should be deleted", s.path)
			}
		}
	})
}

func recordOnce(t *testing.T, o *Orchestrator) string {
	t.Helper()
	ctx := context.Background()
	if !o.StartRecording(ctx) {
		t.Fatal("StartRecording should succeed")
	}
	path := o.StopRecording(ctx)
	if path == "" {
		t.Fatal("StopRecording should return a path")
	}
	return path
}

func TestEvaluatePronunciation(t *testing.T) {
	t.Run("successful evaluation", func(t *testing.T) {
		recognizer := &fakeRecognizer{result: &asrinter.Result{Transcript: "chaise", Confidence: 0.95}}
		o := newTestOrchestrator(t, newFakeCapture(), recognizer)
		path := recordOnce(t, o)

		result := o.EvaluatePronunciation(context.Background(), path, "chaise", "fr")
		if !result.IsCorrect {
			t.Fatalf("exact transcript should be correct, got %+v", result)
		}
		if result.Confidence < 85 {
			t.Fatalf("exact match confidence should be >= 85, got %d", result.Confidence)
		}
	})

	t.Run("no speech detected", func(t *testing.T) {
		o := newTestOrchestrator(t, newFakeCapture(), &fakeRecognizer{})
		path := recordOnce(t, o)

		result := o.EvaluatePronunciation(context.Background(), path, "chaise", "fr")
		if result.IsCorrect || result.Confidence != 0 {
			t.Fatalf("empty transcript should yield confidence 0, got %+v", result)
		}
		if !strings.Contains(result.Feedback, "detect") {
			t.Fatalf("expected no-speech feedback, got %q", result.Feedback)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		recognizer := &fakeRecognizer{delay: 5 * time.Second}
		o := newTestOrchestrator(t, newFakeCapture(), recognizer)
		path := recordOnce(t, o)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		result := o.EvaluatePronunciation(ctx, path, "chaise", "fr")
		if result.IsCorrect {
			t.Fatal("timed out evaluation must not be correct")
		}
		if !strings.Contains(result.Feedback, "timed out") {
			t.Fatalf("expected timeout feedback, got %q", result.Feedback)
		}
	})

	t.Run("service not configured", func(t *testing.T) {
		recognizer := &fakeRecognizer{err: errors.New(errors.KindConfig, "fake", "缺少API密钥")}
		o := newTestOrchestrator(t, newFakeCapture(), recognizer)
		path := recordOnce(t, o)

		result := o.EvaluatePronunciation(context.Background(), path, "chaise", "fr")
		if !strings.Contains(result.Feedback, "not configured") {
			t.Fatalf("config errors should surface distinctly, got %q", result.Feedback)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		o := newTestOrchestrator(t, newFakeCapture(), &fakeRecognizer{})
		result := o.EvaluatePronunciation(context.Background(), "/nonexistent/clip.wav", "chaise", "fr")
		if result.IsCorrect || result.Confidence != 0 {
			t.Fatalf("missing file must not produce a passing result, got %+v", result)
		}
	})
}

func TestCleanupStopsSession(t *testing.T) {
	capture := newFakeCapture()
	o := newTestOrchestrator(t, capture, &fakeRecognizer{})
	ctx := context.Background()

	if !o.StartRecording(ctx) {
		t.Fatal("StartRecording should succeed")
	}
	o.Cleanup(ctx)

	if o.IsRecording() {
		t.Fatal("Cleanup should stop the in-flight session")
	}
	if got := capture.liveSessions(); got != 0 {
		t.Fatalf("expected no live sessions after cleanup, got %d", got)
	}
}
