package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kouyu-server-go/internal/domain/audio"
	"kouyu-server-go/internal/domain/recording"
	recinter "kouyu-server-go/internal/domain/recording/inter"
	platformconfig "kouyu-server-go/internal/platform/config"
	platformerrors "kouyu-server-go/internal/platform/errors"
	platformlogging "kouyu-server-go/internal/platform/logging"
	platformtesting "kouyu-server-go/internal/platform/testing"
)

func TestInitGraphDependenciesAreOrdered(t *testing.T) {
	steps := InitGraph()
	seen := make(map[string]bool, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if !seen[dep] {
				t.Fatalf("step %s depends on %s which is not defined earlier", step.ID, dep)
			}
		}
		if seen[step.ID] {
			t.Fatalf("duplicate step id %s", step.ID)
		}
		seen[step.ID] = true
	}
}

func TestExecuteInitStepsRejectsMissingDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "b",
			DependsOn: []string{"a"},
			Execute:   func(context.Context, *appState) error { return nil },
		},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if err == nil {
		t.Fatal("unsatisfied dependency must fail")
	}
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Fatalf("expected bootstrap kind, got %v", err)
	}
}

func TestExecuteInitStepsWrapsStepErrors(t *testing.T) {
	steps := []initStep{
		{
			ID:   "boom",
			Kind: platformerrors.KindAudio,
			Execute: func(context.Context, *appState) error {
				return context.DeadlineExceeded
			},
		},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindAudio) {
		t.Fatalf("step errors should carry the step kind, got %v", err)
	}
}

func TestExecuteInitStepsNilState(t *testing.T) {
	if err := executeInitSteps(context.Background(), InitGraph(), nil); err == nil {
		t.Fatal("nil state must fail")
	}
}

type stubCaptureDevice struct{}

func (stubCaptureDevice) HasPermission(ctx context.Context) bool {
	return true
}

func (stubCaptureDevice) Start(ctx context.Context, path string, profile platformconfig.CaptureProfile) (recinter.CaptureSession, error) {
	return stubCaptureSession{path: path}, nil
}

type stubCaptureSession struct{ path string }

func (s stubCaptureSession) Stop(ctx context.Context) (string, error) {
	if err := os.WriteFile(s.path, []byte("RIFF"), 0o644); err != nil {
		return "", err
	}
	return s.path, nil
}

// 停机收尾期间产生的日志必须落到仍然打开的日志文件里，
// 日志关闭只能发生在清理之后。
func TestShutdownCleanupLogsBeforeLoggerCloses(t *testing.T) {
	cfg := platformtesting.SetupTestConfig(t)
	provider, err := platformlogging.New(platformlogging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
	})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger := provider.Tagged()

	coordinator := audio.NewCoordinator(audio.NewNullDevice(), cfg.Audio, logger)
	orchestrator := recording.NewOrchestrator(
		coordinator, stubCaptureDevice{}, nil, nil, cfg.Recording, cfg.Audio, logger)

	state := &appState{
		config:       cfg,
		logProvider:  provider,
		logger:       logger,
		coordinator:  coordinator,
		orchestrator: orchestrator,
	}

	if !orchestrator.StartRecording(context.Background()) {
		t.Fatal("StartRecording should succeed")
	}

	shutdownCleanup(state)

	if orchestrator.IsRecording() {
		t.Fatal("cleanup should stop the in-flight recording")
	}

	data, err := os.ReadFile(filepath.Join(cfg.Log.Dir, cfg.Log.File))
	if err != nil {
		t.Fatalf("log file should exist: %v", err)
	}
	if !strings.Contains(string(data), "录音结束") {
		t.Fatal("the recording-stop entry must be written before the log closes")
	}
}
