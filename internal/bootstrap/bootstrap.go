package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"kouyu-server-go/internal/domain/asr"
	asrgspeech "kouyu-server-go/internal/domain/asr/infrastructure/adapters/gspeech"
	"kouyu-server-go/internal/domain/audio"
	audioportaudio "kouyu-server-go/internal/domain/audio/infrastructure/adapters/portaudio"
	"kouyu-server-go/internal/domain/language"
	"kouyu-server-go/internal/domain/recording"
	recportaudio "kouyu-server-go/internal/domain/recording/infrastructure/adapters/portaudio"
	"kouyu-server-go/internal/domain/scoring"
	"kouyu-server-go/internal/domain/voice"
	platformconfig "kouyu-server-go/internal/platform/config"
	platformerrors "kouyu-server-go/internal/platform/errors"
	platformlogging "kouyu-server-go/internal/platform/logging"
	platformstorage "kouyu-server-go/internal/platform/storage"
	httptransport "kouyu-server-go/internal/transport/http"
	httpwebapi "kouyu-server-go/internal/transport/http/webapi"
	"kouyu-server-go/internal/utils"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config      *platformconfig.Config
	configPath  string
	logProvider *platformlogging.Logger
	logger      *utils.Logger
	slogger     *slog.Logger

	profiles     *language.Registry
	attemptRepo  platformstorage.AttemptRepository
	coordinator  *audio.Coordinator
	orchestrator *recording.Orchestrator
	resolver     *voice.Resolver
	speaker      *voice.Speaker
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.orchestrator == nil || state.speaker == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"domain services not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	defer shutdownCleanup(state)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return fmt.Errorf("启动 Http 服务失败: %w", err)
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("引导", "服务已全部关闭")
	return nil
}

// shutdownCleanup 停机收尾。先停掉在途录音并释放音频设备，
// 这两步还要写日志，日志必须最后关。
func shutdownCleanup(state *appState) {
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state.orchestrator.Cleanup(cleanupCtx)
	if err := state.coordinator.Close(); err != nil {
		state.logger.WarnTag("引导", "音频设备未正常关闭: %v", err)
	}
	state.logger.Close()
}

func logBootstrapGraph(steps []initStep, logger *utils.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("引导", "初始化依赖关系概览")

	stepNames := map[string]string{
		"config:load":       "加载配置",
		"logging:init":      "初始化日志",
		"storage:init":      "初始化评测历史存储",
		"language:init":     "加载语言配置",
		"audio:init-device": "初始化音频设备",
		"recording:init":    "初始化录音编排器",
		"voice:init":        "初始化朗读服务",
	}

	for _, step := range steps {
		if name, ok := stepNames[step.ID]; ok {
			logger.InfoTag("引导", name)
		}
	}
	logger.InfoTag("引导", "启动服务")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "storage:init",
			Title:     "Initialise attempt storage",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   initStorageStep,
		},
		{
			ID:        "language:init",
			Title:     "Load language profiles",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindConfig,
			Execute:   initLanguagesStep,
		},
		{
			ID:        "audio:init-device",
			Title:     "Initialise audio device and coordinator",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindAudio,
			Execute:   initAudioStep,
		},
		{
			ID:        "recording:init",
			Title:     "Initialise recording orchestrator",
			DependsOn: []string{"audio:init-device", "language:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initRecordingStep,
		},
		{
			ID:        "voice:init",
			Title:     "Initialise voice services",
			DependsOn: []string{"audio:init-device", "language:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initVoiceStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().
		WithDotEnv(true).
		WithPath("config.yaml").
		Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}

	state.config = result.Config
	state.configPath = result.Path
	if state.configPath == "" {
		state.configPath = "defaults+env"
	}
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init",
			"config not loaded",
		)
	}

	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "failed to initialize logging provider", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Tagged()
	state.slogger = logProvider.Slog()
	utils.DefaultLogger = state.logger

	state.logger.InfoTag(
		"引导",
		"日志模块就绪 [%s] %s",
		state.config.Log.Level,
		state.configPath,
	)
	return nil
}

func initStorageStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Storage)
	if err != nil {
		return err
	}

	state.attemptRepo = platformstorage.NewAttemptRepository(db)
	if _, err := platformstorage.NewAttemptRecorder(state.attemptRepo, state.logger); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init", "failed to subscribe attempt recorder", err)
	}

	state.logger.InfoTag("存储", "评测历史存储就绪")
	return nil
}

func initLanguagesStep(_ context.Context, state *appState) error {
	registry := language.NewRegistry()
	for code, tuning := range state.config.Languages {
		registry.ApplyTuning(code, tuning.Threshold, tuning.Weights, tuning.Rate)
	}
	state.profiles = registry
	state.logger.InfoTag("引导", "语言配置加载完成，共 %d 种语言", len(registry.Codes()))
	return nil
}

func initAudioStep(_ context.Context, state *appState) error {
	device, err := audioportaudio.NewDevice(state.logger)
	if err != nil {
		// 无声卡环境下仍要能跑评测流程
		state.logger.WarnTag("AUDIO", "原生音频设备不可用，使用空设备: %v", err)
		state.coordinator = audio.NewCoordinator(audio.NewNullDevice(), state.config.Audio, state.logger)
		return nil
	}
	state.coordinator = audio.NewCoordinator(device, state.config.Audio, state.logger)
	return nil
}

func initRecordingStep(_ context.Context, state *appState) error {
	recognizer, err := asrgspeech.NewRecognizer(state.config.ASR, state.logger)
	if err != nil {
		return err
	}
	asrService := asr.NewService(recognizer, state.profiles, state.config.ASR, state.logger)
	scorer := scoring.NewScorer(state.profiles)
	capture := recportaudio.NewCaptureDevice(state.logger)

	state.orchestrator = recording.NewOrchestrator(
		state.coordinator,
		capture,
		asrService,
		scorer,
		state.config.Recording,
		state.config.Audio,
		state.logger,
	)
	return nil
}

func initVoiceStep(_ context.Context, state *appState) error {
	state.resolver = voice.NewResolver(state.profiles, voice.NewEdgeCatalog(), state.logger)
	state.speaker = voice.NewSpeaker(
		state.coordinator,
		state.resolver,
		voice.NewEdgeSynthesizer(),
		state.profiles,
		state.config.TTS,
		state.logger,
	)
	return nil
}

func startHTTPServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config: config,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httptransport.APIResponse{
			Success: false,
			Data:    gin.H{},
			Message: "not found",
			Code:    http.StatusNotFound,
		})
	})

	webapiService, err := httpwebapi.NewService(
		config,
		state.orchestrator,
		state.speaker,
		state.resolver,
		state.profiles,
		state.attemptRepo,
		logger,
	)
	if err != nil {
		logger.ErrorTag("WebAPI", "WebAPI 服务初始化失败: %v", err)
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create webapi service", err)
	}

	if err := webapiService.Register(groupCtx, apiGroup); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:register", "failed to register webapi routes", err)
	}

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(config.Web.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "Gin 服务已启动，访问地址 http://localhost:%d", config.Web.Port)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP 服务启动失败: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *utils.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("引导", "收到系统信号 %v，正在进行资源清理", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("引导", "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag("引导", "所有服务已成功关闭")
	case <-time.After(15 * time.Second):
		timeoutErr := errors.New("服务关闭超时")
		logger.ErrorTag("引导", "服务关闭超时，已强制退出")
		return timeoutErr
	}
	return nil
}
