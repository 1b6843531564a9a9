package recording

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"kouyu-server-go/internal/domain/asr"
	"kouyu-server-go/internal/domain/audio"
	"kouyu-server-go/internal/domain/eventbus"
	"kouyu-server-go/internal/domain/recording/inter"
	"kouyu-server-go/internal/domain/scoring"
	"kouyu-server-go/internal/platform/config"
	"kouyu-server-go/internal/platform/errors"
	"kouyu-server-go/internal/utils"
	"kouyu-server-go/internal/utils/syncx"
)

// session 一次录音会话，编排器独占持有，停止或被替换时销毁
type session struct {
	id      string
	handle  inter.CaptureSession
	path    string
	profile config.CaptureProfile
}

// MicTestReport 麦克风自检结果
type MicTestReport struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ByteSize int64  `json:"byte_size,omitempty"`
}

// Orchestrator 录音编排器。状态机 Idle → Recording → (Stopping) → Idle，
// 任意时刻最多存在一个原生采集句柄。
type Orchestrator struct {
	coordinator *audio.Coordinator
	capture     inter.CaptureDevice
	asrService  *asr.Service
	scorer      *scoring.Scorer
	cfg         config.RecordingConfig
	audioCfg    config.AudioConfig
	profile     config.CaptureProfile
	logger      *utils.Logger

	mu      *syncx.Mutex // 可感知context的互斥，串行化start/stop
	session *session
}

// NewOrchestrator 创建录音编排器
func NewOrchestrator(
	coordinator *audio.Coordinator,
	capture inter.CaptureDevice,
	asrService *asr.Service,
	scorer *scoring.Scorer,
	cfg config.RecordingConfig,
	audioCfg config.AudioConfig,
	logger *utils.Logger,
) *Orchestrator {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Orchestrator{
		coordinator: coordinator,
		capture:     capture,
		asrService:  asrService,
		scorer:      scorer,
		cfg:         cfg,
		audioCfg:    audioCfg,
		profile:     CurrentProfile(cfg.Profiles),
		logger:      logger,
		mu:          syncx.NewMutex(),
	}
}

// CheckPermissions 查询系统麦克风权限，从不抛错
func (o *Orchestrator) CheckPermissions(ctx context.Context) bool {
	return o.capture.HasPermission(ctx)
}

// IsRecording 当前是否有进行中的采集
func (o *Orchestrator) IsRecording() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session != nil
}

// StartRecording 开始一次新的录音。已有会话会先被强制停止，
// 保证任意时刻只有一个原生句柄。失败返回false，不抛错。
func (o *Orchestrator) StartRecording(ctx context.Context) bool {
	timeout := o.startStopTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := o.mu.LockContext(ctx); err != nil {
		o.logger.WarnTag("RECORD", "等待录音锁超时: %v", err)
		return false
	}
	defer o.mu.Unlock()

	// 串行化：先停掉现存会话，绝不允许两个原生句柄并存
	if o.session != nil {
		o.logger.WarnTag("RECORD", "检测到进行中的录音 %s，先行停止", o.session.id)
		o.stopLocked(ctx)
	}

	o.coordinator.ConfigureForRecording(ctx)

	// 平台相关的冷启动延迟，麦克风未就绪时开录会采到静音
	if o.profile.SettleDelay > 0 {
		select {
		case <-time.After(o.profile.SettleDelay):
		case <-ctx.Done():
			return false
		}
	}

	id := uuid.NewString()
	path := filepath.Join(o.cfg.OutputDir, fmt.Sprintf("capture-%s.%s", id, o.profile.Container))
	if err := os.MkdirAll(o.cfg.OutputDir, 0o755); err != nil {
		o.logger.ErrorTag("RECORD", "创建录音目录失败: %v", err)
		return false
	}

	handle, err := o.capture.Start(ctx, path, o.profile)
	if err != nil {
		o.logger.ErrorTag("RECORD", "启动采集失败: %v", err)
		o.session = nil // 失败时清掉录音标记
		return false
	}

	o.session = &session{id: id, handle: handle, path: path, profile: o.profile}
	o.logger.InfoRecord("录音开始 id=%s rate=%d codec=%s", id, o.profile.SampleRate, o.profile.Codec)
	eventbus.PublishAsync(eventbus.EventRecordingStarted, eventbus.RecordingEventData{SessionID: id})
	return true
}

// StopRecording 停止录音并返回文件路径；无会话或失败时返回空串。
// 停止后执行多步音频子系统恢复序列。
func (o *Orchestrator) StopRecording(ctx context.Context) string {
	timeout := o.startStopTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := o.mu.LockContext(ctx); err != nil {
		o.logger.WarnTag("RECORD", "等待录音锁超时: %v", err)
		return ""
	}
	defer o.mu.Unlock()

	return o.stopLocked(ctx)
}

// stopLocked 持锁状态下停止当前会话并执行恢复序列
func (o *Orchestrator) stopLocked(ctx context.Context) string {
	if o.session == nil {
		return ""
	}

	sess := o.session
	o.session = nil // 无论成败，句柄引用必须被清除

	path, err := sess.handle.Stop(ctx)
	if err != nil {
		o.logger.ErrorTag("RECORD", "停止采集失败 id=%s: %v", sess.id, err)
		path = ""
	}

	o.recoverAudioSubsystem(ctx)

	if path != "" {
		o.logger.InfoRecord("录音结束 id=%s path=%s", sess.id, path)
		eventbus.PublishAsync(eventbus.EventRecordingStopped, eventbus.RecordingEventData{
			SessionID: sess.id,
			FilePath:  path,
		})
	}
	return path
}

// recoverAudioSubsystem 停止录音后的恢复序列。直接切模式标记会把
// 硬件会话留在不一致状态，必须整体禁用再重建。步骤与顺序不可改动，
// 每一步都是尽力而为。
func (o *Orchestrator) recoverAudioSubsystem(ctx context.Context) {
	pause := o.audioCfg.RecoveryPause
	if pause <= 0 {
		pause = 100 * time.Millisecond
	}

	o.coordinator.DisableSubsystem()
	sleepCtx(ctx, pause)
	o.coordinator.EnableSubsystem()
	o.coordinator.ApplyNeutral()
	sleepCtx(ctx, pause)
	o.coordinator.ConfigureForPlayback(ctx)
	o.coordinator.ApplyNeutral()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// TestMicrophone 麦克风自检：录约一秒，验证产物大小，删除产物
func (o *Orchestrator) TestMicrophone(ctx context.Context) MicTestReport {
	if !o.CheckPermissions(ctx) {
		return MicTestReport{Success: false, Message: "Microphone permission denied. Please allow microphone access and try again."}
	}

	if !o.StartRecording(ctx) {
		return MicTestReport{Success: false, Message: "Could not start a test recording. The microphone may be in use by another application."}
	}

	duration := o.cfg.TestDuration
	if duration <= 0 {
		duration = time.Second
	}
	sleepCtx(ctx, duration)

	path := o.StopRecording(ctx)
	if path == "" {
		return MicTestReport{Success: false, Message: "The test recording could not be finalized."}
	}
	defer os.Remove(path) // 自检产物用完即删

	info, err := os.Stat(path)
	if err != nil {
		return MicTestReport{Success: false, Message: "The test recording file is missing."}
	}

	minBytes := o.cfg.TestMinBytes
	if minBytes <= 0 {
		minBytes = 4096
	}
	if info.Size() < minBytes {
		return MicTestReport{
			Success:  false,
			Message:  "The microphone appears to be silent. Check your input device and volume.",
			ByteSize: info.Size(),
		}
	}

	return MicTestReport{
		Success:  true,
		Message:  "Microphone is working.",
		ByteSize: info.Size(),
	}
}

// EvaluatePronunciation 读取录音、调用远端识别并评分。
// 所有失败路径都返回结构完整的EvaluationResult，绝不抛错。
func (o *Orchestrator) EvaluatePronunciation(ctx context.Context, path, expectedText, lang string) scoring.EvaluationResult {
	audioBytes, err := os.ReadFile(path)
	if err != nil {
		o.logger.ErrorTag("RECORD", "读取录音失败 %s: %v", path, err)
		return failureResult("We could not read your recording. Please try again.")
	}

	result, err := o.asrService.Transcribe(ctx, audioBytes, o.profile, expectedText, lang)
	if err != nil {
		return o.transcribeFailure(err)
	}

	// 空结果：未检测到语音
	if result.Transcript == "" {
		return scoring.EvaluationResult{
			IsCorrect:  false,
			Confidence: 0,
			Feedback:   "We could not detect any speech. Please speak louder and closer to the microphone.",
		}
	}

	evaluation := o.scorer.Evaluate(expectedText, result.Transcript, lang, result.Confidence)
	o.logger.InfoScore("评测完成 lang=%s expected=%q transcript=%q score=%.3f correct=%v",
		lang, expectedText, result.Transcript, evaluation.FinalScore, evaluation.IsCorrect)
	eventbus.PublishAsync(eventbus.EventScoreResult, eventbus.ScoreEventData{
		ExpectedText: expectedText,
		Transcript:   result.Transcript,
		Language:     lang,
		IsCorrect:    evaluation.IsCorrect,
		Confidence:   evaluation.Confidence,
		Metrics:      evaluation.Metrics.Map(),
	})
	return evaluation
}

// transcribeFailure 把识别错误翻译为用户可读的失败结果
func (o *Orchestrator) transcribeFailure(err error) scoring.EvaluationResult {
	o.logger.ErrorTag("ASR", "识别失败: %v", err)
	eventbus.PublishAsync(eventbus.EventASRError, eventbus.SystemEventData{
		Level:   "error",
		Message: err.Error(),
	})

	switch {
	case errors.IsKind(err, errors.KindConfig):
		// 配置错误不可恢复，给出区别于瞬时故障的提示
		return failureResult("The speech service is not configured. Please contact support.")
	case errors.IsKind(err, errors.KindFormat):
		return failureResult("Your recording could not be processed. Please try recording again.")
	case stderrors.Is(err, context.DeadlineExceeded):
		return failureResult("The evaluation timed out. Check your connection and try again.")
	default:
		return failureResult("Something went wrong while evaluating your pronunciation. Please try again.")
	}
}

func failureResult(feedback string) scoring.EvaluationResult {
	return scoring.EvaluationResult{
		IsCorrect:  false,
		Confidence: 0,
		Feedback:   feedback,
	}
}

// Cleanup 组件销毁时调用：强制停止在途录音并恢复播放模式
func (o *Orchestrator) Cleanup(ctx context.Context) {
	if err := o.mu.LockContext(ctx); err == nil {
		o.stopLocked(ctx)
		o.mu.Unlock()
	}
	o.coordinator.ConfigureForPlayback(ctx)
}

func (o *Orchestrator) startStopTimeout() time.Duration {
	if o.cfg.StartStop > 0 {
		return o.cfg.StartStop
	}
	return 5 * time.Second
}
