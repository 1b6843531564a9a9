package audio

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"kouyu-server-go/internal/domain/eventbus"
	"kouyu-server-go/internal/platform/config"
	"kouyu-server-go/internal/utils"
)

// Mode 音频会话模式，进程内同一时刻只有一个生效
type Mode int

const (
	ModeUninitialized Mode = iota
	ModePlayback
	ModeRecording
)

func (m Mode) String() string {
	switch m {
	case ModePlayback:
		return "playback"
	case ModeRecording:
		return "recording"
	default:
		return "uninitialized"
	}
}

// Coordinator 音频会话协调器。会话模式是唯一的共享可变资源，
// 只能通过这里变更，录音与合成组件不得直接触碰设备模式。
type Coordinator struct {
	device Device
	logger *utils.Logger
	cfg    config.AudioConfig

	// 真正的异步互斥：第二个调用者在固定等待窗口内排队，
	// 超时则直接返回，不重入切换逻辑
	transition *semaphore.Weighted

	mu   sync.RWMutex
	mode Mode
}

// NewCoordinator 创建协调器，初始模式为 Uninitialized
func NewCoordinator(device Device, cfg config.AudioConfig, logger *utils.Logger) *Coordinator {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	if device == nil {
		device = NewNullDevice()
	}
	return &Coordinator{
		device:     device,
		logger:     logger,
		cfg:        cfg,
		transition: semaphore.NewWeighted(1),
		mode:       ModeUninitialized,
	}
}

// CurrentMode 纯读取当前模式
func (c *Coordinator) CurrentMode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// ConfigureForPlayback 切换到播放模式。幂等；设备失败只记录日志，
// 从不向调用者抛错。
func (c *Coordinator) ConfigureForPlayback(ctx context.Context) {
	c.configure(ctx, ModePlayback)
}

// ConfigureForRecording 切换到录音模式。幂等；同 ConfigureForPlayback。
func (c *Coordinator) ConfigureForRecording(ctx context.Context) {
	c.configure(ctx, ModeRecording)
}

func (c *Coordinator) configure(ctx context.Context, target Mode) {
	if c.CurrentMode() == target {
		return
	}

	// 在固定等待窗口内竞争切换权；拿不到就放弃本次切换
	waitCtx, cancel := context.WithTimeout(ctx, c.transitionWait())
	defer cancel()
	if err := c.transition.Acquire(waitCtx, 1); err != nil {
		c.logger.WarnTag("AUDIO", "模式切换进行中，放弃本次 %s 切换", target)
		return
	}
	defer c.transition.Release(1)

	// 拿到锁后复查，前一个持有者可能已完成同样的切换
	if c.CurrentMode() == target {
		return
	}

	from := c.CurrentMode()
	if err := c.device.ApplyMode(target); err != nil {
		c.logger.ErrorTag("AUDIO", "应用 %s 模式失败: %v", target, err)
		// 尽力而为：模式标记仍然推进，后续恢复序列会重建设备状态
	}

	if target == ModePlayback && c.cfg.PrimingEnabled {
		c.prime(ctx)
	}

	c.setMode(target)
	c.logger.InfoAudio("会话模式 %s -> %s", from, target)
	eventbus.PublishAsync(eventbus.EventAudioModeChanged, eventbus.AudioModeEventData{
		From: from.String(),
		To:   target.String(),
	})
}

// prime 播放近静音片段预热会话，规避平台冷启动丢音
func (c *Coordinator) prime(ctx context.Context) {
	duration := c.cfg.PrimingDuration
	if duration <= 0 {
		duration = 120 * time.Millisecond
	}
	if err := c.device.PlayClip(ctx, duration); err != nil {
		c.logger.WarnTag("AUDIO", "预热片段播放失败: %v", err)
	}
}

// Reset 强制回到 Uninitialized 再切回播放模式。
// 无论之前处于什么状态，结束时一定处于 Playback。
func (c *Coordinator) Reset(ctx context.Context) {
	c.setMode(ModeUninitialized)
	if err := c.device.ApplyMode(ModeUninitialized); err != nil {
		c.logger.WarnTag("AUDIO", "重置为中性模式失败: %v", err)
	}
	c.ConfigureForPlayback(ctx)
	// ConfigureForPlayback 在极端竞争下可能放弃切换；Reset 的约定更强
	if c.CurrentMode() != ModePlayback {
		if err := c.device.ApplyMode(ModePlayback); err != nil {
			c.logger.WarnTag("AUDIO", "重置后应用播放模式失败: %v", err)
		}
		c.setMode(ModePlayback)
	}
}

// ApplyNeutral 应用"无录音"中性模式，不改变会话模式标记。
// 停止录音后的恢复序列使用。
func (c *Coordinator) ApplyNeutral() {
	if err := c.device.ApplyMode(ModeUninitialized); err != nil {
		c.logger.WarnTag("AUDIO", "应用中性模式失败: %v", err)
	}
}

// DisableSubsystem 关闭整个音频子系统，恢复序列使用，失败只记日志
func (c *Coordinator) DisableSubsystem() {
	if err := c.device.DisableSubsystem(); err != nil {
		c.logger.WarnTag("AUDIO", "关闭音频子系统失败: %v", err)
	}
}

// EnableSubsystem 重新初始化音频子系统，失败只记日志
func (c *Coordinator) EnableSubsystem() {
	if err := c.device.EnableSubsystem(); err != nil {
		c.logger.WarnTag("AUDIO", "启动音频子系统失败: %v", err)
	}
}

func (c *Coordinator) setMode(mode Mode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

func (c *Coordinator) transitionWait() time.Duration {
	if c.cfg.TransitionWait > 0 {
		return c.cfg.TransitionWait
	}
	return 300 * time.Millisecond
}

// Close 释放设备
func (c *Coordinator) Close() error {
	return c.device.Close()
}
