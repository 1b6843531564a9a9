package portaudio

import (
	"context"
	"sync"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"kouyu-server-go/internal/domain/audio"
	"kouyu-server-go/internal/utils"
)

const (
	playbackSampleRate = 24000
	framesPerBuffer    = 1024
)

// Device portaudio实现的音频设备。portaudio没有iOS/Android那种
// 会话模式概念，这里用初始化状态与输出流的占用来模拟。
type Device struct {
	logger *utils.Logger

	mu          sync.Mutex
	initialized bool
	mode        audio.Mode
}

// NewDevice 创建并初始化设备
func NewDevice(logger *utils.Logger) (*Device, error) {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	d := &Device{logger: logger}
	if err := d.EnableSubsystem(); err != nil {
		return nil, err
	}
	return d, nil
}

// EnableSubsystem 初始化portaudio，可重复调用
func (d *Device) EnableSubsystem() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return nil
	}
	if err := pa.Initialize(); err != nil {
		return err
	}
	d.initialized = true
	return nil
}

// DisableSubsystem 完全关闭portaudio
func (d *Device) DisableSubsystem() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return nil
	}
	d.initialized = false
	return pa.Terminate()
}

// ApplyMode 记录目标模式；portaudio的流在打开时才真正占用设备，
// 这里只保证子系统处于可用状态。
func (d *Device) ApplyMode(mode audio.Mode) error {
	d.mu.Lock()
	initialized := d.initialized
	d.mode = mode
	d.mu.Unlock()

	if !initialized && mode != audio.ModeUninitialized {
		return d.EnableSubsystem()
	}
	return nil
}

// PlayClip 播放指定时长的静音帧，预热输出通路
func (d *Device) PlayClip(ctx context.Context, duration time.Duration) error {
	if err := d.EnableSubsystem(); err != nil {
		return err
	}

	buffer := make([]float32, framesPerBuffer)
	stream, err := pa.OpenDefaultStream(0, 1, playbackSampleRate, framesPerBuffer, &buffer)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	frames := int(duration.Seconds() * playbackSampleRate / framesPerBuffer)
	if frames < 1 {
		frames = 1
	}
	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

// Close 释放设备
func (d *Device) Close() error {
	return d.DisableSubsystem()
}
