package audio

import (
	"context"
	"time"
)

// Device 原生音频子系统的抽象。所有方法都可能失败，
// 调用方一律按尽力而为处理。
type Device interface {
	// EnableSubsystem 初始化底层音频子系统
	EnableSubsystem() error
	// DisableSubsystem 完全关闭底层音频子系统
	DisableSubsystem() error
	// ApplyMode 应用指定的会话模式；ModeUninitialized 表示"无录音"中性模式
	ApplyMode(mode Mode) error
	// PlayClip 播放一段近静音片段，用于预热冷启动的音频会话
	PlayClip(ctx context.Context, duration time.Duration) error
	// Close 释放设备资源
	Close() error
}

// NullDevice 空实现，测试与无声卡环境使用。
// Ops按调用顺序记录设备操作，恢复序列的顺序断言依赖它。
type NullDevice struct {
	Ops              []string
	ModeApplications []Mode
	EnableCount      int
	DisableCount     int
	ClipCount        int
}

func NewNullDevice() *NullDevice {
	return &NullDevice{}
}

func (d *NullDevice) EnableSubsystem() error {
	d.Ops = append(d.Ops, "enable")
	d.EnableCount++
	return nil
}

func (d *NullDevice) DisableSubsystem() error {
	d.Ops = append(d.Ops, "disable")
	d.DisableCount++
	return nil
}

func (d *NullDevice) ApplyMode(mode Mode) error {
	d.Ops = append(d.Ops, "apply:"+mode.String())
	d.ModeApplications = append(d.ModeApplications, mode)
	return nil
}

func (d *NullDevice) PlayClip(ctx context.Context, duration time.Duration) error {
	d.Ops = append(d.Ops, "clip")
	d.ClipCount++
	return nil
}

func (d *NullDevice) Close() error {
	return nil
}
