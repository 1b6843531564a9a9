package recording

import (
	"runtime"
	"time"

	"kouyu-server-go/internal/platform/config"
)

// builtinProfiles 内置的按平台采集参数表。识别服务只接受
// LINEAR16，差异在采样率与冷启动延迟上。
var builtinProfiles = map[string]config.CaptureProfile{
	"darwin": {
		Container:  "wav",
		Codec:      "LINEAR16",
		SampleRate: 44100,
		Channels:   1,
	},
	"linux": {
		Container:  "wav",
		Codec:      "LINEAR16",
		SampleRate: 16000,
		Channels:   1,
	},
	// Windows上冷启动的麦克风前几百毫秒经常是静音，开录前等一拍
	"windows": {
		Container:   "wav",
		Codec:       "LINEAR16",
		SampleRate:  48000,
		Channels:    1,
		SettleDelay: 150 * time.Millisecond,
	},
}

// ProfileFor 返回指定GOOS的采集参数；配置覆盖优先于内置表
func ProfileFor(goos string, overrides map[string]config.CaptureProfile) config.CaptureProfile {
	if p, ok := overrides[goos]; ok {
		return p
	}
	if p, ok := builtinProfiles[goos]; ok {
		return p
	}
	return builtinProfiles["linux"]
}

// CurrentProfile 当前主机平台的采集参数
func CurrentProfile(overrides map[string]config.CaptureProfile) config.CaptureProfile {
	return ProfileFor(runtime.GOOS, overrides)
}
