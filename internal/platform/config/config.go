package config

import (
	"time"
)

type Config struct {
	Server    ServerConfig              `yaml:"server" mapstructure:"server"`
	Log       LogConfig                 `yaml:"log" mapstructure:"log"`
	Web       WebConfig                 `yaml:"web" mapstructure:"web"`
	Audio     AudioConfig               `yaml:"audio" mapstructure:"audio"`
	Recording RecordingConfig           `yaml:"recording" mapstructure:"recording"`
	ASR       ASRConfig                 `yaml:"ASR" mapstructure:"ASR"`
	TTS       TTSConfig                 `yaml:"TTS" mapstructure:"TTS"`
	Storage   StorageConfig             `yaml:"storage" mapstructure:"storage"`
	Languages map[string]LanguageTuning `yaml:"languages" mapstructure:"languages"`
}

type ServerConfig struct {
	IP   string `yaml:"ip" mapstructure:"ip"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type LogConfig struct {
	Level  string `yaml:"log_level" mapstructure:"log_level"`
	Dir    string `yaml:"log_dir" mapstructure:"log_dir"`
	File   string `yaml:"log_file" mapstructure:"log_file"`
	Format string `yaml:"log_format" mapstructure:"log_format"`
}

type WebConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Port    int  `yaml:"port" mapstructure:"port"`
}

// AudioConfig 音频会话配置
type AudioConfig struct {
	// 模式切换互斥的最长等待时间，超时的调用者直接返回
	TransitionWait time.Duration `yaml:"transition_wait" mapstructure:"transition_wait"`
	// 切换到播放模式后是否播放一段近静音片段来预热音频会话
	PrimingEnabled  bool          `yaml:"priming_enabled" mapstructure:"priming_enabled"`
	PrimingDuration time.Duration `yaml:"priming_duration" mapstructure:"priming_duration"`
	// 停止录音后恢复序列中每一步之间的停顿
	RecoveryPause time.Duration `yaml:"recovery_pause" mapstructure:"recovery_pause"`
}

// RecordingConfig 录音配置
type RecordingConfig struct {
	OutputDir string        `yaml:"output_dir" mapstructure:"output_dir"`
	StartStop time.Duration `yaml:"start_stop_timeout" mapstructure:"start_stop_timeout"`
	// 麦克风自检的录制时长与最小有效字节数
	TestDuration time.Duration `yaml:"test_duration" mapstructure:"test_duration"`
	TestMinBytes int64         `yaml:"test_min_bytes" mapstructure:"test_min_bytes"`
	// 按平台覆盖采集参数；键为GOOS，缺省时使用内置表
	Profiles map[string]CaptureProfile `yaml:"profiles" mapstructure:"profiles"`
}

// CaptureProfile 平台相关的采集参数
type CaptureProfile struct {
	Container   string        `yaml:"container" mapstructure:"container"`
	Codec       string        `yaml:"codec" mapstructure:"codec"`
	SampleRate  int           `yaml:"sample_rate" mapstructure:"sample_rate"`
	Channels    int           `yaml:"channels" mapstructure:"channels"`
	SettleDelay time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
}

// ASRConfig 远端语音识别服务配置
type ASRConfig struct {
	BaseURL     string        `yaml:"url" mapstructure:"url"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	PhraseBoost float64       `yaml:"phrase_boost" mapstructure:"phrase_boost"`
}

// TTSConfig 语音合成配置
type TTSConfig struct {
	OutputDir  string             `yaml:"output_dir" mapstructure:"output_dir"`
	DeleteFile bool               `yaml:"delete_file" mapstructure:"delete_file"`
	// 按语言覆盖默认音色，键为规范语言码
	Voices map[string]string  `yaml:"voices" mapstructure:"voices"`
	// 按语言覆盖语速，范围 [0.5, 2.0]
	Rates map[string]float32 `yaml:"rates" mapstructure:"rates"`
}

type StorageConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// LanguageTuning 按语言覆盖评分参数
type LanguageTuning struct {
	Threshold float64   `yaml:"threshold" mapstructure:"threshold"`
	Weights   []float64 `yaml:"weights" mapstructure:"weights"`
	Rate      float32   `yaml:"rate" mapstructure:"rate"`
}
