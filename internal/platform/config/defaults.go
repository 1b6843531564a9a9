package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8000,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8080,
		},
		Audio: AudioConfig{
			TransitionWait:  300 * time.Millisecond,
			PrimingEnabled:  true,
			PrimingDuration: 120 * time.Millisecond,
			RecoveryPause:   100 * time.Millisecond,
		},
		Recording: RecordingConfig{
			OutputDir:    "data/recordings",
			StartStop:    5 * time.Second,
			TestDuration: time.Second,
			TestMinBytes: 4096,
		},
		ASR: ASRConfig{
			BaseURL:     "https://speech.googleapis.com/v1/speech:recognize",
			Timeout:     10 * time.Second,
			PhraseBoost: 20,
		},
		TTS: TTSConfig{
			OutputDir:  "data/tts",
			DeleteFile: true,
		},
		Storage: StorageConfig{
			DSN: "data/kouyu.db",
		},
	}
}
