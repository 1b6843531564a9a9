package eventbus

// 事件类型定义
const (
	// 录音相关事件
	EventRecordingStarted = "recording:started"
	EventRecordingStopped = "recording:stopped"
	EventRecordingError   = "recording:error"

	// 识别相关事件
	EventASRResult = "asr:result"
	EventASRError  = "asr:error"

	// 评分相关事件
	EventScoreResult = "score:result"

	// 合成相关事件
	EventTTSCompleted = "tts:completed"
	EventTTSError     = "tts:error"

	// 音频会话事件
	EventAudioModeChanged = "audio:mode_changed"

	// 系统事件
	EventSystemError = "system:error"
)

// RecordingEventData 录音事件数据
type RecordingEventData struct {
	SessionID string `json:"session_id"`
	FilePath  string `json:"file_path,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ASREventData 识别事件数据
type ASREventData struct {
	SessionID  string  `json:"session_id"`
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ScoreEventData 评分事件数据
type ScoreEventData struct {
	ExpectedText string             `json:"expected_text"`
	Transcript   string             `json:"transcript"`
	Language     string             `json:"language"`
	IsCorrect    bool               `json:"is_correct"`
	Confidence   int                `json:"confidence"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// TTSEventData 合成事件数据
type TTSEventData struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice,omitempty"`
}

// AudioModeEventData 音频会话模式事件数据
type AudioModeEventData struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SystemEventData 系统事件数据
type SystemEventData struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
