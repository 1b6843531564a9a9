package voice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"kouyu-server-go/internal/domain/audio"
	"kouyu-server-go/internal/domain/eventbus"
	"kouyu-server-go/internal/domain/language"
	"kouyu-server-go/internal/platform/config"
	"kouyu-server-go/internal/platform/errors"
	"kouyu-server-go/internal/utils"
)

// Synthesizer 文本到音频字节的合成器
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// edgeSynthesizer Edge合成服务适配
type edgeSynthesizer struct{}

func NewEdgeSynthesizer() Synthesizer {
	return &edgeSynthesizer{}
}

func (s *edgeSynthesizer) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	communicate, err := edge_tts.NewCommunicate(text, edge_tts.SetVoice(voiceID))
	if err != nil {
		return nil, errors.Wrap(errors.KindNetwork, "voice.synthesize", "创建合成连接失败", err)
	}

	data, err := communicate.Stream()
	if err != nil {
		return nil, errors.Wrap(errors.KindNetwork, "voice.synthesize", "语音合成失败", err)
	}
	return data, nil
}

// SpeakResult 一次成功朗读的产物
type SpeakResult struct {
	VoiceID  string  `json:"voice_id"`
	Language string  `json:"language"`
	// Rate 本次使用的语速，1.0为正常
	Rate     float32 `json:"rate"`
	FilePath string  `json:"file_path,omitempty"`
	// Duration 合成音频时长
	Duration time.Duration `json:"duration_ms"`
	// Fallback 音色是否来自跨语言回退
	Fallback bool `json:"fallback,omitempty"`
}

// Speaker 朗读服务：解析音色、准备播放会话、调用合成。
// 同一时刻只允许一个在途朗读，新请求会先取消旧的。
type Speaker struct {
	coordinator *audio.Coordinator
	resolver    *Resolver
	synth       Synthesizer
	profiles    *language.Registry
	cfg         config.TTSConfig
	logger      *utils.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	flight  uint64 // 在途朗读代号，防止旧朗读收尾时误取消新朗读
	noticed bool   // 全链合成失败的用户提示只出一次
}

// NewSpeaker 创建朗读服务
func NewSpeaker(
	coordinator *audio.Coordinator,
	resolver *Resolver,
	synth Synthesizer,
	profiles *language.Registry,
	cfg config.TTSConfig,
	logger *utils.Logger,
) *Speaker {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	if synth == nil {
		synth = NewEdgeSynthesizer()
	}
	if profiles == nil {
		profiles = language.NewRegistry()
	}
	return &Speaker{
		coordinator: coordinator,
		resolver:    resolver,
		synth:       synth,
		profiles:    profiles,
		cfg:         cfg,
		logger:      logger,
	}
}

// Speak 合成并准备播放一段文本。进行中的朗读会先被停止。
// 合成失败时依次重试：同音色一次 → 默认语言音色，全部失败才返回错误。
func (s *Speaker) Speak(ctx context.Context, text, lang string) (SpeakResult, error) {
	ctx, flight := s.takeFlight(ctx)
	defer s.releaseFlight(flight)

	cleaned := utils.CleanForSynthesis(text)
	if cleaned == "" {
		return SpeakResult{}, errors.New(errors.KindFormat, "voice.speak", "清理后文本为空")
	}

	resolution, ok := s.resolver.Resolve(lang)
	if !ok {
		return SpeakResult{}, errors.New(errors.KindAudio, "voice.speak", "无可用合成音色")
	}
	if override := s.cfg.Voices[language.Canonical(lang)]; override != "" {
		resolution.Voice = Voice{ID: override, LanguageTag: resolution.Voice.LanguageTag}
		resolution.Fallback = false
	}

	s.coordinator.ConfigureForPlayback(ctx)

	rate := s.speechRate(lang)
	s.logger.InfoTTS("朗读 lang=%s voice=%s rate=%.2f len=%d", lang, resolution.Voice.ID, rate, len(cleaned))

	data, voiceID, err := s.synthesizeWithRetry(ctx, resolution.Voice.ID, cleaned, lang)
	if err != nil {
		s.surfaceFailure(cleaned, lang, err)
		return SpeakResult{}, err
	}

	result := SpeakResult{
		VoiceID:  voiceID,
		Language: resolution.ResolvedLanguage,
		Rate:     rate,
		Duration: mp3Duration(data),
		Fallback: resolution.Fallback,
	}

	if path, err := s.persist(data, lang); err != nil {
		s.logger.WarnTag("TTS", "写出合成音频失败: %v", err)
	} else {
		result.FilePath = path
	}

	eventbus.PublishAsync(eventbus.EventTTSCompleted, eventbus.TTSEventData{
		Text:     cleaned,
		Language: lang,
		Voice:    voiceID,
	})
	return result, nil
}

// Stop 取消进行中的朗读（若有）
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// takeFlight 登记为当前唯一在途朗读，旧的立即取消
func (s *Speaker) takeFlight(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.flight++
	return ctx, s.flight
}

// releaseFlight 仅当自己仍是最新一次朗读时才清理
func (s *Speaker) releaseFlight(flight uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flight != flight {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// synthesizeWithRetry 同音色重试一次，再退到默认语言音色
func (s *Speaker) synthesizeWithRetry(ctx context.Context, voiceID, text, lang string) ([]byte, string, error) {
	data, err := s.synth.Synthesize(ctx, voiceID, text)
	if err == nil {
		return data, voiceID, nil
	}
	if ctx.Err() != nil {
		return nil, "", errors.Wrap(errors.KindAudio, "voice.speak", "朗读被取消", ctx.Err())
	}
	s.logger.WarnTag("TTS", "合成失败，重试一次: %v", err)

	data, err = s.synth.Synthesize(ctx, voiceID, text)
	if err == nil {
		return data, voiceID, nil
	}
	if ctx.Err() != nil {
		return nil, "", errors.Wrap(errors.KindAudio, "voice.speak", "朗读被取消", ctx.Err())
	}

	// 最后用默认语言的音色再试
	if fallback, ok := s.resolver.Resolve(language.DefaultCode); ok && fallback.Voice.ID != voiceID {
		s.logger.WarnTag("TTS", "音色 %s 不可用，改用默认语言音色 %s", voiceID, fallback.Voice.ID)
		data, ferr := s.synth.Synthesize(ctx, fallback.Voice.ID, text)
		if ferr == nil {
			return data, fallback.Voice.ID, nil
		}
	}
	return nil, "", errors.Wrap(errors.KindNetwork, "voice.speak", "语音合成重试均失败", err)
}

// surfaceFailure 发布错误事件；用户可见的失败提示只发一次
func (s *Speaker) surfaceFailure(text, lang string, err error) {
	s.logger.ErrorTag("TTS", "朗读失败 lang=%s: %v", lang, err)
	eventbus.PublishAsync(eventbus.EventTTSError, eventbus.SystemEventData{
		Level:   "error",
		Message: err.Error(),
	})

	s.mu.Lock()
	first := !s.noticed
	s.noticed = true
	s.mu.Unlock()
	if first {
		eventbus.PublishAsync(eventbus.EventSystemError, eventbus.SystemEventData{
			Level:   "warn",
			Message: "Speech playback is currently unavailable. Practice will continue without audio.",
		})
	}
}

func (s *Speaker) persist(data []byte, lang string) (string, error) {
	dir := s.cfg.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("speak-%s-%d.mp3", language.Canonical(lang), time.Now().UnixNano()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	if s.cfg.DeleteFile {
		// 播放完成前文件必须存在，清理交给定时任务档期外做
		go func(p string) {
			time.Sleep(time.Minute)
			os.Remove(p)
		}(path)
	}
	return path, nil
}

// speechRate 配置覆盖优先，其次语言默认语速
func (s *Speaker) speechRate(lang string) float32 {
	if rate, ok := s.cfg.Rates[language.Canonical(lang)]; ok && rate > 0 {
		return rate
	}
	if rate := s.profiles.Get(lang).SpeechRate; rate > 0 {
		return rate
	}
	return 1.0
}

// mp3Duration 解码合成产物求时长，解码失败时返回0
func mp3Duration(data []byte) time.Duration {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	// Length为16bit双声道PCM字节数
	bytesPerSecond := int64(decoder.SampleRate()) * 4
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(decoder.Length()) * time.Second / time.Duration(bytesPerSecond)
}
