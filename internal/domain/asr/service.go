package asr

import (
	"context"

	"kouyu-server-go/internal/domain/asr/inter"
	"kouyu-server-go/internal/domain/eventbus"
	"kouyu-server-go/internal/domain/language"
	"kouyu-server-go/internal/platform/config"
	"kouyu-server-go/internal/utils"
)

// Service 识别服务：负责语言标签映射、提示短语与超时控制
type Service struct {
	recognizer inter.Recognizer
	profiles   *language.Registry
	cfg        config.ASRConfig
	logger     *utils.Logger
}

// NewService 创建识别服务
func NewService(recognizer inter.Recognizer, profiles *language.Registry, cfg config.ASRConfig, logger *utils.Logger) *Service {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	if profiles == nil {
		profiles = language.NewRegistry()
	}
	return &Service{
		recognizer: recognizer,
		profiles:   profiles,
		cfg:        cfg,
		logger:     logger,
	}
}

// RecognitionTag 把练习语言码映射为识别服务语言标签。
// 表中没有的语言码原样透传。
func (s *Service) RecognitionTag(lang string) string {
	profile := s.profiles.Get(lang)
	if profile.RecognitionTag != "" {
		return profile.RecognitionTag
	}
	return lang
}

// Transcribe 提交一段完整录音，期望短语作为识别提示
func (s *Service) Transcribe(ctx context.Context, audio []byte, profile config.CaptureProfile, expectedText, lang string) (*inter.Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	req := inter.Request{
		Audio:           audio,
		Encoding:        profile.Codec,
		SampleRateHertz: profile.SampleRate,
		LanguageCode:    s.RecognitionTag(lang),
		BoostPhrases:    []string{expectedText},
		Boost:           s.cfg.PhraseBoost,
	}

	result, err := s.recognizer.Recognize(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.InfoASR("转写完成: lang=%s transcript=%q confidence=%.2f",
		req.LanguageCode, result.Transcript, result.Confidence)
	eventbus.PublishAsync(eventbus.EventASRResult, eventbus.ASREventData{
		Text:       result.Transcript,
		Language:   lang,
		Confidence: result.Confidence,
	})
	return result, nil
}
