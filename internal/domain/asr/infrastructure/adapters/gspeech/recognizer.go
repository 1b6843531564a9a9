package gspeech

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"kouyu-server-go/internal/domain/asr/inter"
	"kouyu-server-go/internal/platform/config"
	"kouyu-server-go/internal/platform/errors"
	"kouyu-server-go/internal/utils"
)

// Recognizer 基于HTTP的语音识别适配器，协议与Google Speech
// v1 recognize兼容。
type Recognizer struct {
	cfg    config.ASRConfig
	client *http.Client
	logger *utils.Logger
}

// NewRecognizer 创建识别适配器
func NewRecognizer(cfg config.ASRConfig, logger *utils.Logger) (*Recognizer, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New(errors.KindConfig, "asr.new", "recognition service url is required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Recognizer{
		cfg:    cfg,
		client: &http.Client{}, // 超时由调用方的context控制
		logger: logger,
	}, nil
}

// 请求/响应的线上格式
type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type recognitionConfig struct {
	Encoding        string          `json:"encoding"`
	SampleRateHertz int             `json:"sampleRateHertz"`
	LanguageCode    string          `json:"languageCode"`
	SpeechContexts  []speechContext `json:"speechContexts,omitempty"`
}

type speechContext struct {
	Phrases []string `json:"phrases"`
	Boost   float64  `json:"boost,omitempty"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []recognitionResult `json:"results"`
}

type recognitionResult struct {
	Alternatives []alternative `json:"alternatives"`
}

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Recognize 提交音频并返回首选转写。空结果不算错误，
// 返回空Transcript交由上层处理。
func (r *Recognizer) Recognize(ctx context.Context, req inter.Request) (*inter.Result, error) {
	if r.cfg.APIKey == "" {
		return nil, errors.New(errors.KindConfig, "asr.recognize", "missing recognition api key")
	}

	payload := recognizeRequest{
		Config: recognitionConfig{
			Encoding:        req.Encoding,
			SampleRateHertz: req.SampleRateHertz,
			LanguageCode:    req.LanguageCode,
		},
		Audio: recognitionAudio{
			Content: base64.StdEncoding.EncodeToString(req.Audio),
		},
	}
	if len(req.BoostPhrases) > 0 {
		payload.Config.SpeechContexts = []speechContext{{
			Phrases: req.BoostPhrases,
			Boost:   req.Boost,
		}}
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(errors.KindFormat, "asr.recognize", "encode request", err)
	}

	url := fmt.Sprintf("%s?key=%s", r.cfg.BaseURL, r.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.KindNetwork, "asr.recognize", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		// context超时也落在这里，保持cause可检
		return nil, errors.Wrap(errors.KindNetwork, "asr.recognize", "recognition call failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.KindNetwork, "asr.recognize", "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, errors.New(errors.KindConfig, "asr.recognize", "recognition service rejected credentials")
	case resp.StatusCode == http.StatusBadRequest:
		return nil, errors.New(errors.KindFormat, "asr.recognize",
			fmt.Sprintf("audio format rejected: %s", truncate(respBody, 200)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.New(errors.KindNetwork, "asr.recognize",
			fmt.Sprintf("recognition service error %d", resp.StatusCode))
	}

	var parsed recognizeResponse
	if err := sonic.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Wrap(errors.KindFormat, "asr.recognize", "decode response", err)
	}

	// 无结果：未检测到语音
	if len(parsed.Results) == 0 || len(parsed.Results[0].Alternatives) == 0 {
		return &inter.Result{}, nil
	}

	best := parsed.Results[0].Alternatives[0]
	return &inter.Result{
		Transcript: best.Transcript,
		Confidence: best.Confidence,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
