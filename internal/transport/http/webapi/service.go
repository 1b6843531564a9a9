package webapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kouyu-server-go/internal/domain/language"
	"kouyu-server-go/internal/domain/recording"
	"kouyu-server-go/internal/domain/voice"
	"kouyu-server-go/internal/platform/config"
	"kouyu-server-go/internal/platform/errors"
	"kouyu-server-go/internal/platform/storage"
	httptransport "kouyu-server-go/internal/transport/http"
	"kouyu-server-go/internal/utils"
)

// Service 发音练习WebAPI的HTTP传输层实现
type Service struct {
	logger       *utils.Logger
	config       *config.Config
	orchestrator *recording.Orchestrator
	speaker      *voice.Speaker
	resolver     *voice.Resolver
	profiles     *language.Registry
	attempts     storage.AttemptRepository
}

// NewService 创建新的WebAPI服务实例
func NewService(
	cfg *config.Config,
	orchestrator *recording.Orchestrator,
	speaker *voice.Speaker,
	resolver *voice.Resolver,
	profiles *language.Registry,
	attempts storage.AttemptRepository,
	logger *utils.Logger,
) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "webapi.new", "config is required")
	}
	if orchestrator == nil {
		return nil, errors.New(errors.KindConfig, "webapi.new", "orchestrator is required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Service{
		logger:       logger,
		config:       cfg,
		orchestrator: orchestrator,
		speaker:      speaker,
		resolver:     resolver,
		profiles:     profiles,
		attempts:     attempts,
	}, nil
}

// Register 注册WebAPI相关的HTTP路由
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.POST("/evaluate", s.handleEvaluate)
	router.POST("/mic/test", s.handleMicTest)
	router.POST("/speak", s.handleSpeak)

	router.POST("/record/start", s.handleRecordStart)
	router.POST("/record/stop", s.handleRecordStop)

	router.GET("/voices", s.handleVoices)
	router.GET("/languages", s.handleLanguages)
	router.GET("/attempts", s.handleAttempts)

	s.logger.InfoTag("HTTP", "WebAPI服务路由注册完成")
	return nil
}

// evaluateRequest 评测请求体。音频可以给服务器本地路径，
// 也可以直接内嵌base64字节。
type evaluateRequest struct {
	AudioPath    string `json:"audio_path"`
	AudioB64     string `json:"audio_b64"`
	ExpectedText string `json:"expected_text" binding:"required"`
	Language     string `json:"language" binding:"required"`
}

// handleEvaluate 评测一段录音的发音
func (s *Service) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	path := req.AudioPath
	if path == "" {
		if req.AudioB64 == "" {
			httptransport.RespondError(c, http.StatusBadRequest, "audio_path or audio_b64 is required", nil)
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.AudioB64)
		if err != nil {
			httptransport.RespondError(c, http.StatusBadRequest, "audio_b64 is not valid base64", nil)
			return
		}
		tmp, err := s.writeUpload(data)
		if err != nil {
			httptransport.RespondError(c, http.StatusInternalServerError, "could not store uploaded audio", nil)
			return
		}
		defer os.Remove(tmp)
		path = tmp
	}

	result := s.orchestrator.EvaluatePronunciation(c.Request.Context(), path, req.ExpectedText, req.Language)
	httptransport.RespondSuccess(c, http.StatusOK, result, "")
}

// handleMicTest 麦克风自检
func (s *Service) handleMicTest(c *gin.Context) {
	report := s.orchestrator.TestMicrophone(c.Request.Context())
	if !report.Success {
		httptransport.RespondError(c, http.StatusServiceUnavailable, report.Message, report)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, report, report.Message)
}

type speakRequest struct {
	Text     string `json:"text" binding:"required"`
	Language string `json:"language" binding:"required"`
}

// handleSpeak 朗读一段文本，合成在服务端进行
func (s *Service) handleSpeak(c *gin.Context) {
	var req speakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	// 合成可能较慢，连接断开不应打断朗读
	go func() {
		if _, err := s.speaker.Speak(context.Background(), req.Text, req.Language); err != nil {
			s.logger.WarnTag("HTTP", "朗读请求失败: %v", err)
		}
	}()
	httptransport.RespondSuccess(c, http.StatusAccepted, gin.H{
		"language": req.Language,
	}, "speaking")
}

// handleRecordStart 开始服务端录音
func (s *Service) handleRecordStart(c *gin.Context) {
	if !s.orchestrator.StartRecording(c.Request.Context()) {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "could not start recording", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, nil, "recording")
}

// handleRecordStop 停止录音并返回文件路径
func (s *Service) handleRecordStop(c *gin.Context) {
	path := s.orchestrator.StopRecording(c.Request.Context())
	if path == "" {
		httptransport.RespondError(c, http.StatusConflict, "no recording in progress", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"audio_path": path}, "")
}

// handleVoices 查询某语言解析出的音色与候选音色
func (s *Service) handleVoices(c *gin.Context) {
	lang := c.Query("language")
	if lang == "" {
		lang = language.DefaultCode
	}

	resolution, ok := s.resolver.Resolve(lang)
	if !ok {
		httptransport.RespondError(c, http.StatusNotFound, "no voice available", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"language":          language.Canonical(lang),
		"resolved_language": resolution.ResolvedLanguage,
		"fallback":          resolution.Fallback,
		"voice": gin.H{
			"id":      resolution.Voice.ID,
			"tag":     resolution.Voice.LanguageTag,
			"name":    resolution.Voice.Name,
			"quality": resolution.Voice.Quality.String(),
		},
	}, "")
}

// handleLanguages 列出全部已注册的练习语言
func (s *Service) handleLanguages(c *gin.Context) {
	codes := s.profiles.Codes()
	out := make([]gin.H, 0, len(codes))
	for _, code := range codes {
		p := s.profiles.Get(code)
		out = append(out, gin.H{
			"code":        p.Code,
			"variants":    p.Variants,
			"threshold":   p.Threshold,
			"speech_rate": p.SpeechRate,
		})
	}
	httptransport.RespondSuccess(c, http.StatusOK, out, "")
}

// handleAttempts 查询最近的评测历史
func (s *Service) handleAttempts(c *gin.Context) {
	if s.attempts == nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "attempt history is disabled", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	attempts, err := s.attempts.ListRecent(c.Request.Context(), c.Query("language"), limit)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "could not load attempts", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, attempts, "")
}

// writeUpload 把内嵌音频落成临时文件供评测读取
func (s *Service) writeUpload(data []byte) (string, error) {
	dir := s.config.Recording.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "upload-"+uuid.NewString()+".wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
