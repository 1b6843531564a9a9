package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"

	"kouyu-server-go/internal/domain/eventbus"
	"kouyu-server-go/internal/utils"
)

// AttemptRecorder persists score events off the hot path. It subscribes
// to the async event bus so evaluation latency never includes a write.
type AttemptRecorder struct {
	repo   AttemptRepository
	logger *utils.Logger
}

// NewAttemptRecorder creates the recorder and subscribes it to score events.
func NewAttemptRecorder(repo AttemptRepository, logger *utils.Logger) (*AttemptRecorder, error) {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	r := &AttemptRecorder{repo: repo, logger: logger}
	if err := eventbus.SubscribeAsync(eventbus.EventScoreResult, r.onScore); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *AttemptRecorder) onScore(data eventbus.ScoreEventData) {
	metrics, err := sonic.Marshal(data.Metrics)
	if err != nil {
		metrics = nil
	}

	attempt := &Attempt{
		Language:     data.Language,
		ExpectedText: data.ExpectedText,
		Transcript:   data.Transcript,
		IsCorrect:    data.IsCorrect,
		Confidence:   data.Confidence,
		Metrics:      metrics,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.repo.Save(ctx, attempt); err != nil {
		r.logger.ErrorTag("存储", "保存评测记录失败: %v", err)
	}
}
