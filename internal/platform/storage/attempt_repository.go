package storage

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"kouyu-server-go/internal/platform/errors"
)

// Attempt is one stored pronunciation attempt.
type Attempt struct {
	ID           uint           `gorm:"primaryKey"                      json:"id"`
	Language     string         `gorm:"index;not null"                  json:"language"`
	ExpectedText string         `gorm:"not null"                        json:"expected_text"`
	Transcript   string         `                                       json:"transcript"`
	IsCorrect    bool           `gorm:"index"                           json:"is_correct"`
	Confidence   int            `                                       json:"confidence"`
	// Metrics holds the per-metric score breakdown as produced by the scorer.
	Metrics   datatypes.JSON `                                       json:"metrics,omitempty"`
	CreatedAt time.Time      `gorm:"index"                           json:"created_at"`
}

// AttemptStats aggregates attempt history for one language.
type AttemptStats struct {
	Language string `json:"language"`
	Total    int64  `json:"total"`
	Correct  int64  `json:"correct"`
}

// AttemptRepository persists and queries pronunciation attempts.
type AttemptRepository interface {
	Save(ctx context.Context, attempt *Attempt) error
	ListRecent(ctx context.Context, language string, limit int) ([]Attempt, error)
	Stats(ctx context.Context, language string) (AttemptStats, error)
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository creates the gorm-backed attempt repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Save(ctx context.Context, attempt *Attempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "attempt.save", "failed to save attempt", err)
	}
	return nil
}

func (r *attemptRepository) ListRecent(ctx context.Context, language string, limit int) ([]Attempt, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if language != "" {
		query = query.Where("language = ?", language)
	}

	var attempts []Attempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "attempt.list_recent", "failed to list attempts", err)
	}
	return attempts, nil
}

func (r *attemptRepository) Stats(ctx context.Context, language string) (AttemptStats, error) {
	stats := AttemptStats{Language: language}
	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&Attempt{})
		if language != "" {
			q = q.Where("language = ?", language)
		}
		return q
	}

	if err := scope().Count(&stats.Total).Error; err != nil {
		return stats, errors.Wrap(errors.KindStorage, "attempt.stats", "failed to count attempts", err)
	}
	if err := scope().Where("is_correct = ?", true).Count(&stats.Correct).Error; err != nil {
		return stats, errors.Wrap(errors.KindStorage, "attempt.stats", "failed to count correct attempts", err)
	}
	return stats, nil
}
