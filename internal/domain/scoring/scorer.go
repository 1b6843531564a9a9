package scoring

import (
	"fmt"
	"math"
	"strings"

	"kouyu-server-go/internal/domain/language"
)

// EvaluationResult 一次发音评测的最终结论，构造后不再修改
type EvaluationResult struct {
	IsCorrect  bool    `json:"is_correct"`
	Confidence int     `json:"confidence"` // 0-100
	Feedback   string  `json:"feedback"`
	Transcript string  `json:"transcript,omitempty"`
	FinalScore float64 `json:"final_score"`
	Metrics    MetricSet `json:"metrics"`
}

// Scorer 纯评分引擎，无任何I/O
type Scorer struct {
	profiles *language.Registry
}

// NewScorer 创建评分引擎
func NewScorer(profiles *language.Registry) *Scorer {
	if profiles == nil {
		profiles = language.NewRegistry()
	}
	return &Scorer{profiles: profiles}
}

// 精确匹配时的最终得分下限。识别置信度的乘法权重不能把
// 一次完全正确的发音压到及格线以下。
const exactMatchFloor = 0.85

const (
	bonusExactMatch          = 0.10
	bonusDiacriticEquivalent = 0.05
)

// Evaluate 对转写与目标短语评分
func (s *Scorer) Evaluate(expectedText, transcript, lang string, recognitionConfidence float64) EvaluationResult {
	profile := s.profiles.Get(lang)

	normExpected := NormalizeText(expectedText, lang)
	normTranscript := NormalizeText(transcript, lang)

	metrics := computeMetrics(normTranscript, normExpected)
	weighted := weightedScore(metrics, profile.Weights)
	confWeight := confidenceWeight(recognitionConfidence)
	bonus := s.languageBonus(profile, normExpected, normTranscript)

	finalScore := clamp(weighted*confWeight+bonus, 0, 1)
	if metrics.Exact == 1.0 && finalScore < exactMatchFloor {
		finalScore = exactMatchFloor
	}

	return EvaluationResult{
		IsCorrect:  finalScore >= profile.Threshold,
		Confidence: int(math.Round(finalScore * 100)),
		Feedback:   feedback(finalScore, normExpected, normTranscript),
		Transcript: transcript,
		FinalScore: finalScore,
		Metrics:    metrics,
	}
}

// weightedScore = Σ(metric_i × weight_i)
func weightedScore(m MetricSet, w language.MetricWeights) float64 {
	return m.Exact*w.Exact +
		m.Set*w.Set +
		m.Edit*w.Edit +
		m.Word*w.Word +
		m.Phonetic*w.Phonetic +
		m.Syllable*w.Syllable +
		m.Length*w.Length +
		m.Structural*w.Structural
}

// confidenceWeight 识别置信度的阶梯权重
func confidenceWeight(confidence float64) float64 {
	switch {
	case confidence >= 0.9:
		return 1.0
	case confidence >= 0.7:
		return 0.95
	case confidence >= 0.5:
		return 0.85
	case confidence >= 0.3:
		return 0.7
	default:
		return 0.5
	}
}

// languageBonus 精确匹配+0.10；罗曼语族变音等价+0.05
func (s *Scorer) languageBonus(profile *language.Profile, normExpected, normTranscript string) float64 {
	if normExpected == normTranscript {
		return bonusExactMatch
	}
	if profile.Family == language.FamilyRomance && diacriticEquivalent(normExpected, normTranscript) {
		return bonusDiacriticEquivalent
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// feedback 按固定分数档位生成提示
func feedback(score float64, normExpected, normTranscript string) string {
	switch {
	case score > 0.95:
		return "Perfect pronunciation!"
	case score > 0.85:
		return "Excellent! Very close to native."
	case score > 0.75:
		return "Great job!"
	case score > 0.65:
		return "Good effort, keep practicing."
	case score > 0.50:
		return fmt.Sprintf("We heard \"%s\", but the target was \"%s\". Almost there, try once more.", normTranscript, normExpected)
	case score > 0.30:
		return fmt.Sprintf("Try it slowly, piece by piece: %s", syllableHint(normExpected))
	default:
		return "Try again, speak more clearly."
	}
}

// syllableHint 以元音连串为界把目标词拆成可跟读的片段
func syllableHint(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}

	var segments []string
	var current []rune
	vowelSeen := false
	for _, r := range runes {
		if r == ' ' {
			if len(current) > 0 {
				segments = append(segments, string(current))
				current = current[:0]
			}
			vowelSeen = false
			continue
		}
		// 元音连串之后遇到辅音时切分
		if isVowel(r) {
			vowelSeen = true
		} else if vowelSeen {
			segments = append(segments, string(current))
			current = current[:0]
			vowelSeen = false
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		segments = append(segments, string(current))
	}
	if len(segments) == 0 {
		return word
	}
	return strings.Join(segments, "-")
}
