package scoring

import (
	"strings"
	"testing"
	"unicode"

	"kouyu-server-go/internal/domain/language"
)

func TestEvaluateExactMatchFrench(t *testing.T) {
	scorer := NewScorer(language.NewRegistry())

	result := scorer.Evaluate("chat", "chat", "fr", 0.95)

	if !result.IsCorrect {
		t.Fatal("exact match must be correct")
	}
	if result.Confidence < 85 || result.Confidence > 100 {
		t.Fatalf("exact match confidence must be in [85,100], got %d", result.Confidence)
	}
}

func TestEvaluateExactMatchLowRecognitionConfidence(t *testing.T) {
	scorer := NewScorer(language.NewRegistry())

	// 即便识别置信度很低，完全一致的发音也不能不及格
	result := scorer.Evaluate("chat", "chat", "fr", 0.1)

	if !result.IsCorrect {
		t.Fatal("exact match must stay correct at low recognition confidence")
	}
	if result.Confidence < 85 || result.Confidence > 100 {
		t.Fatalf("exact match confidence must be in [85,100], got %d", result.Confidence)
	}
}

func TestEvaluateNearMissFrench(t *testing.T) {
	scorer := NewScorer(language.NewRegistry())

	// chaise/chaisse：编辑相似度 1 − 1/7，其余指标接近1
	result := scorer.Evaluate("chaise", "chaisse", "fr", 0.9)

	if !result.IsCorrect {
		t.Fatalf("chaisse should pass at typical fr threshold, score %v", result.FinalScore)
	}
	if result.FinalScore < 0.7 || result.FinalScore > 0.85 {
		t.Fatalf("unexpected score band for near miss: %v", result.FinalScore)
	}
}

func TestEvaluateMismatch(t *testing.T) {
	scorer := NewScorer(language.NewRegistry())

	result := scorer.Evaluate("bonjour", "pamplemousse", "fr", 0.9)

	if result.IsCorrect {
		t.Fatalf("completely different word must fail, score %v", result.FinalScore)
	}
}

func TestEvaluateMonotonicInEditDistance(t *testing.T) {
	scorer := NewScorer(language.NewRegistry())

	target := "restaurant"
	transcripts := []string{
		"restaurant",
		"restauranx",
		"restaurxxx",
		"restxxxxxx",
		"rxxxxxxxxx",
	}

	prev := 2.0
	for _, transcript := range transcripts {
		result := scorer.Evaluate(target, transcript, "en", 0.95)
		if result.FinalScore > prev {
			t.Fatalf("score increased with edit distance: %q scored %v after %v",
				transcript, result.FinalScore, prev)
		}
		prev = result.FinalScore
	}
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	registry := language.NewRegistry()
	scorer := NewScorer(registry)

	probe := scorer.Evaluate("fenetre", "fenetra", "fr", 0.9)
	score := probe.FinalScore
	if score <= 0 || score >= 1 {
		t.Fatalf("probe score must be interior: %v", score)
	}

	registry.ApplyTuning("fr", score-0.01, nil, 0)
	below := scorer.Evaluate("fenetre", "fenetra", "fr", 0.9)
	if !below.IsCorrect {
		t.Fatalf("score %v must pass threshold %v", score, score-0.01)
	}

	registry.ApplyTuning("fr", score+0.01, nil, 0)
	above := scorer.Evaluate("fenetre", "fenetra", "fr", 0.9)
	if above.IsCorrect {
		t.Fatalf("score %v must fail threshold %v", score, score+0.01)
	}
}

func TestEvaluateDiacriticEquivalentBonus(t *testing.T) {
	registry := language.NewRegistry()
	scorer := NewScorer(registry)

	// 归一化折叠变音符后两者相等，按精确匹配处理
	result := scorer.Evaluate("élève", "eleve", "fr", 0.9)
	if !result.IsCorrect {
		t.Fatalf("diacritic-only difference must pass, score %v", result.FinalScore)
	}
}

func TestEvaluateConfidenceWeightSteps(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   float64
	}{
		{0.95, 1.0},
		{0.9, 1.0},
		{0.8, 0.95},
		{0.6, 0.85},
		{0.4, 0.7},
		{0.1, 0.5},
	}
	for _, tt := range tests {
		if got := confidenceWeight(tt.confidence); got != tt.expected {
			t.Errorf("confidenceWeight(%v) = %v, want %v", tt.confidence, got, tt.expected)
		}
	}
}

func TestFeedbackBands(t *testing.T) {
	tests := []struct {
		score    float64
		contains string
	}{
		{0.97, "Perfect"},
		{0.90, "Excellent"},
		{0.80, "Great"},
		{0.70, "Good effort"},
		{0.55, "target was"},
		{0.40, "slowly"},
		{0.10, "more clearly"},
	}
	for _, tt := range tests {
		msg := feedback(tt.score, "chaise", "transcript")
		if !strings.Contains(msg, tt.contains) {
			t.Errorf("feedback(%v) = %q, want substring %q", tt.score, msg, tt.contains)
		}
		// 提示面向终端用户，必须是纯ASCII文案
		for _, r := range msg {
			if r > unicode.MaxASCII {
				t.Errorf("feedback(%v) contains non-ASCII rune %q in %q", tt.score, r, msg)
			}
		}
	}
}

func TestSyllableHint(t *testing.T) {
	hint := syllableHint("chaise")
	if !strings.Contains(hint, "-") {
		t.Errorf("expected hyphenated hint, got %q", hint)
	}
	if syllableHint("") != "" {
		t.Error("empty word must yield empty hint")
	}
}
