package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const epsilon = 1e-9

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("chat", "chat"))
	assert.Equal(t, 1, levenshtein("chaise", "chaisse"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 4, levenshtein("", "chat"))
}

func TestEditSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, editSimilarity("chat", "chat"), epsilon)
	// §编辑相似度：1 − 1/7
	assert.InDelta(t, 1.0-1.0/7.0, editSimilarity("chaise", "chaisse"), epsilon)
	assert.InDelta(t, 1.0, editSimilarity("", ""), epsilon)
	assert.InDelta(t, 0.0, editSimilarity("abc", "xyz"), epsilon)
}

func TestSetSimilarity(t *testing.T) {
	// 相同字符集合，与多重集无关
	assert.InDelta(t, 1.0, setSimilarity("chaise", "chaisse"), epsilon)
	assert.InDelta(t, 1.0, setSimilarity("aab", "ab"), epsilon)
	// {a,b} ∩ {b,c} = {b}, 并集 {a,b,c}
	assert.InDelta(t, 1.0/3.0, setSimilarity("ab", "bc"), epsilon)
	assert.InDelta(t, 1.0, setSimilarity("", ""), epsilon)
}

func TestWordMatchScoreGreedyNonBijective(t *testing.T) {
	// 每个词都能在另一侧找到编辑相似度>0.8的词
	assert.InDelta(t, 1.0, wordMatchScore("le chat noir", "le chat noir"), epsilon)
	// "noir"没有对应词，3个词中2个命中
	assert.InDelta(t, 2.0/3.0, wordMatchScore("le chat noir", "le chat"), epsilon)
	// 非双射：同一个词可以匹配多次
	assert.InDelta(t, 1.0, wordMatchScore("chat chat chat", "chat"), epsilon)
	assert.InDelta(t, 1.0, wordMatchScore("", ""), epsilon)
}

func TestPhoneticReduce(t *testing.T) {
	// ch→k 后压缩为辅音/元音连串标记
	assert.Equal(t, phoneticReduce("chaise"), phoneticReduce("chaisse"))
	assert.Equal(t, "CV", phoneticReduce("pho"))      // ph→f
	assert.Equal(t, phoneticReduce("thin"), phoneticReduce("tin")) // th→t
}

func TestSyllableAccuracy(t *testing.T) {
	// chaise: ai + e = 2 个元音连串
	assert.Equal(t, 2, vowelClusterCount("chaise"))
	assert.Equal(t, 3, vowelClusterCount("elephant"))
	assert.InDelta(t, 1.0, syllableAccuracy("chaise", "chaisse"), epsilon)
	assert.InDelta(t, 2.0/3.0, syllableAccuracy("elephant", "chaise"), epsilon)
	assert.InDelta(t, 1.0, syllableAccuracy("", ""), epsilon)
}

func TestLengthSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0-1.0/7.0, lengthSimilarity("chaise", "chaisse"), epsilon)
	assert.InDelta(t, 1.0, lengthSimilarity("", ""), epsilon)
}

func TestStructuralSimilarity(t *testing.T) {
	assert.Equal(t, "CCVVCV", structuralPattern("chaise"))
	assert.Equal(t, "CVSCV", structuralPattern("la vi"))
	assert.InDelta(t, 1.0-1.0/7.0, structuralSimilarity("chaise", "chaisse"), epsilon)
}

func TestMetricsAllWithinUnitInterval(t *testing.T) {
	pairs := [][2]string{
		{"chat", "chat"},
		{"chaise", "chaisse"},
		{"bonjour", "zebra"},
		{"", "bonjour"},
		{"le chat noir", "noir chat"},
	}
	for _, pair := range pairs {
		m := computeMetrics(pair[0], pair[1])
		for name, v := range m.Map() {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Errorf("metric %s out of range for %q vs %q: %v", name, pair[0], pair[1], v)
			}
		}
	}
}
