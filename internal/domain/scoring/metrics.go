package scoring

import (
	"strings"
	"unicode"
)

// MetricSet 八项相似度指标，全部落在 [0,1]
type MetricSet struct {
	Exact      float64 `json:"exact"`
	Set        float64 `json:"set"`
	Edit       float64 `json:"edit"`
	Word       float64 `json:"word"`
	Phonetic   float64 `json:"phonetic"`
	Syllable   float64 `json:"syllable"`
	Length     float64 `json:"length"`
	Structural float64 `json:"structural"`
}

// Map 以指标名为键导出，供事件与存储使用
func (m MetricSet) Map() map[string]float64 {
	return map[string]float64{
		"exact":      m.Exact,
		"set":        m.Set,
		"edit":       m.Edit,
		"word":       m.Word,
		"phonetic":   m.Phonetic,
		"syllable":   m.Syllable,
		"length":     m.Length,
		"structural": m.Structural,
	}
}

// computeMetrics 对两段已归一化文本计算全部指标
func computeMetrics(a, b string) MetricSet {
	return MetricSet{
		Exact:      exactMatch(a, b),
		Set:        setSimilarity(a, b),
		Edit:       editSimilarity(a, b),
		Word:       wordMatchScore(a, b),
		Phonetic:   phoneticSimilarity(a, b),
		Syllable:   syllableAccuracy(a, b),
		Length:     lengthSimilarity(a, b),
		Structural: structuralSimilarity(a, b),
	}
}

func exactMatch(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return 0.0
}

// setSimilarity 字符集合的Jaccard指数（集合而非多重集）
func setSimilarity(a, b string) float64 {
	setA := make(map[rune]struct{})
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{})
	for _, r := range b {
		setB[r] = struct{}{}
	}

	union := len(setA)
	intersection := 0
	for r := range setB {
		if _, ok := setA[r]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// levenshtein 最小单字符编辑距离，按rune计算
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// editSimilarity = 1 − 编辑距离/max(len1,len2)
func editSimilarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

const wordMatchFloor = 0.8

// wordMatchScore 以较长一侧为分母，统计有对应词的比例。
// 贪心且非双射：同一个词可以被反复用来匹配。
func wordMatchScore(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	larger, other := wordsA, wordsB
	if len(wordsB) > len(wordsA) {
		larger, other = wordsB, wordsA
	}
	if len(larger) == 0 {
		return 1.0
	}

	matched := 0
	for _, w := range larger {
		for _, o := range other {
			if editSimilarity(w, o) > wordMatchFloor {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(larger))
}

var vowelRunes = map[rune]struct{}{}

func init() {
	for _, r := range "aeiouàáâãäåèéêëìíîïòóôõöùúûüýÿæœ" {
		vowelRunes[r] = struct{}{}
	}
}

func isVowel(r rune) bool {
	_, ok := vowelRunes[r]
	return ok
}

// digraphFolds 粗略音值折叠，顺序固定
var digraphFolds = [][2]string{
	{"ph", "f"},
	{"th", "t"},
	{"ch", "k"},
	{"sh", "s"},
	{"ck", "k"},
}

// phoneticReduce 粗粒度音形归约：折叠常见双字母组，
// 再把每段元音连串压成V、辅音连串压成C。
func phoneticReduce(s string) string {
	for _, fold := range digraphFolds {
		s = strings.ReplaceAll(s, fold[0], fold[1])
	}

	var b strings.Builder
	var last byte
	for _, r := range s {
		var class byte
		switch {
		case isVowel(r):
			class = 'V'
		case unicode.IsLetter(r):
			class = 'C'
		default:
			last = 0 // 非字母打断连串
			continue
		}
		if class != last {
			b.WriteByte(class)
			last = class
		}
	}
	return b.String()
}

func phoneticSimilarity(a, b string) float64 {
	return editSimilarity(phoneticReduce(a), phoneticReduce(b))
}

// vowelClusterCount 连续元音段的数量，作为音节数的近似
func vowelClusterCount(s string) int {
	count := 0
	inCluster := false
	for _, r := range s {
		if isVowel(r) {
			if !inCluster {
				count++
				inCluster = true
			}
		} else {
			inCluster = false
		}
	}
	return count
}

func syllableAccuracy(a, b string) float64 {
	ca := vowelClusterCount(a)
	cb := vowelClusterCount(b)
	maxC := ca
	if cb > maxC {
		maxC = cb
	}
	if maxC == 0 {
		return 1.0
	}
	diff := ca - cb
	if diff < 0 {
		diff = -diff
	}
	return 1.0 - float64(diff)/float64(maxC)
}

func lengthSimilarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1.0 - float64(diff)/float64(maxLen)
}

// structuralPattern 把每个字符映射为C/V/S
func structuralPattern(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('S')
		case isVowel(r):
			b.WriteByte('V')
		default:
			b.WriteByte('C')
		}
	}
	return b.String()
}

func structuralSimilarity(a, b string) float64 {
	return editSimilarity(structuralPattern(a), structuralPattern(b))
}
