package language

import (
	"strings"
	"sync"
)

// Family 语言族标签，用于语音回退
type Family string

const (
	FamilyRomance  Family = "romance"
	FamilyGermanic Family = "germanic"
	FamilySlavic   Family = "slavic"
	FamilyCJK      Family = "cjk"
	FamilyTonal    Family = "tonal"
	FamilySemitic  Family = "semitic"
	FamilyIndic    Family = "indic"
	FamilyTurkic   Family = "turkic"
	FamilyOther    Family = "other"
)

// MetricWeights 八项相似度指标的权重，总和为1.0
type MetricWeights struct {
	Exact      float64
	Set        float64
	Edit       float64
	Word       float64
	Phonetic   float64
	Syllable   float64
	Length     float64
	Structural float64
}

// Sum 返回权重之和，配置校验用
func (w MetricWeights) Sum() float64 {
	return w.Exact + w.Set + w.Edit + w.Word + w.Phonetic + w.Syllable + w.Length + w.Structural
}

// Profile 单一练习语言的静态配置，加载后只读
type Profile struct {
	// 规范语言码，如 "fr"
	Code string
	// 按优先级排列的BCP-47变体，如 ["fr-FR", "fr-CA"]
	Variants []string
	// 识别服务使用的语言标签；为空时透传规范码
	RecognitionTag string
	Family         Family
	Weights        MetricWeights
	// 评分通过阈值，声调/表意语言更低
	Threshold float64
	// 合成语速，1.0为正常
	SpeechRate float32
}

// 默认权重向量（拉丁字母语言）
var defaultWeights = MetricWeights{
	Exact: 0.25, Set: 0.20, Edit: 0.15, Word: 0.15,
	Phonetic: 0.10, Syllable: 0.08, Length: 0.04, Structural: 0.03,
}

// 罗曼语族偏向发音与结构
var romanceWeights = MetricWeights{
	Exact: 0.20, Set: 0.18, Edit: 0.15, Word: 0.12,
	Phonetic: 0.15, Syllable: 0.08, Length: 0.04, Structural: 0.08,
}

// 声调/表意语言偏向音节与发音
var tonalWeights = MetricWeights{
	Exact: 0.15, Set: 0.15, Edit: 0.10, Word: 0.10,
	Phonetic: 0.18, Syllable: 0.20, Length: 0.06, Structural: 0.06,
}

const (
	thresholdLatin   = 0.70
	thresholdRomance = 0.65
	thresholdSlavic  = 0.65
	thresholdTonal   = 0.55
	thresholdOther   = 0.60
)

// DefaultCode 所有回退链的终点
const DefaultCode = "en"

// Registry 语言配置注册表
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

func newProfile(code string, variants []string, recTag string, family Family, weights MetricWeights, threshold float64, rate float32) *Profile {
	return &Profile{
		Code:           code,
		Variants:       variants,
		RecognitionTag: recTag,
		Family:         family,
		Weights:        weights,
		Threshold:      threshold,
		SpeechRate:     rate,
	}
}

// NewRegistry 创建带内置语言表的注册表
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]*Profile)}

	builtins := []*Profile{
		newProfile("en", []string{"en-US", "en-GB", "en-AU"}, "en-US", FamilyGermanic, defaultWeights, thresholdLatin, 1.0),
		newProfile("de", []string{"de-DE", "de-AT", "de-CH"}, "de-DE", FamilyGermanic, defaultWeights, thresholdLatin, 0.95),
		newProfile("nl", []string{"nl-NL", "nl-BE"}, "nl-NL", FamilyGermanic, defaultWeights, thresholdLatin, 0.95),
		newProfile("sv", []string{"sv-SE"}, "sv-SE", FamilyGermanic, defaultWeights, thresholdLatin, 0.95),
		newProfile("fr", []string{"fr-FR", "fr-CA", "fr-BE"}, "fr-FR", FamilyRomance, romanceWeights, thresholdRomance, 0.9),
		newProfile("es", []string{"es-ES", "es-MX", "es-AR"}, "es-ES", FamilyRomance, romanceWeights, thresholdRomance, 0.95),
		newProfile("it", []string{"it-IT"}, "it-IT", FamilyRomance, romanceWeights, thresholdRomance, 0.95),
		newProfile("pt", []string{"pt-BR", "pt-PT"}, "pt-BR", FamilyRomance, romanceWeights, thresholdRomance, 0.95),
		newProfile("ro", []string{"ro-RO"}, "ro-RO", FamilyRomance, romanceWeights, thresholdRomance, 0.95),
		newProfile("ru", []string{"ru-RU"}, "ru-RU", FamilySlavic, defaultWeights, thresholdSlavic, 0.9),
		newProfile("pl", []string{"pl-PL"}, "pl-PL", FamilySlavic, defaultWeights, thresholdSlavic, 0.9),
		newProfile("uk", []string{"uk-UA"}, "uk-UA", FamilySlavic, defaultWeights, thresholdSlavic, 0.9),
		newProfile("zh", []string{"zh-CN", "zh-TW", "zh-HK"}, "cmn-Hans-CN", FamilyCJK, tonalWeights, thresholdTonal, 0.85),
		newProfile("ja", []string{"ja-JP"}, "ja-JP", FamilyCJK, tonalWeights, thresholdTonal, 0.85),
		newProfile("ko", []string{"ko-KR"}, "ko-KR", FamilyCJK, tonalWeights, thresholdOther, 0.88),
		newProfile("th", []string{"th-TH"}, "th-TH", FamilyTonal, tonalWeights, thresholdTonal, 0.85),
		newProfile("vi", []string{"vi-VN"}, "vi-VN", FamilyTonal, tonalWeights, thresholdTonal, 0.88),
		newProfile("ar", []string{"ar-SA", "ar-EG"}, "ar-SA", FamilySemitic, defaultWeights, thresholdOther, 0.9),
		newProfile("he", []string{"he-IL"}, "he-IL", FamilySemitic, defaultWeights, thresholdOther, 0.9),
		newProfile("hi", []string{"hi-IN"}, "hi-IN", FamilyIndic, defaultWeights, thresholdOther, 0.9),
		newProfile("tr", []string{"tr-TR"}, "tr-TR", FamilyTurkic, defaultWeights, thresholdSlavic, 0.9),
	}

	for _, p := range builtins {
		r.profiles[p.Code] = p
	}
	return r
}

// Get 返回语言配置；未注册的语言返回带默认参数的临时配置
func (r *Registry) Get(code string) *Profile {
	code = Canonical(code)

	r.mu.RLock()
	p, ok := r.profiles[code]
	r.mu.RUnlock()
	if ok {
		return p
	}

	// 未知语言：透传识别标签，默认权重与阈值
	return newProfile(code, []string{code}, "", FamilyOther, defaultWeights, thresholdOther, 1.0)
}

// Has 语言是否内置
func (r *Registry) Has(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.profiles[Canonical(code)]
	return ok
}

// Codes 返回所有注册语言码
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.profiles))
	for code := range r.profiles {
		codes = append(codes, code)
	}
	return codes
}

// ApplyTuning 用配置覆盖阈值/权重/语速，启动时调用一次
func (r *Registry) ApplyTuning(code string, threshold float64, weights []float64, rate float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[Canonical(code)]
	if !ok {
		return
	}
	clone := *p
	if threshold > 0 && threshold <= 1 {
		clone.Threshold = threshold
	}
	if len(weights) == 8 {
		clone.Weights = MetricWeights{
			Exact: weights[0], Set: weights[1], Edit: weights[2], Word: weights[3],
			Phonetic: weights[4], Syllable: weights[5], Length: weights[6], Structural: weights[7],
		}
	}
	if rate > 0 {
		clone.SpeechRate = rate
	}
	r.profiles[clone.Code] = &clone
}

// Canonical 把 "fr-FR"/"FR" 之类的输入归一为规范码
func Canonical(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// familySiblings 同族语言表，按回退优先级排列
var familySiblings = map[Family][]string{
	FamilyRomance:  {"fr", "es", "it", "pt", "ro"},
	FamilyGermanic: {"en", "de", "nl", "sv"},
	FamilySlavic:   {"ru", "pl", "uk"},
	FamilyCJK:      {"zh", "ja", "ko"},
	FamilyTonal:    {"th", "vi"},
	FamilySemitic:  {"ar", "he"},
	FamilyIndic:    {"hi"},
	FamilyTurkic:   {"tr"},
}

// FamilySiblings 返回同族的其他语言码
func FamilySiblings(p *Profile) []string {
	siblings := make([]string, 0, 4)
	for _, code := range familySiblings[p.Family] {
		if code != p.Code {
			siblings = append(siblings, code)
		}
	}
	return siblings
}

// geographicFallback 无同族语音可用时的地理/文化回退
var geographicFallback = map[string][]string{
	"ja": {"zh", "ko"},
	"ko": {"ja", "zh"},
	"th": {"vi", "zh"},
	"vi": {"th", "zh"},
	"ar": {"tr", "fr"},
	"he": {"ar"},
	"hi": {"ar"},
	"tr": {"de"},
	"uk": {"pl", "ru"},
	"ro": {"it", "fr"},
}

// GeographicFallback 返回地理回退链
func GeographicFallback(code string) []string {
	return geographicFallback[Canonical(code)]
}
