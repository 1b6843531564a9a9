package voice

import (
	"strings"

	"kouyu-server-go/internal/domain/language"
	"kouyu-server-go/internal/utils"
)

// excludedEngines 已知音质差的引擎变体，按ID子串排除
var excludedEngines = []string{"Compact", "Eloquence"}

// accentHints 按语言的口音偏好子串，只作并列时的决胜，不作硬性要求
var accentHints = map[string][]string{
	"en": {"Aria", "Sonia"},
	"fr": {"Denise"},
	"es": {"Elvira"},
	"pt": {"Raquel"},
	"zh": {"Xiaoxiao"},
}

// Resolver 把练习语言解析为最合适的已安装音色。
// 回退链：精确标签 → 主子标签前缀 → 同族语言 → 地理回退 → 默认语言。
type Resolver struct {
	profiles *language.Registry
	catalog  Catalog
	logger   *utils.Logger
}

// NewResolver 创建音色解析器
func NewResolver(profiles *language.Registry, catalog Catalog, logger *utils.Logger) *Resolver {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	if profiles == nil {
		profiles = language.NewRegistry()
	}
	if catalog == nil {
		catalog = NewEdgeCatalog()
	}
	return &Resolver{profiles: profiles, catalog: catalog, logger: logger}
}

// Resolution 一次解析的结果
type Resolution struct {
	Voice Voice
	// ResolvedLanguage 实际选中音色所属的规范语言码，
	// 回退发生时不等于请求语言
	ResolvedLanguage string
	// Fallback 是否发生了跨语言回退
	Fallback bool
}

// Resolve 为请求语言解析音色。链条必然终止；只要默认语言
// 有已安装音色，就绝不返回空结果。
func (r *Resolver) Resolve(lang string) (Resolution, bool) {
	installed := r.catalog.Installed()
	requested := language.Canonical(lang)

	if v, ok := r.resolveDirect(requested, installed); ok {
		return Resolution{Voice: v, ResolvedLanguage: requested}, true
	}

	profile := r.profiles.Get(requested)

	// 同族语言，按表中优先级
	for _, sibling := range language.FamilySiblings(profile) {
		if v, ok := r.resolveDirect(sibling, installed); ok {
			r.logger.InfoTag("VOICE", "语言 %s 无可用音色，回退到同族 %s", requested, sibling)
			return Resolution{Voice: v, ResolvedLanguage: sibling, Fallback: true}, true
		}
	}

	// 地理/文化回退
	for _, near := range language.GeographicFallback(requested) {
		if v, ok := r.resolveDirect(near, installed); ok {
			r.logger.InfoTag("VOICE", "语言 %s 无可用音色，地理回退到 %s", requested, near)
			return Resolution{Voice: v, ResolvedLanguage: near, Fallback: true}, true
		}
	}

	// 默认语言兜底
	if requested != language.DefaultCode {
		if v, ok := r.resolveDirect(language.DefaultCode, installed); ok {
			r.logger.WarnTag("VOICE", "语言 %s 全链回退失败，使用默认语言音色 %s", requested, v.ID)
			return Resolution{Voice: v, ResolvedLanguage: language.DefaultCode, Fallback: true}, true
		}
	}

	return Resolution{}, false
}

// resolveDirect 在单一语言内按变体顺序查找：先精确标签，再主子标签前缀
func (r *Resolver) resolveDirect(lang string, installed []Voice) (Voice, bool) {
	profile := r.profiles.Get(lang)
	variants := profile.Variants
	if len(variants) == 0 {
		variants = []string{lang}
	}

	for _, tag := range variants {
		exact := filterVoices(installed, func(v Voice) bool {
			return strings.EqualFold(v.LanguageTag, tag)
		})
		if v, ok := SelectBestVoice(exact, lang); ok {
			return v, true
		}
	}

	// 主子标签前缀：fr 匹配 fr-FR、fr-CA 等
	primary := primarySubtag(variants[0])
	prefixed := filterVoices(installed, func(v Voice) bool {
		return strings.EqualFold(primarySubtag(v.LanguageTag), primary)
	})
	return SelectBestVoice(prefixed, lang)
}

// SelectBestVoice 从候选中选最优：Enhanced优先，排除已知差引擎，
// 口音偏好子串只作决胜
func SelectBestVoice(candidates []Voice, lang string) (Voice, bool) {
	usable := filterVoices(candidates, func(v Voice) bool {
		for _, engine := range excludedEngines {
			if strings.Contains(v.ID, engine) {
				return false
			}
		}
		return true
	})
	// 排除后一个不剩时，带着差引擎也要出声
	if len(usable) == 0 {
		usable = candidates
	}
	if len(usable) == 0 {
		return Voice{}, false
	}

	best := usable[0]
	bestRank := voiceRank(best, lang)
	for _, v := range usable[1:] {
		if rank := voiceRank(v, lang); rank > bestRank {
			best, bestRank = v, rank
		}
	}
	return best, true
}

func voiceRank(v Voice, lang string) int {
	rank := 0
	if v.Quality == QualityEnhanced {
		rank += 10
	}
	for _, hint := range accentHints[language.Canonical(lang)] {
		if strings.Contains(v.ID, hint) {
			rank++
			break
		}
	}
	return rank
}

func filterVoices(voices []Voice, keep func(Voice) bool) []Voice {
	var out []Voice
	for _, v := range voices {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func primarySubtag(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}
