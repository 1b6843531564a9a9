package voice

import "strings"

// QualityTier 合成音色的质量等级
type QualityTier int

const (
	QualityDefault QualityTier = iota
	QualityEnhanced
)

func (q QualityTier) String() string {
	if q == QualityEnhanced {
		return "enhanced"
	}
	return "default"
}

// Voice 一个已安装的合成音色
type Voice struct {
	// ID 合成引擎的音色标识，如 "fr-FR-DeniseNeural"
	ID string
	// LanguageTag BCP-47语言标签
	LanguageTag string
	// Name 引擎内的短名，如 "Denise"
	Name    string
	Quality QualityTier
}

// Catalog 已安装音色目录
type Catalog interface {
	// Installed 返回全部可用音色
	Installed() []Voice
}

// edgeCatalog Edge合成服务的静态音色目录。
// Neural音色归为Enhanced档，旧版标准音色归为Default档。
type edgeCatalog struct {
	voices []Voice
}

// NewEdgeCatalog 创建Edge音色目录
func NewEdgeCatalog() Catalog {
	return &edgeCatalog{voices: edgeVoices}
}

func (c *edgeCatalog) Installed() []Voice {
	out := make([]Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// StaticCatalog 固定音色表，测试与离线配置使用
type StaticCatalog struct {
	Voices []Voice
}

func (c *StaticCatalog) Installed() []Voice {
	out := make([]Voice, len(c.Voices))
	copy(out, c.Voices)
	return out
}

func edgeVoice(id string) Voice {
	// ID形如 "fr-FR-DeniseNeural"，前两段是语言标签
	parts := strings.SplitN(id, "-", 3)
	tag := id
	name := id
	if len(parts) == 3 {
		tag = parts[0] + "-" + parts[1]
		name = strings.TrimSuffix(parts[2], "Neural")
	}
	quality := QualityDefault
	if strings.HasSuffix(id, "Neural") {
		quality = QualityEnhanced
	}
	return Voice{ID: id, LanguageTag: tag, Name: name, Quality: quality}
}

var edgeVoices = []Voice{
	edgeVoice("en-US-AriaNeural"),
	edgeVoice("en-US-GuyNeural"),
	edgeVoice("en-US-JennyNeural"),
	edgeVoice("en-GB-SoniaNeural"),
	edgeVoice("en-GB-RyanNeural"),
	edgeVoice("en-AU-NatashaNeural"),
	edgeVoice("fr-FR-DeniseNeural"),
	edgeVoice("fr-FR-HenriNeural"),
	edgeVoice("fr-CA-SylvieNeural"),
	edgeVoice("es-ES-ElviraNeural"),
	edgeVoice("es-ES-AlvaroNeural"),
	edgeVoice("es-MX-DaliaNeural"),
	edgeVoice("de-DE-KatjaNeural"),
	edgeVoice("de-DE-ConradNeural"),
	edgeVoice("de-AT-IngridNeural"),
	edgeVoice("it-IT-ElsaNeural"),
	edgeVoice("it-IT-DiegoNeural"),
	edgeVoice("pt-BR-FranciscaNeural"),
	edgeVoice("pt-PT-RaquelNeural"),
	edgeVoice("ro-RO-AlinaNeural"),
	edgeVoice("nl-NL-ColetteNeural"),
	edgeVoice("sv-SE-SofieNeural"),
	edgeVoice("ru-RU-SvetlanaNeural"),
	edgeVoice("ru-RU-DmitryNeural"),
	edgeVoice("pl-PL-ZofiaNeural"),
	edgeVoice("uk-UA-PolinaNeural"),
	edgeVoice("zh-CN-XiaoxiaoNeural"),
	edgeVoice("zh-CN-YunxiNeural"),
	edgeVoice("ja-JP-NanamiNeural"),
	edgeVoice("ja-JP-KeitaNeural"),
	edgeVoice("ko-KR-SunHiNeural"),
	edgeVoice("th-TH-PremwadeeNeural"),
	edgeVoice("vi-VN-HoaiMyNeural"),
	edgeVoice("ar-SA-ZariyahNeural"),
	edgeVoice("he-IL-HilaNeural"),
	edgeVoice("hi-IN-SwaraNeural"),
	edgeVoice("tr-TR-EmelNeural"),
}
