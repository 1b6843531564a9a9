package scoring

import (
	"strings"

	"kouyu-server-go/internal/domain/language"
)

// 各语言的变音符折叠表；键必须是小写，值必须不再出现在任何键中，
// 以保证 NormalizeText 幂等。
var foldingTables = map[string]map[rune]string{
	"fr": {
		'à': "a", 'â': "a", 'ä': "a",
		'é': "e", 'è': "e", 'ê': "e", 'ë': "e",
		'î': "i", 'ï': "i",
		'ô': "o", 'ö': "o",
		'ù': "u", 'û': "u", 'ü': "u",
		'ÿ': "y", 'ç': "c",
		'œ': "oe", 'æ': "ae",
	},
	"de": {
		'ä': "ae", 'ö': "oe", 'ü': "ue", 'ß': "ss",
	},
	"es": {
		'á': "a", 'é': "e", 'í': "i", 'ó': "o", 'ú': "u", 'ü': "u", 'ñ': "n",
	},
	"it": {
		'à': "a", 'è': "e", 'é': "e", 'ì': "i", 'ò': "o", 'ó': "o", 'ù': "u",
	},
	"pt": {
		'á': "a", 'à': "a", 'â': "a", 'ã': "a",
		'é': "e", 'ê': "e",
		'í': "i",
		'ó': "o", 'ô': "o", 'õ': "o",
		'ú': "u", 'ü': "u", 'ç': "c",
	},
	"ro": {
		'ă': "a", 'â': "a", 'î': "i", 'ș': "s", 'ş': "s", 'ț': "t", 'ţ': "t",
	},
}

// romanceFoldAll 罗曼语族合并折叠表，用于变音等价加分的判定
var romanceFoldAll = func() map[rune]string {
	merged := make(map[rune]string)
	for _, code := range []string{"fr", "es", "it", "pt", "ro"} {
		for r, s := range foldingTables[code] {
			if _, ok := merged[r]; !ok {
				merged[r] = s
			}
		}
	}
	return merged
}()

const terminalPunctuation = ".!?;:,。！？；：，、…"

// NormalizeText 归一化文本：小写、去终结标点、合并空白、按语言折叠变音符。
// 对已归一化的文本再调用是无操作（幂等）。
func NormalizeText(text, lang string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.TrimRight(text, terminalPunctuation)
	text = strings.Join(strings.Fields(text), " ")

	if table, ok := foldingTables[language.Canonical(lang)]; ok {
		text = foldRunes(text, table)
	}
	return text
}

func foldRunes(text string, table map[rune]string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if folded, ok := table[r]; ok {
			b.WriteString(folded)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// diacriticEquivalent 判断两段文本在罗曼语族折叠下是否等价。
// 用于加分：转写与目标只差变音符时仍然给予肯定。
func diacriticEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	return foldRunes(a, romanceFoldAll) == foldRunes(b, romanceFoldAll)
}
