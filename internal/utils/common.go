package utils

import (
	"regexp"
	"strings"
)

// RemoveAngleBracketContent 移除尖括号及其内容
func RemoveAngleBracketContent(text string) string {
	re := regexp.MustCompile(`<[^>]*>`)
	return re.ReplaceAllString(text, "")
}

// RemoveControlCharacters 移除控制字符
func RemoveControlCharacters(text string) string {
	// 移除常见的控制字符，但保留换行符和制表符
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, text)
}

// htmlEntities 合成前需要还原的常见HTML实体
var htmlEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": "\"",
	"&#39;":  "'",
	"&apos;": "'",
	"&nbsp;": " ",
}

// CleanForSynthesis 清理文本中的编码残留和HTML实体，供语音合成使用
func CleanForSynthesis(text string) string {
	text = RemoveAngleBracketContent(text)
	text = RemoveControlCharacters(text)
	for entity, plain := range htmlEntities {
		text = strings.ReplaceAll(text, entity, plain)
	}
	// UTF-8解码失败时常见的替换符
	text = strings.ReplaceAll(text, "�", "")
	text = strings.Join(strings.Fields(text), " ")
	return text
}
