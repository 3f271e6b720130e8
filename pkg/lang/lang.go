// Package lang 语言名称与 BCP 47 标签之间的转换
package lang

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto 表示源语言由检测得出
const Auto = "auto"

// known 用于按英文名称反查标签
var known = []language.Tag{
	language.English, language.Italian, language.French, language.German,
	language.Spanish, language.Portuguese, language.Dutch, language.Russian,
	language.Polish, language.Czech, language.Swedish, language.Danish,
	language.Norwegian, language.Finnish, language.Greek, language.Turkish,
	language.Arabic, language.Hebrew, language.Hindi, language.Japanese,
	language.Korean, language.Chinese, language.SimplifiedChinese,
	language.TraditionalChinese, language.Ukrainian, language.Romanian,
	language.Hungarian, language.Vietnamese, language.Thai, language.Indonesian,
	language.Catalan, language.Bulgarian, language.Croatian, language.Serbian,
}

var namer = display.English.Tags()

// Tag 将语言名称（"Italian"）或标签（"it"、"pt-BR"）解析为 language.Tag
func Tag(s string) (language.Tag, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, Auto) {
		return language.Und, false
	}
	for _, t := range known {
		if strings.EqualFold(namer.Name(t), s) {
			return t, true
		}
	}
	t, err := language.Parse(s)
	if err != nil || t == language.Und {
		return language.Und, false
	}
	return t, true
}

// IsAuto 是否要求自动识别
func IsAuto(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), Auto)
}

// Name 返回语言的英文显示名；无法识别时原样返回
func Name(s string) string {
	t, ok := Tag(s)
	if !ok {
		return s
	}
	if n := namer.Name(t); n != "" {
		return n
	}
	return s
}

// Code 返回写入 dc:language 的标签；无法识别时原样返回
func Code(s string) string {
	t, ok := Tag(s)
	if !ok {
		return s
	}
	return t.String()
}

// Same 判断两个语言描述是否指同一种语言
func Same(a, b string) bool {
	ta, oka := Tag(a)
	tb, okb := Tag(b)
	if !oka || !okb {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	if ta == tb {
		return true
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	// 只有一方带地区/文字时按基础语言比较
	if ta.Parent() == language.Und || tb.Parent() == language.Und || ta.Parent() == tb || tb.Parent() == ta {
		return ba == bb
	}
	return false
}
