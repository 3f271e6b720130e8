// Package langdetect 推测书籍正文的语言，用于 source_lang = auto
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minLetters 少于该字母数的样本不做判断
const minLetters = 20

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Detect 返回样本语言的英文名称（如 "English"），无法判断时返回空字符串
func Detect(sample string) string {
	sample = strings.TrimSpace(sample)
	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}
	return titleCase(language.String())
}

// DetectTexts 拼接若干段文本后判断，最多取 maxChars 个字符
func DetectTexts(texts []string, maxChars int) string {
	var sb strings.Builder
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t)
		if maxChars > 0 && sb.Len() >= maxChars {
			break
		}
	}
	return Detect(sb.String())
}

// lingua 的名称全大写，如 "ENGLISH"
func titleCase(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
