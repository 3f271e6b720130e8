// Package predefined 基于 toml 词表的精确匹配翻译后端
package predefined

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nerdneilsfield/go-epub-translator/pkg/lang"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
)

// Table 预定义翻译词表
type Table struct {
	SourceLang   string            `toml:"source_lang"`
	TargetLang   string            `toml:"target_lang"`
	Translations map[string]string `toml:"translations"`
}

// NewTable 创建词表
func NewTable(sourceLang, targetLang string, translations map[string]string) *Table {
	return &Table{
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		Translations: translations,
	}
}

// Load 读取 toml 词表文件
func Load(path string) (*Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read predefined translations file: %w", err)
	}
	return Parse(content)
}

// Parse 解析 toml 词表
func Parse(content []byte) (*Table, error) {
	table := &Table{}
	if err := toml.Unmarshal(content, table); err != nil {
		return nil, fmt.Errorf("failed to unmarshal predefined translations: %w", err)
	}
	if table.SourceLang == "" || table.TargetLang == "" {
		return nil, fmt.Errorf("predefined translations file is missing source_lang or target_lang")
	}
	return table, nil
}

// Lookup 查找一段文本，忽略首尾空白
func (t *Table) Lookup(text string) (string, bool) {
	v, ok := t.Translations[strings.TrimSpace(text)]
	return v, ok
}

// Covers 词表是否适用于该语言对
func (t *Table) Covers(source, target string) bool {
	return lang.Same(t.SourceLang, source) && lang.Same(t.TargetLang, target)
}

// Provider 词表后端，未命中的文本交给 fallback；fallback 为空时保留原文
type Provider struct {
	table    *Table
	fallback translation.Translator
}

var _ providers.Provider = (*Provider)(nil)

// New 创建词表后端
func New(table *Table, fallback translation.Translator) *Provider {
	return &Provider{table: table, fallback: fallback}
}

// Translate 先查词表，未命中的文本合并为一次 fallback 调用
func (p *Provider) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)

	covers := p.table != nil && p.table.Covers(source, target)
	var missIdx []int
	var misses []string
	for i, text := range texts {
		if covers {
			if v, ok := p.table.Lookup(text); ok {
				out[i] = providers.KeepSpacing(text, v)
				continue
			}
		}
		missIdx = append(missIdx, i)
		misses = append(misses, text)
	}

	if len(misses) == 0 || p.fallback == nil {
		return out, nil
	}

	translated, err := p.fallback.Translate(ctx, misses, source, target)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(misses) {
		return nil, translation.NewMismatchError(len(misses), len(translated))
	}
	for k, i := range missIdx {
		out[i] = translated[k]
	}
	return out, nil
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "predefined"
}
