package translation

import "context"

// Translator 翻译能力：返回与 texts 等长、逐位对应的译文
type Translator interface {
	Translate(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// TranslatorFunc 函数适配器
type TranslatorFunc func(ctx context.Context, texts []string, source, target string) ([]string, error)

// Translate 实现 Translator
func (f TranslatorFunc) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	return f(ctx, texts, source, target)
}

// Identity 原样返回输入的翻译能力
var Identity Translator = TranslatorFunc(func(_ context.Context, texts []string, _, _ string) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)
	return out, nil
})
