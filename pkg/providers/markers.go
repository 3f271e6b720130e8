package providers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"github.com/nerdneilsfield/go-epub-translator/pkg/lang"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
)

const (
	unitStart = "@@UNIT_%d@@"
	unitEnd   = "@@END_%d@@"
)

// 结束标记必须与开始标记编号一致，需要反向引用
var unitPattern = regexp2.MustCompile(`@@UNIT_(\d+)@@(.*?)@@END_\1@@`, regexp2.Singleline)

// SystemPrompt LLM 后端的系统提示
const SystemPrompt = "You are a professional translator. Translate accurately while preserving the original meaning and tone."

// Pack 将多段文本编号打包为一条消息
func Pack(texts []string) string {
	var sb strings.Builder
	for i, t := range texts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, unitStart, i)
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimSpace(t))
		sb.WriteByte('\n')
		fmt.Fprintf(&sb, unitEnd, i)
	}
	return sb.String()
}

// Unpack 从模型回复中按编号取回 n 段译文。
// 缺失、重复或越界的编号都视为条数不一致。
func Unpack(resp string, n int) ([]string, error) {
	out := make([]string, n)
	seen := make([]bool, n)
	total := 0
	var invalid []string

	m, err := unitPattern.FindStringMatch(resp)
	for m != nil && err == nil {
		groups := m.Groups()
		total++
		id, convErr := strconv.Atoi(groups[1].String())
		if convErr != nil || id < 0 || id >= n || seen[id] {
			invalid = append(invalid, groups[1].String())
		} else {
			seen[id] = true
			out[id] = strings.TrimSpace(groups[2].String())
		}
		m, err = unitPattern.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: %d segment(s) for %d text(s), duplicated or out-of-range ids %s",
			translation.ErrAlignmentMismatch, total, n, strings.Join(invalid, ","))
	}
	if total != n {
		return nil, translation.NewMismatchError(n, total)
	}
	return out, nil
}

// BuildPrompt 构造单段文本的翻译提示
func BuildPrompt(text, source, target string) string {
	return fmt.Sprintf(`Translate the following text from %s to %s:
<text>%s</text>

Translate every part of the text. Do NOT use any kind of formatting if not present in the original text.
Do NOT return <text> tags. Return ONLY the translated text.`, lang.Name(source), lang.Name(target), text)
}

// BuildBatchPrompt 构造带段落标记的批量翻译提示
func BuildBatchPrompt(texts []string, source, target string) string {
	return fmt.Sprintf(`Translate the following %d segments from %s to %s.
Each segment is wrapped between @@UNIT_n@@ and @@END_n@@ markers.

Rules:
- Keep every marker exactly as it appears and translate only the text between them.
- Return exactly %d segments, in the same order, each wrapped in its own markers.
- Never merge, split, drop or add segments.
- Translate every part of the text. Do NOT use any kind of formatting if not present in the original text.
- Return ONLY the marked segments, without explanations.

%s`, len(texts), lang.Name(source), lang.Name(target), len(texts), Pack(texts))
}

// 推理模型常见的思考过程标记
var reasoningTags = [][2]string{
	{"<think>", "</think>"},
	{"<thinking>", "</thinking>"},
	{"<thought>", "</thought>"},
	{"<reasoning>", "</reasoning>"},
	{"[THINKING]", "[/THINKING]"},
}

var reasoningPatterns = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(reasoningTags))
	for _, t := range reasoningTags {
		res = append(res, regexp.MustCompile(regexp.QuoteMeta(t[0])+`(?s:.*?)`+regexp.QuoteMeta(t[1])))
	}
	return res
}()

// StripReasoning 移除推理模型输出中的思考过程
func StripReasoning(content string) string {
	for _, re := range reasoningPatterns {
		content = re.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}

// KeepSpacing 让译文沿用原文首尾的空白
func KeepSpacing(src, translated string) string {
	core := strings.TrimSpace(translated)
	if core == "" || strings.TrimSpace(src) == "" {
		return core
	}
	lead := src[:len(src)-len(strings.TrimLeftFunc(src, unicode.IsSpace))]
	trail := src[len(strings.TrimRightFunc(src, unicode.IsSpace)):]
	return lead + core + trail
}

// ShortCircuit 处理不需要调用后端的情况：空输入、同语言。
func ShortCircuit(texts []string, source, target string) ([]string, bool) {
	if len(texts) == 0 {
		return []string{}, true
	}
	if !lang.IsAuto(source) && lang.Same(source, target) {
		out := make([]string, len(texts))
		copy(out, texts)
		return out, true
	}
	return nil, false
}

// ChatFunc 一次对话补全调用
type ChatFunc func(ctx context.Context, system, user string) (string, error)

// TranslateChat 以对话补全实现批量翻译。
// 空白文本不发送，原样保留；perItem 为真时逐段请求。
func TranslateChat(ctx context.Context, chat ChatFunc, texts []string, source, target string, perItem bool) ([]string, error) {
	if out, ok := ShortCircuit(texts, source, target); ok {
		return out, nil
	}

	out := make([]string, len(texts))
	copy(out, texts)

	var idx []int
	var pending []string
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		idx = append(idx, i)
		pending = append(pending, t)
	}
	if len(pending) == 0 {
		return out, nil
	}

	if perItem {
		for k, t := range pending {
			resp, err := chat(ctx, SystemPrompt, BuildPrompt(strings.TrimSpace(t), source, target))
			if err != nil {
				return nil, err
			}
			resp = StripReasoning(resp)
			if resp == "" {
				return nil, fmt.Errorf("%w: segment %d", translation.ErrEmptyResponse, idx[k])
			}
			out[idx[k]] = KeepSpacing(t, resp)
		}
		return out, nil
	}

	resp, err := chat(ctx, SystemPrompt, BuildBatchPrompt(pending, source, target))
	if err != nil {
		return nil, err
	}
	resp = StripReasoning(resp)
	if resp == "" {
		return nil, fmt.Errorf("%w: %d segments requested", translation.ErrEmptyResponse, len(pending))
	}
	parts, err := Unpack(resp, len(pending))
	if err != nil {
		return nil, err
	}
	for k, p := range parts {
		out[idx[k]] = KeepSpacing(pending[k], p)
	}
	return out, nil
}
