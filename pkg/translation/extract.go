package translation

import (
	"fmt"
	"iter"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
)

// DefaultSkipTags 其下文本不可见、不参与翻译的元素
var DefaultSkipTags = []string{"script", "style"}

// TextUnit 一个可翻译文本节点的地址与原文
type TextUnit struct {
	Seq     int           // 全书文档顺序下标
	Chapter int           // 章节下标
	Path    book.NodePath // 章节内路径
	Text    string        // 原文
}

func (u TextUnit) String() string {
	return fmt.Sprintf("#%d chapter %d %s", u.Seq, u.Chapter, u.Path)
}

type extractOptions struct {
	skip map[string]bool
}

// ExtractOption 提取选项
type ExtractOption func(*extractOptions)

// WithSkipTags 替换默认的跳过元素列表
func WithSkipTags(tags ...string) ExtractOption {
	return func(o *extractOptions) {
		o.skip = make(map[string]bool, len(tags))
		for _, t := range tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				o.skip[t] = true
			}
		}
	}
}

func newExtractOptions(opts []ExtractOption) extractOptions {
	o := extractOptions{}
	WithSkipTags(DefaultSkipTags...)(&o)
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Extract 按文档顺序（深度优先、子节点顺序）惰性产出全书的文本单元。
// 返回的序列可以多次遍历，每次都从头开始。
func Extract(b *book.Book, opts ...ExtractOption) iter.Seq[TextUnit] {
	o := newExtractOptions(opts)
	return func(yield func(TextUnit) bool) {
		seq := 0
		for ci, ch := range b.Chapters {
			if !extractNodes(ci, ch.Nodes, o, &seq, yield) {
				return
			}
		}
	}
}

// ExtractChapter 产出单个章节的文本单元，Seq 从 0 开始
func ExtractChapter(ch *book.Chapter, opts ...ExtractOption) iter.Seq[TextUnit] {
	o := newExtractOptions(opts)
	return func(yield func(TextUnit) bool) {
		seq := 0
		extractNodes(ch.Index, ch.Nodes, o, &seq, yield)
	}
}

func extractNodes(chapter int, nodes []*book.Node, o extractOptions, seq *int, yield func(TextUnit) bool) bool {
	stopped := false
	book.Walk(nodes, func(n *book.Node, p book.NodePath) bool {
		if stopped {
			return false
		}
		switch n.Type {
		case book.ElementNode:
			return !o.skip[strings.ToLower(localTag(n.Data))]
		case book.TextNode:
			if n.IsBlank() {
				return false
			}
			u := TextUnit{Seq: *seq, Chapter: chapter, Path: p, Text: n.Data}
			*seq++
			if !yield(u) {
				stopped = true
			}
		}
		return false
	})
	return !stopped
}

func localTag(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
