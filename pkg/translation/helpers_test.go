package translation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
	"github.com/stretchr/testify/mock"
)

// sampleBook 两章：第一章 3 个非空文本和 1 个空白文本，第二章 2 个非空文本
func sampleBook() *book.Book {
	ch0 := &book.Chapter{
		Index: 0,
		Href:  "OEBPS/ch0.xhtml",
		Nodes: []*book.Node{
			book.Element("html", nil,
				book.Element("body", nil,
					book.Element("h1", book.Attrs("class", "title"), book.Text("Title")),
					book.Text("\n  "),
					book.Element("p", nil,
						book.Text("Hello "),
						book.Element("em", nil, book.Text("world")),
					),
				),
			),
		},
	}
	ch1 := &book.Chapter{
		Index: 1,
		Href:  "OEBPS/ch1.xhtml",
		Nodes: []*book.Node{
			book.Element("html", nil,
				book.Element("body", nil,
					book.Element("p", nil, book.Text("Second")),
					book.Element("p", nil, book.Element("b", nil, book.Text("chapter"))),
				),
			),
		},
	}
	return &book.Book{
		Metadata: book.Metadata{Title: "Sample", Language: "en", OriginalLanguage: "en"},
		Chapters: []*book.Chapter{ch0, ch1},
		Resources: []*book.Resource{
			{Name: "mimetype", Data: []byte("application/epub+zip")},
			{Name: "OEBPS/style.css", MediaType: "text/css", Data: []byte("p{}")},
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func texts(b *book.Book) []string {
	var out []string
	for _, ch := range b.Chapters {
		book.Walk(ch.Nodes, func(n *book.Node, _ book.NodePath) bool {
			if n.Type == book.TextNode {
				out = append(out, n.Data)
			}
			return true
		})
	}
	return out
}

// prefixTranslator 确定性翻译：每条加前缀
func prefixTranslator(prefix string) Translator {
	return TranslatorFunc(func(_ context.Context, in []string, _, _ string) ([]string, error) {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = prefix + s
		}
		return out, nil
	})
}

type mockTranslator struct {
	mock.Mock
}

func (m *mockTranslator) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	args := m.Called(ctx, texts, source, target)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

// recordingTranslator 记录每次调用的输入，并委托给 next
type recordingTranslator struct {
	mu    sync.Mutex
	calls [][]string
	next  Translator
}

func (r *recordingTranslator) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), texts...))
	r.mu.Unlock()
	return r.next.Translate(ctx, texts, source, target)
}

func (r *recordingTranslator) sizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.calls))
	for i, c := range r.calls {
		out[i] = len(c)
	}
	return out
}

func contains(texts []string, s string) bool {
	for _, t := range texts {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}
