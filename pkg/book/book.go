package book

import (
	"fmt"
	"strings"
)

// Metadata 书籍元数据
type Metadata struct {
	Title      string
	Creator    string
	Language   string
	Identifier string

	// OriginalLanguage 读入时的语言，写出时据此判断是否需要改写 dc:language
	OriginalLanguage string
}

// Resource 章节以外的归档条目（图片、样式、字体、OPF、导航文件等），写出时原样保留
type Resource struct {
	Name       string // 归档内完整路径
	MediaType  string
	Properties string // manifest properties（如 nav、cover-image）
	Data       []byte
}

// IsNav 是否为导航文件（EPUB3 nav 或 EPUB2 NCX）
func (r *Resource) IsNav() bool {
	return hasProperty(r.Properties, "nav") || r.MediaType == "application/x-dtbncx+xml"
}

// Chapter 书籍的一个章节（spine 中的一个 XHTML 文档）
type Chapter struct {
	Index     int
	ID        string
	Href      string // 归档内完整路径
	MediaType string
	Title     string
	Nodes     []*Node
	HTML      bool // 不是合法 XML，按 HTML 语法解析和写出
}

// Clone 深拷贝章节
func (c *Chapter) Clone() *Chapter {
	if c == nil {
		return nil
	}
	out := *c
	out.Nodes = CloneNodes(c.Nodes)
	return &out
}

// Resolve 按路径定位章节中的节点
func (c *Chapter) Resolve(p NodePath) (*Node, error) {
	n, err := Resolve(c.Nodes, p)
	if err != nil {
		return nil, fmt.Errorf("chapter %d (%s): %w", c.Index, c.Href, err)
	}
	return n, nil
}

// Book 电子书：按阅读顺序排列的章节，加上原样保留的资源
type Book struct {
	Metadata  Metadata
	Chapters  []*Chapter
	Resources []*Resource

	// Entries 归档条目的原始顺序（章节与资源混排），写出时沿用
	Entries []string

	// PackagePath OPF 文件在归档中的路径
	PackagePath string
}

// Chapter 按下标获取章节
func (b *Book) Chapter(i int) (*Chapter, error) {
	if i < 0 || i >= len(b.Chapters) {
		return nil, fmt.Errorf("chapter %d out of range (book has %d chapters)", i, len(b.Chapters))
	}
	return b.Chapters[i], nil
}

// Resource 按归档路径查找资源
func (b *Book) Resource(name string) (*Resource, bool) {
	for _, r := range b.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Clone 深拷贝整本书，副本与源不共享任何节点、切片或字节数组
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	out := &Book{Metadata: b.Metadata, PackagePath: b.PackagePath}
	if b.Chapters != nil {
		out.Chapters = make([]*Chapter, len(b.Chapters))
		for i, c := range b.Chapters {
			out.Chapters[i] = c.Clone()
		}
	}
	if b.Resources != nil {
		out.Resources = make([]*Resource, len(b.Resources))
		for i, r := range b.Resources {
			rc := *r
			if r.Data != nil {
				rc.Data = make([]byte, len(r.Data))
				copy(rc.Data, r.Data)
			}
			out.Resources[i] = &rc
		}
	}
	if b.Entries != nil {
		out.Entries = make([]string, len(b.Entries))
		copy(out.Entries, b.Entries)
	}
	return out
}

// TextNodeCount 统计非空白文本节点数量
func (b *Book) TextNodeCount() int {
	count := 0
	for _, c := range b.Chapters {
		Walk(c.Nodes, func(n *Node, _ NodePath) bool {
			if n.Type == TextNode && !n.IsBlank() {
				count++
			}
			return true
		})
	}
	return count
}

func hasProperty(props, want string) bool {
	for _, p := range strings.Fields(props) {
		if p == want {
			return true
		}
	}
	return false
}
