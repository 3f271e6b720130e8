package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChapter() *Chapter {
	return &Chapter{
		Index: 0,
		Href:  "OEBPS/ch1.xhtml",
		Nodes: []*Node{
			Raw(RawProcInst, `xml version="1.0" encoding="utf-8"`),
			Element("html", Attrs("xmlns", "http://www.w3.org/1999/xhtml"),
				Element("body", nil,
					Element("h1", Attrs("class", "title"), Text("Chapter One")),
					Text("\n  "),
					Element("p", nil, Text("Hello "), Element("em", nil, Text("world")), Text(".")),
				),
			),
		},
	}
}

func TestNodePath(t *testing.T) {
	t.Run("String and Parse", func(t *testing.T) {
		p := NodePath{1, 0, 2}
		assert.Equal(t, "/1/0/2", p.String())

		parsed, err := ParsePath(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)

		root, err := ParsePath("/")
		require.NoError(t, err)
		assert.Empty(t, root)

		_, err = ParsePath("1/2")
		assert.Error(t, err)
		_, err = ParsePath("/1/x")
		assert.Error(t, err)
	})

	t.Run("Child does not alias parent", func(t *testing.T) {
		base := make(NodePath, 1, 4)
		a := base.Child(1)
		b := base.Child(2)
		assert.Equal(t, "/0/1", a.String())
		assert.Equal(t, "/0/2", b.String())
	})
}

func TestResolve(t *testing.T) {
	ch := sampleChapter()

	n, err := ch.Resolve(NodePath{1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, TextNode, n.Type)
	assert.Equal(t, "Chapter One", n.Data)

	n, err = ch.Resolve(NodePath{1, 0, 2, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, "world", n.Data)

	_, err = ch.Resolve(NodePath{1, 0, 9})
	assert.Error(t, err)
	_, err = ch.Resolve(NodePath{})
	assert.Error(t, err)
}

func TestWalkOrder(t *testing.T) {
	ch := sampleChapter()
	var texts []string
	var paths []string
	Walk(ch.Nodes, func(n *Node, p NodePath) bool {
		if n.Type == TextNode {
			texts = append(texts, n.Data)
			paths = append(paths, p.String())
		}
		return true
	})
	assert.Equal(t, []string{"Chapter One", "\n  ", "Hello ", "world", "."}, texts)
	assert.Equal(t, "/1/0/0/0", paths[0])

	// 返回 false 时跳过子树
	var visited int
	Walk(ch.Nodes, func(n *Node, p NodePath) bool {
		visited++
		return n.Data != "body"
	})
	assert.Equal(t, 3, visited)
}

func TestClone(t *testing.T) {
	src := &Book{
		Metadata:  Metadata{Title: "Book", Language: "en"},
		Chapters:  []*Chapter{sampleChapter()},
		Resources: []*Resource{{Name: "OEBPS/style.css", MediaType: "text/css", Data: []byte("p{}")}},
		Entries:   []string{"mimetype", "OEBPS/ch1.xhtml", "OEBPS/style.css"},
	}

	clone := src.Clone()
	require.NotNil(t, clone)
	assert.Equal(t, src, clone)

	// 改写副本不影响源
	n, err := clone.Chapters[0].Resolve(NodePath{1, 0, 0, 0})
	require.NoError(t, err)
	n.Data = "Capitolo Uno"
	clone.Chapters[0].Nodes[1].Attr[0].Value = "changed"
	clone.Resources[0].Data[0] = 'x'
	clone.Entries[0] = "other"

	orig, err := src.Chapters[0].Resolve(NodePath{1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "Chapter One", orig.Data)
	assert.Equal(t, "http://www.w3.org/1999/xhtml", src.Chapters[0].Nodes[1].Attr[0].Value)
	assert.Equal(t, "p{}", string(src.Resources[0].Data))
	assert.Equal(t, "mimetype", src.Entries[0])

	var nilBook *Book
	assert.Nil(t, nilBook.Clone())
}

func TestBookHelpers(t *testing.T) {
	b := &Book{
		Chapters: []*Chapter{sampleChapter()},
		Resources: []*Resource{
			{Name: "OEBPS/nav.xhtml", Properties: "nav scripted"},
			{Name: "OEBPS/toc.ncx", MediaType: "application/x-dtbncx+xml"},
			{Name: "OEBPS/cover.jpg", Properties: "cover-image"},
		},
	}

	assert.Equal(t, 4, b.TextNodeCount())

	_, err := b.Chapter(1)
	assert.Error(t, err)

	r, ok := b.Resource("OEBPS/nav.xhtml")
	require.True(t, ok)
	assert.True(t, r.IsNav())
	r, _ = b.Resource("OEBPS/toc.ncx")
	assert.True(t, r.IsNav())
	r, _ = b.Resource("OEBPS/cover.jpg")
	assert.False(t, r.IsNav())

	el := Element("a", Attrs("href", "x.html", "id", "l1"))
	v, ok := el.GetAttr("id")
	assert.True(t, ok)
	assert.Equal(t, "l1", v)
	assert.True(t, Text(" \t\n").IsBlank())
	assert.False(t, el.IsBlank())
	assert.Equal(t, "Hello world.", sampleChapter().Nodes[1].Children[0].Children[2].TextContent())
}
