package epub

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
	"github.com/nerdneilsfield/go-epub-translator/pkg/checker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContainer = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:creator>Jane Doe</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier id="uid">urn:uuid:1234</dc:identifier>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="c1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="nav"/>
    <itemref idref="c1"/>
    <itemref idref="c2"/>
  </spine>
</package>`

const testChapter1 = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Chapter One</title></head>
<body>
  <!-- opening -->
  <h1 class="title">Chapter One</h1>
  <p>Hello <em>world</em> &amp; friends.<br/>Second line.</p>
  <svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><text x="1">Label</text></svg>
  <aside epub:type="footnote">Note</aside>
</body>
</html>`

const testChapter2 = `<html><head></head><body><h2>Two</h2><p>Second chapter.</p></body></html>`

func buildArchive(t *testing.T, entries [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		method := zip.Deflate
		if e[0] == "mimetype" {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e[0], Method: method})
		require.NoError(t, err)
		_, err = w.Write([]byte(e[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testArchive(t *testing.T) []byte {
	return buildArchive(t, [][2]string{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", testContainer},
		{"OEBPS/content.opf", testOPF},
		{"OEBPS/nav.xhtml", `<html><body><nav>toc</nav></body></html>`},
		{"OEBPS/style.css", "p { margin: 0 }"},
		{"OEBPS/text/ch1.xhtml", testChapter1},
		{"OEBPS/text/ch2.xhtml", testChapter2},
	})
}

func TestReadBytes(t *testing.T) {
	b, err := ReadBytes(testArchive(t))
	require.NoError(t, err)

	assert.Equal(t, "Test Book", b.Metadata.Title)
	assert.Equal(t, "Jane Doe", b.Metadata.Creator)
	assert.Equal(t, "en", b.Metadata.Language)
	assert.Equal(t, "en", b.Metadata.OriginalLanguage)
	assert.Equal(t, "OEBPS/content.opf", b.PackagePath)

	require.Len(t, b.Chapters, 2, "nav document is not a chapter")
	assert.Equal(t, "OEBPS/text/ch1.xhtml", b.Chapters[0].Href)
	assert.Equal(t, "Chapter One", b.Chapters[0].Title)
	assert.Equal(t, 1, b.Chapters[1].Index)
	assert.Equal(t, "Two", b.Chapters[1].Title)

	css, ok := b.Resource("OEBPS/style.css")
	require.True(t, ok)
	assert.Equal(t, "text/css", css.MediaType)
	nav, ok := b.Resource("OEBPS/nav.xhtml")
	require.True(t, ok)
	assert.True(t, nav.IsNav())
	assert.Len(t, b.Entries, 7)
}

func TestParseMarkupKeepsNamespacedNames(t *testing.T) {
	nodes, isHTML, err := parseMarkup([]byte(testChapter1))
	require.NoError(t, err)
	assert.False(t, isHTML)

	var svg, aside *book.Node
	book.Walk(nodes, func(n *book.Node, _ book.NodePath) bool {
		switch n.Data {
		case "svg":
			svg = n
		case "aside":
			aside = n
		}
		return true
	})
	require.NotNil(t, svg)
	v, ok := svg.GetAttr("viewBox")
	assert.True(t, ok)
	assert.Equal(t, "0 0 10 10", v)
	require.NotNil(t, aside)
	v, ok = aside.GetAttr("epub:type")
	assert.True(t, ok)
	assert.Equal(t, "footnote", v)
}

func TestMarkupRoundTrip(t *testing.T) {
	nodes, _, err := parseMarkup([]byte(testChapter1))
	require.NoError(t, err)

	again, _, err := parseMarkup(renderMarkup(nodes, false))
	require.NoError(t, err)
	assert.Equal(t, nodes, again)

	out := string(renderMarkup(nodes, false))
	assert.Contains(t, out, "<br/>")
	assert.Contains(t, out, "&amp; friends.")
	assert.Contains(t, out, "<!-- opening -->")
	assert.Contains(t, out, "<!DOCTYPE html>")
}

func TestParseMarkupHTMLFallback(t *testing.T) {
	nodes, isHTML, err := parseMarkup([]byte(`<html><body><p>1 < 2<p>Next</body></html>`))
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
	assert.True(t, isHTML)

	var texts []string
	book.Walk(nodes, func(n *book.Node, _ book.NodePath) bool {
		if n.Type == book.TextNode {
			texts = append(texts, n.Data)
		}
		return true
	})
	assert.Contains(t, texts, "1 < 2")
	assert.Contains(t, texts, "Next")
}

func TestWriteRoundTrip(t *testing.T) {
	src, err := ReadBytes(testArchive(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(src, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.NotEmpty(t, zr.File)
	assert.Equal(t, "mimetype", zr.File[0].Name)
	assert.Equal(t, zip.Store, zr.File[0].Method)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, src.Entries, names)

	got, err := ReadBytes(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, got.Chapters, len(src.Chapters))
	for i := range src.Chapters {
		assert.Equal(t, src.Chapters[i].Nodes, got.Chapters[i].Nodes, "chapter %d", i)
	}
	css, _ := got.Resource("OEBPS/style.css")
	assert.Equal(t, "p { margin: 0 }", string(css.Data))
}

func TestWritePatchesLanguage(t *testing.T) {
	b, err := ReadBytes(testArchive(t))
	require.NoError(t, err)
	b.Metadata.Language = "it"

	var buf bytes.Buffer
	require.NoError(t, WriteTo(b, &buf))

	got, err := ReadBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "it", got.Metadata.Language)
	assert.Equal(t, "Test Book", got.Metadata.Title)
}

func TestPatchLanguageInsertsMissing(t *testing.T) {
	opf := []byte(`<package><metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>T</dc:title></metadata></package>`)
	out := string(patchLanguage(opf, "fr"))
	assert.Contains(t, out, `<dc:language>fr</dc:language><dc:title>`)
}

func TestReadBytesErrors(t *testing.T) {
	_, err := ReadBytes([]byte("not a zip"))
	assert.Error(t, err)

	noOPF := buildArchive(t, [][2]string{{"mimetype", "application/epub+zip"}})
	_, err = ReadBytes(noOPF)
	assert.ErrorIs(t, err, ErrInvalidEPub)

	missing := buildArchive(t, [][2]string{
		{"META-INF/container.xml", testContainer},
		{"OEBPS/content.opf", testOPF},
	})
	_, err = ReadBytes(missing)
	assert.ErrorIs(t, err, ErrInvalidEPub)
}

func TestInspect(t *testing.T) {
	b, err := ReadBytes(testArchive(t))
	require.NoError(t, err)
	assert.Empty(t, Inspect(b))

	b.Chapters[1].Nodes = []*book.Node{book.Element("div", nil, book.Text("loose"))}
	b.Entries = append(b.Entries, "OEBPS/style.css")
	issues := Inspect(b)

	var errs, warns int
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		}
	}
	assert.Equal(t, 1, errs, "missing <html>")
	assert.Equal(t, 2, warns, "missing <body> and duplicated entry")
}

const cdataChapter = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>CDATA</title>
<style type="text/css">/*<![CDATA[*/ p > a { color: red } /*]]>*/</style>
<script type="text/javascript">//<![CDATA[
if (a && b) { run() }
//]]></script>
</head>
<body><p>Body <![CDATA[raw & text]]> tail.</p></body>
</html>`

func TestParseMarkupMergesCDATA(t *testing.T) {
	nodes, isHTML, err := parseMarkup([]byte(cdataChapter))
	require.NoError(t, err)
	assert.False(t, isHTML)

	var style, p *book.Node
	book.Walk(nodes, func(n *book.Node, _ book.NodePath) bool {
		switch n.Data {
		case "style":
			style = n
		case "p":
			p = n
		}
		return true
	})
	require.NotNil(t, style)
	require.Len(t, style.Children, 1)
	assert.Equal(t, "/**/ p > a { color: red } /**/", style.Children[0].Data)
	require.NotNil(t, p)
	require.Len(t, p.Children, 1)
	assert.Equal(t, "Body raw & text tail.", p.Children[0].Data)

	again, _, err := parseMarkup(renderMarkup(nodes, false))
	require.NoError(t, err)
	assert.Equal(t, nodes, again)
}

func TestWriteRoundTripWithCDATA(t *testing.T) {
	data := buildArchive(t, [][2]string{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", testContainer},
		{"OEBPS/content.opf", testOPF},
		{"OEBPS/nav.xhtml", `<html><body><nav>toc</nav></body></html>`},
		{"OEBPS/style.css", "p { margin: 0 }"},
		{"OEBPS/text/ch1.xhtml", cdataChapter},
		{"OEBPS/text/ch2.xhtml", testChapter2},
	})
	src, err := ReadBytes(data)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(src, &buf))
	got, err := ReadBytes(buf.Bytes())
	require.NoError(t, err)

	verdict := checker.CheckBook(src, got)
	assert.True(t, verdict.OK, "%v", verdict.Violations)
}

func TestRenderHTMLChapter(t *testing.T) {
	raw := `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
<html><head><script>if (a && b) { x = 1 < 2 }</script><style>p > a { }</style></head>
<body><p>1 < 2 & more</body></html>`
	nodes, isHTML, err := parseMarkup([]byte(raw))
	require.NoError(t, err)
	require.True(t, isHTML)

	out := string(renderMarkup(nodes, true))
	assert.Contains(t, out, `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">`)
	assert.Contains(t, out, "<script>if (a && b) { x = 1 < 2 }</script>")
	assert.Contains(t, out, "<style>p > a { }</style>")
	assert.Contains(t, out, "1 &lt; 2 &amp; more")

	again, _, err := parseMarkup([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, nodes, again)
}

func TestReadMarksHTMLChapters(t *testing.T) {
	data := buildArchive(t, [][2]string{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", testContainer},
		{"OEBPS/content.opf", testOPF},
		{"OEBPS/nav.xhtml", `<html><body><nav>toc</nav></body></html>`},
		{"OEBPS/style.css", "p { margin: 0 }"},
		{"OEBPS/text/ch1.xhtml", `<html><head><script>if (a < b) {}</script></head><body><p>x</p></body></html>`},
		{"OEBPS/text/ch2.xhtml", testChapter2},
	})
	b, err := ReadBytes(data)
	require.NoError(t, err)
	assert.True(t, b.Chapters[0].HTML)
	assert.False(t, b.Chapters[1].HTML)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(b, &buf))
	assert.Contains(t, chapterEntry(t, buf.Bytes(), "OEBPS/text/ch1.xhtml"), "if (a < b) {}")
}

func chapterEntry(t *testing.T, archive []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	f := findFile(zr, name)
	require.NotNil(t, f)
	data, err := readEntry(f)
	require.NoError(t, err)
	return string(data)
}

func TestWriteFileMode(t *testing.T) {
	b, err := ReadBytes(testArchive(t))
	require.NoError(t, err)

	dir := t.TempDir()
	out := filepath.Join(dir, "out.epub")
	require.NoError(t, Write(b, out))
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	require.NoError(t, os.Chmod(out, 0o600))
	require.NoError(t, Write(b, out))
	info, err = os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "existing file mode is kept")
}
