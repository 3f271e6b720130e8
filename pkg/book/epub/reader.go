// Package epub 读写 EPUB 归档，并在 book.Book 与 zip 条目之间转换
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
)

// ErrInvalidEPub 归档结构不是合法的 EPUB
var ErrInvalidEPub = errors.New("invalid epub")

const (
	containerPath = "META-INF/container.xml"
	mimetypePath  = "mimetype"

	// maxEntrySize 单个条目解压后的上限
	maxEntrySize int64 = 256 * 1024 * 1024
)

type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest struct {
		Items []opfItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type opfMetadata struct {
	Titles      []string `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators    []string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages   []string `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifiers []string `xml:"http://purl.org/dc/elements/1.1/ identifier"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// Read 从文件读取 EPUB
func Read(filename string) (*book.Book, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read epub %s: %w", filename, err)
	}
	b, err := ReadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("read epub %s: %w", filename, err)
	}
	return b, nil
}

// ReadBytes 从内存中的归档读取 EPUB
func ReadBytes(data []byte) (*book.Book, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	opfPath, err := findPackage(zr)
	if err != nil {
		return nil, err
	}
	opfFile := findFile(zr, opfPath)
	if opfFile == nil {
		return nil, fmt.Errorf("package document %s not found: %w", opfPath, ErrInvalidEPub)
	}
	opfData, err := readEntry(opfFile)
	if err != nil {
		return nil, err
	}
	var pkg opfPackage
	if err := xml.Unmarshal(stripBOM(opfData), &pkg); err != nil {
		return nil, fmt.Errorf("parse package document: %w", err)
	}

	b := &book.Book{
		Metadata: book.Metadata{
			Title:      first(pkg.Metadata.Titles),
			Creator:    first(pkg.Metadata.Creators),
			Language:   first(pkg.Metadata.Languages),
			Identifier: first(pkg.Metadata.Identifiers),
		},
		PackagePath: opfFile.Name,
	}
	b.Metadata.OriginalLanguage = b.Metadata.Language

	// manifest 以归档路径索引
	items := make(map[string]opfItem, len(pkg.Manifest.Items))
	byName := make(map[string]opfItem, len(pkg.Manifest.Items))
	for _, it := range pkg.Manifest.Items {
		items[it.ID] = it
		if name := resolvePath(opfFile.Name, it.Href); name != "" {
			byName[name] = it
		}
	}

	chapterNames := make(map[string]bool)
	for _, ref := range pkg.Spine.ItemRefs {
		it, ok := items[ref.IDRef]
		if !ok || !isChapterType(it.MediaType) || hasProperty(it.Properties, "nav") {
			continue
		}
		name := resolvePath(opfFile.Name, it.Href)
		if name == "" || chapterNames[name] {
			continue
		}
		f := findFile(zr, name)
		if f == nil {
			return nil, fmt.Errorf("spine item %q (%s) missing from archive: %w", it.ID, name, ErrInvalidEPub)
		}
		raw, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		nodes, isHTML, err := parseMarkup(raw)
		if err != nil {
			return nil, fmt.Errorf("chapter %s: %w", f.Name, err)
		}
		chapterNames[f.Name] = true
		b.Chapters = append(b.Chapters, &book.Chapter{
			Index:     len(b.Chapters),
			ID:        it.ID,
			Href:      f.Name,
			MediaType: it.MediaType,
			Title:     chapterTitle(raw),
			Nodes:     nodes,
			HTML:      isHTML,
		})
	}

	seen := make(map[string]bool)
	for _, f := range zr.File {
		b.Entries = append(b.Entries, f.Name)
		if chapterNames[f.Name] || seen[f.Name] || strings.HasSuffix(f.Name, "/") {
			continue
		}
		seen[f.Name] = true
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		r := &book.Resource{Name: f.Name, Data: data}
		if it, ok := byName[f.Name]; ok {
			r.MediaType = it.MediaType
			r.Properties = it.Properties
		}
		b.Resources = append(b.Resources, r)
	}

	return b, nil
}

func findPackage(zr *zip.Reader) (string, error) {
	if f := findFile(zr, containerPath); f != nil {
		data, err := readEntry(f)
		if err != nil {
			return "", err
		}
		var c containerXML
		if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
			return "", fmt.Errorf("parse container.xml: %w", err)
		}
		for _, rf := range c.RootFiles {
			if p := strings.TrimSpace(rf.FullPath); p != "" {
				return p, nil
			}
		}
		return "", fmt.Errorf("container.xml has no rootfile: %w", ErrInvalidEPub)
	}
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("no package document in archive: %w", ErrInvalidEPub)
}

// findFile 先精确匹配，再忽略大小写匹配
func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("unsafe entry path %q: %w", f.Name, ErrInvalidEPub)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxEntrySize {
		return nil, fmt.Errorf("entry %s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return data, nil
}

// resolvePath 将 OPF 内的相对 href 解析为归档路径，越出根目录时返回空串
func resolvePath(base, href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if href == "" || strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	p := path.Clean(path.Join(path.Dir(base), href))
	if !isSafePath(p) {
		return ""
	}
	return p
}

func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	return !strings.HasPrefix(cleaned, "/") && cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

func isChapterType(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/xhtml+xml", "text/html":
		return true
	}
	return false
}

func chapterTitle(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1,h2,h3").First().Text())
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

func hasProperty(props, want string) bool {
	for _, p := range strings.Fields(props) {
		if p == want {
			return true
		}
	}
	return false
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
