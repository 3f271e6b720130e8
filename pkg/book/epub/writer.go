package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
)

const defaultMimetype = "application/epub+zip"

var (
	dcLanguagePattern = regexp.MustCompile(`(<(?:[A-Za-z0-9_-]+:)?language\b[^>]*>)[^<]*(</(?:[A-Za-z0-9_-]+:)?language>)`)
	metadataOpen      = regexp.MustCompile(`<(?:[A-Za-z0-9_-]+:)?metadata\b[^>]*>`)
)

// outputMode 新文件的权限；覆盖已有文件时沿用原权限
const outputMode os.FileMode = 0o644

// Write 将书写出到文件，先写临时文件再重命名
func Write(b *book.Book, filename string) error {
	mode := outputMode
	if info, err := os.Stat(filename); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, ".epub-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	// CreateTemp 固定使用 0600
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := WriteTo(b, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("write epub %s: %w", filename, err)
	}
	return nil
}

// WriteTo 将书序列化为 EPUB 归档。
// mimetype 以不压缩方式最先写入，其余条目沿用读入时的顺序。
func WriteTo(b *book.Book, w io.Writer) error {
	zw := zip.NewWriter(w)

	contents := make(map[string][]byte, len(b.Chapters)+len(b.Resources))
	var order []string
	add := func(name string, data []byte) {
		if _, ok := contents[name]; !ok {
			order = append(order, name)
		}
		contents[name] = data
	}
	for _, r := range b.Resources {
		add(r.Name, r.Data)
	}
	for _, c := range b.Chapters {
		add(c.Href, renderMarkup(c.Nodes, c.HTML))
	}
	if b.PackagePath != "" && b.Metadata.Language != b.Metadata.OriginalLanguage {
		if opf, ok := contents[b.PackagePath]; ok {
			contents[b.PackagePath] = patchLanguage(opf, b.Metadata.Language)
		}
	}

	mimetype, ok := contents[mimetypePath]
	if !ok {
		mimetype = []byte(defaultMimetype)
	}
	hw, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypePath, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("write mimetype: %w", err)
	}
	if _, err := hw.Write(mimetype); err != nil {
		return fmt.Errorf("write mimetype: %w", err)
	}

	written := map[string]bool{mimetypePath: true}
	writeEntry := func(name string) error {
		data, ok := contents[name]
		if !ok || written[name] {
			return nil
		}
		written[name] = true
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("write entry %s: %w", name, err)
		}
		return nil
	}

	for _, name := range b.Entries {
		if err := writeEntry(name); err != nil {
			return err
		}
	}
	// 不在原始顺序中的条目（新建的书）追加在末尾
	for _, name := range order {
		if err := writeEntry(name); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize epub: %w", err)
	}
	return nil
}

// patchLanguage 改写 OPF 中第一个 dc:language；不存在时插入到 metadata 开头
func patchLanguage(opf []byte, lang string) []byte {
	var esc bytes.Buffer
	textEscaper.WriteString(&esc, lang)
	value := esc.String()

	if loc := dcLanguagePattern.FindSubmatchIndex(opf); loc != nil {
		var out bytes.Buffer
		out.Write(opf[:loc[3]])
		out.WriteString(value)
		out.Write(opf[loc[4]:])
		return out.Bytes()
	}
	if loc := metadataOpen.FindIndex(opf); loc != nil {
		var out bytes.Buffer
		out.Write(opf[:loc[1]])
		out.WriteString("<dc:language>" + value + "</dc:language>")
		out.Write(opf[loc[1]:])
		return out.Bytes()
	}
	return opf
}
