package epub

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// voidElements 没有结束标签的 HTML 元素，解析时不入栈，写出时自闭合
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var xmlDeclEncoding = regexp.MustCompile(`encoding\s*=\s*["'][^"']*["']`)

// rawTextElements HTML 语法下内容不转义的元素
var rawTextElements = map[string]bool{
	"script": true, "style": true, "xmp": true, "iframe": true,
	"noembed": true, "noframes": true, "plaintext": true,
}

// parseMarkup 将章节 XHTML 解析为节点序列。
// XML 解码保留前缀、大小写和属性顺序；不是合法 XML 时回退到 HTML 解析，此时 isHTML 为 true。
func parseMarkup(data []byte) (nodes []*book.Node, isHTML bool, err error) {
	data = stripBOM(data)
	nodes, err = parseXHTML(data)
	if err == nil {
		return nodes, false, nil
	}
	nodes, herr := parseHTML(data)
	if herr != nil {
		return nil, false, fmt.Errorf("parse chapter markup: %w", errors.Join(err, herr))
	}
	return nodes, true, nil
}

func parseXHTML(data []byte) ([]*book.Node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	var (
		root  []*book.Node
		stack []*book.Node
	)
	appendNode := func(n *book.Node) {
		if len(stack) == 0 {
			root = append(root, n)
			return
		}
		top := stack[len(stack)-1]
		top.Children = append(top.Children, n)
	}
	// CDATA 与相邻文本在 XML 中是同一段字符数据，合并为一个文本节点
	appendText := func(s string) {
		siblings := root
		if len(stack) > 0 {
			siblings = stack[len(stack)-1].Children
		}
		if k := len(siblings); k > 0 && siblings[k-1].Type == book.TextNode {
			siblings[k-1].Data += s
			return
		}
		appendNode(book.Text(s))
	}

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make([]book.Attribute, 0, len(t.Attr))
			for _, a := range t.Attr {
				attrs = append(attrs, book.Attribute{Key: qualifiedName(a.Name), Value: a.Value})
			}
			n := book.Element(qualifiedName(t.Name), attrs)
			appendNode(n)
			if !voidElements[strings.ToLower(t.Name.Local)] {
				stack = append(stack, n)
			}
		case xml.EndElement:
			name := qualifiedName(t.Name)
			// 从栈顶向下找到匹配的开始标签；找不到说明是孤立结束标签或空元素的合成结束标签
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].Data == name {
					stack = stack[:i]
					break
				}
			}
		case xml.CharData:
			appendText(string(t))
		case xml.Comment:
			appendNode(book.Raw(book.RawComment, string(t)))
		case xml.ProcInst:
			inst := string(t.Inst)
			if t.Target == "xml" {
				// 输出统一为 UTF-8
				inst = xmlDeclEncoding.ReplaceAllString(inst, `encoding="utf-8"`)
			}
			appendNode(book.Raw(book.RawProcInst, strings.TrimSpace(t.Target+" "+inst)))
		case xml.Directive:
			appendNode(book.Raw(book.RawDirective, string(t)))
		}
	}

	if len(root) == 0 {
		return nil, errors.New("empty document")
	}
	return root, nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// parseHTML 使用 x/net/html 解析非 XML 的 HTML 章节
func parseHTML(data []byte) ([]*book.Node, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var convert func(*html.Node) *book.Node
	convert = func(n *html.Node) *book.Node {
		switch n.Type {
		case html.TextNode:
			return book.Text(n.Data)
		case html.CommentNode:
			return book.Raw(book.RawComment, n.Data)
		case html.DoctypeNode:
			return book.Raw(book.RawDirective, doctype(n))
		case html.ElementNode:
			attrs := make([]book.Attribute, 0, len(n.Attr))
			for _, a := range n.Attr {
				key := a.Key
				if a.Namespace != "" {
					key = a.Namespace + ":" + a.Key
				}
				attrs = append(attrs, book.Attribute{Key: key, Value: a.Val})
			}
			el := book.Element(n.Data, attrs)
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if child := convert(c); child != nil {
					el.Children = append(el.Children, child)
				}
			}
			return el
		default:
			return nil
		}
	}

	var nodes []*book.Node
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if n := convert(c); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// doctype 还原 DOCTYPE 声明，保留 PUBLIC / SYSTEM 标识
func doctype(n *html.Node) string {
	var public, system string
	for _, a := range n.Attr {
		switch a.Key {
		case "public":
			public = a.Val
		case "system":
			system = a.Val
		}
	}
	var sb strings.Builder
	sb.WriteString("DOCTYPE ")
	sb.WriteString(n.Data)
	if public != "" {
		fmt.Fprintf(&sb, ` PUBLIC "%s"`, public)
		if system != "" {
			fmt.Fprintf(&sb, ` "%s"`, system)
		}
	} else if system != "" {
		fmt.Fprintf(&sb, ` SYSTEM "%s"`, system)
	}
	return sb.String()
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// renderMarkup 将节点序列序列化为章节标记。
// isHTML 为 true 时按 HTML 语法输出，script、style 等元素的内容原样写出。
func renderMarkup(nodes []*book.Node, isHTML bool) []byte {
	var buf bytes.Buffer
	for _, n := range nodes {
		renderNode(&buf, n, isHTML, false)
	}
	return buf.Bytes()
}

func renderNode(buf *bytes.Buffer, n *book.Node, isHTML, rawText bool) {
	switch n.Type {
	case book.TextNode:
		if rawText {
			buf.WriteString(n.Data)
			return
		}
		textEscaper.WriteString(buf, n.Data)
	case book.RawNode:
		switch n.Raw {
		case book.RawComment:
			buf.WriteString("<!--")
			buf.WriteString(n.Data)
			buf.WriteString("-->")
		case book.RawDirective:
			buf.WriteString("<!")
			buf.WriteString(n.Data)
			buf.WriteString(">")
		case book.RawProcInst:
			buf.WriteString("<?")
			buf.WriteString(n.Data)
			buf.WriteString("?>")
		}
	case book.ElementNode:
		local := strings.ToLower(localName(n.Data))
		buf.WriteByte('<')
		buf.WriteString(n.Data)
		for _, a := range n.Attr {
			buf.WriteByte(' ')
			buf.WriteString(a.Key)
			buf.WriteString(`="`)
			attrEscaper.WriteString(buf, a.Value)
			buf.WriteByte('"')
		}
		if len(n.Children) == 0 && voidElements[local] {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		childRaw := isHTML && rawTextElements[local]
		for _, c := range n.Children {
			renderNode(buf, c, isHTML, childRaw)
		}
		buf.WriteString("</")
		buf.WriteString(n.Data)
		buf.WriteByte('>')
	}
}

func localName(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
