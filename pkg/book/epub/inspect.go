package epub

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
)

// Severity 检查问题的严重程度
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue 书籍结构上的一个问题
type Issue struct {
	Severity Severity
	Entry    string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Entry, i.Message)
}

// Inspect 检查书籍中翻译前值得注意的结构问题
func Inspect(b *book.Book) []Issue {
	var issues []Issue

	counts := make(map[string]int)
	for _, name := range b.Entries {
		counts[name]++
	}
	for _, name := range b.Entries {
		if counts[name] > 1 {
			issues = append(issues, Issue{SeverityWarning, name, fmt.Sprintf("entry appears %d times in archive", counts[name])})
			counts[name] = 0
		}
	}

	if len(b.Chapters) == 0 {
		issues = append(issues, Issue{SeverityError, b.PackagePath, "spine has no XHTML chapters"})
	}

	for _, c := range b.Chapters {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(renderMarkup(c.Nodes, c.HTML)))
		if err != nil {
			issues = append(issues, Issue{SeverityError, c.Href, err.Error()})
			continue
		}
		if !hasElement(c.Nodes, "html") {
			issues = append(issues, Issue{SeverityError, c.Href, "missing <html> root element"})
		}
		if !hasElement(c.Nodes, "body") {
			issues = append(issues, Issue{SeverityWarning, c.Href, "missing <body> element"})
		}
		if strings.TrimSpace(doc.Find("body").Text()) == "" {
			issues = append(issues, Issue{SeverityWarning, c.Href, "chapter has no text"})
		}
	}
	return issues
}

func hasElement(nodes []*book.Node, tag string) bool {
	found := false
	book.Walk(nodes, func(n *book.Node, _ book.NodePath) bool {
		if found {
			return false
		}
		if n.Type == book.ElementNode && strings.EqualFold(localName(n.Data), tag) {
			found = true
		}
		return !found
	})
	return found
}
