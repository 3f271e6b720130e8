// Package checker 比较原书与译文书籍的结构，判定译文能否被接受
package checker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
)

// ErrStructuralViolation 译文书籍结构与原书不一致
var ErrStructuralViolation = errors.New("structural violation")

// Rule 违规规则名
type Rule string

const (
	RuleChapterCount    Rule = "chapter-count"
	RuleChapterIdentity Rule = "chapter-identity"
	RuleMissingChapter  Rule = "missing-chapter"
	RuleExtraChapter    Rule = "extra-chapter"
	RuleTag             Rule = "tag"
	RuleAttributes      Rule = "attributes"
	RuleChildCount      Rule = "child-count"
	RuleNodeKind        Rule = "node-kind"
	RuleRawNode         Rule = "raw-node"
	RuleDroppedText     Rule = "dropped-text"
	RuleResources       Rule = "resources"
)

// Violation 一处结构违规；Chapter 为 -1 表示书籍级别
type Violation struct {
	Rule    Rule
	Chapter int
	Path    book.NodePath
	Detail  string
}

func (v Violation) String() string {
	if v.Chapter < 0 {
		return fmt.Sprintf("[%s] %s", v.Rule, v.Detail)
	}
	return fmt.Sprintf("[%s] chapter %d %s: %s", v.Rule, v.Chapter, v.Path, v.Detail)
}

// Verdict 检查结论
type Verdict struct {
	OK         bool
	Violations []Violation
}

// Err 未通过时返回 *ViolationError
func (v Verdict) Err() error {
	if v.OK {
		return nil
	}
	return &ViolationError{Violations: v.Violations}
}

// ViolationError 结构检查失败
type ViolationError struct {
	Violations []Violation
}

func (e *ViolationError) Error() string {
	const limit = 5
	parts := make([]string, 0, limit)
	for i, v := range e.Violations {
		if i == limit {
			parts = append(parts, fmt.Sprintf("and %d more", len(e.Violations)-limit))
			break
		}
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %s", ErrStructuralViolation, strings.Join(parts, "; "))
}

func (e *ViolationError) Unwrap() error {
	return ErrStructuralViolation
}

// CheckBook 验证 candidate 与 source 结构等价：章节数与顺序、元素骨架（标签、属性、子节点数与顺序）、
// 原非空文本仍非空、没有新增章节或元素、资源条目一致。文本内容的差异被忽略。
func CheckBook(source, candidate *book.Book) Verdict {
	var c collector
	if source == nil || candidate == nil {
		c.add(RuleChapterCount, -1, nil, "source and candidate books are required")
		return c.verdict()
	}

	if len(source.Chapters) != len(candidate.Chapters) {
		c.add(RuleChapterCount, -1, nil, fmt.Sprintf("source has %d chapters, candidate has %d",
			len(source.Chapters), len(candidate.Chapters)))
	}
	for i, src := range source.Chapters {
		if i >= len(candidate.Chapters) {
			c.add(RuleMissingChapter, i, nil, fmt.Sprintf("chapter %d (%s) is missing from candidate", i, src.Href))
			continue
		}
		c.chapter(i, src, candidate.Chapters[i])
	}
	for i := len(source.Chapters); i < len(candidate.Chapters); i++ {
		c.add(RuleExtraChapter, i, nil, fmt.Sprintf("chapter %d (%s) does not exist in source", i, candidate.Chapters[i].Href))
	}

	c.resources(source, candidate)
	return c.verdict()
}

// CheckChapter 只比较一个章节
func CheckChapter(index int, source, candidate *book.Chapter) []Violation {
	var c collector
	c.chapter(index, source, candidate)
	return c.violations
}

type collector struct {
	violations []Violation
}

func (c *collector) add(rule Rule, chapter int, path book.NodePath, detail string) {
	c.violations = append(c.violations, Violation{Rule: rule, Chapter: chapter, Path: path, Detail: detail})
}

func (c *collector) verdict() Verdict {
	return Verdict{OK: len(c.violations) == 0, Violations: c.violations}
}

func (c *collector) chapter(i int, src, cand *book.Chapter) {
	if src.Href != cand.Href {
		c.add(RuleChapterIdentity, i, nil, fmt.Sprintf("expected %s, got %s", src.Href, cand.Href))
	}
	c.children(i, book.NodePath{}, src.Nodes, cand.Nodes)
}

func (c *collector) children(ci int, parent book.NodePath, src, cand []*book.Node) {
	if len(src) != len(cand) {
		c.add(RuleChildCount, ci, parent, fmt.Sprintf("expected %d children, got %d", len(src), len(cand)))
	}
	n := min(len(src), len(cand))
	for i := 0; i < n; i++ {
		c.node(ci, parent.Child(i), src[i], cand[i])
	}
}

func (c *collector) node(ci int, p book.NodePath, src, cand *book.Node) {
	if src.Type != cand.Type {
		c.add(RuleNodeKind, ci, p, fmt.Sprintf("expected %s node, got %s", src.Type, cand.Type))
		return
	}
	switch src.Type {
	case book.TextNode:
		if !src.IsBlank() && cand.IsBlank() {
			c.add(RuleDroppedText, ci, p, fmt.Sprintf("text %q became blank", snippet(src.Data)))
		}
	case book.RawNode:
		if src.Raw != cand.Raw || src.Data != cand.Data {
			c.add(RuleRawNode, ci, p, fmt.Sprintf("expected %q, got %q", snippet(src.Data), snippet(cand.Data)))
		}
	case book.ElementNode:
		if src.Data != cand.Data {
			c.add(RuleTag, ci, p, fmt.Sprintf("expected <%s>, got <%s>", src.Data, cand.Data))
			return
		}
		if d := diffAttributes(src.Attr, cand.Attr); d != "" {
			c.add(RuleAttributes, ci, p, fmt.Sprintf("<%s> %s", src.Data, d))
		}
		c.children(ci, p, src.Children, cand.Children)
	}
}

// diffAttributes 比较属性集合（键与值），忽略顺序
func diffAttributes(src, cand []book.Attribute) string {
	want := make(map[string]string, len(src))
	for _, a := range src {
		want[a.Key] = a.Value
	}
	got := make(map[string]string, len(cand))
	for _, a := range cand {
		got[a.Key] = a.Value
	}
	var diffs []string
	for _, a := range src {
		v, ok := got[a.Key]
		switch {
		case !ok:
			diffs = append(diffs, fmt.Sprintf("missing %s", a.Key))
		case v != a.Value:
			diffs = append(diffs, fmt.Sprintf("%s changed from %q to %q", a.Key, a.Value, v))
		}
	}
	for _, a := range cand {
		if _, ok := want[a.Key]; !ok {
			diffs = append(diffs, fmt.Sprintf("unexpected %s", a.Key))
		}
	}
	return strings.Join(diffs, ", ")
}

func (c *collector) resources(source, candidate *book.Book) {
	src := resourceNames(source)
	cand := resourceNames(candidate)
	if len(src) != len(cand) {
		c.add(RuleResources, -1, nil, fmt.Sprintf("source has %d resources, candidate has %d", len(src), len(cand)))
	}
	for _, r := range source.Resources {
		if !cand[r.Name] {
			c.add(RuleResources, -1, nil, fmt.Sprintf("resource %s is missing from candidate", r.Name))
		}
	}
	for _, r := range candidate.Resources {
		if !src[r.Name] {
			c.add(RuleResources, -1, nil, fmt.Sprintf("resource %s does not exist in source", r.Name))
		}
	}

	srcNav, candNav := navNames(source), navNames(candidate)
	if strings.Join(srcNav, ",") != strings.Join(candNav, ",") {
		c.add(RuleResources, -1, nil, fmt.Sprintf("navigation files differ: %v vs %v", srcNav, candNav))
	}
}

func resourceNames(b *book.Book) map[string]bool {
	names := make(map[string]bool, len(b.Resources))
	for _, r := range b.Resources {
		names[r.Name] = true
	}
	return names
}

func navNames(b *book.Book) []string {
	var names []string
	for _, r := range b.Resources {
		if r.IsNav() {
			names = append(names, r.Name)
		}
	}
	return names
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > 40 {
		return string(r[:40]) + "..."
	}
	return s
}
