package translation

import (
	"fmt"

	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
)

// Reassemble 按批次顺序把译文写回克隆书籍中记录的地址。
// 每个地址必须在原书中指向原文相同的文本节点，且只能写入一次；失败批次保留原文。
func Reassemble(source, clone *book.Book, batches []Batch, results []Result) error {
	if len(results) != len(batches) {
		return fmt.Errorf("reassemble: %d batches but %d results", len(batches), len(results))
	}

	written := make(map[string]bool)
	for i, b := range batches {
		res := results[i]
		if res.Batch != b.Index {
			return fmt.Errorf("reassemble: result %d belongs to batch %d", b.Index, res.Batch)
		}
		if res.Failed {
			continue
		}
		if len(res.Texts) != len(b.Units) {
			return fmt.Errorf("reassemble batch %d: %w", b.Index, NewMismatchError(len(b.Units), len(res.Texts)))
		}
		for j, u := range b.Units {
			if err := writeUnit(source, clone, u, res.Texts[j], written); err != nil {
				return fmt.Errorf("reassemble batch %d: %w", b.Index, err)
			}
		}
	}
	return nil
}

func writeUnit(source, clone *book.Book, u TextUnit, text string, written map[string]bool) error {
	key := fmt.Sprintf("%d%s", u.Chapter, u.Path)
	if written[key] {
		return fmt.Errorf("unit %s written twice", u)
	}

	src, err := resolveText(source, u)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if src.Data != u.Text {
		return fmt.Errorf("unit %s: source text changed since extraction", u)
	}
	dst, err := resolveText(clone, u)
	if err != nil {
		return fmt.Errorf("clone: %w", err)
	}
	if dst.Data != u.Text {
		return fmt.Errorf("unit %s: clone does not match source", u)
	}

	dst.Data = text
	written[key] = true
	return nil
}

func resolveText(b *book.Book, u TextUnit) (*book.Node, error) {
	ch, err := b.Chapter(u.Chapter)
	if err != nil {
		return nil, err
	}
	n, err := ch.Resolve(u.Path)
	if err != nil {
		return nil, err
	}
	if n.Type != book.TextNode {
		return nil, fmt.Errorf("unit %s resolves to %s node", u, n.Type)
	}
	return n, nil
}
