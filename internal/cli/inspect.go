package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
	"github.com/nerdneilsfield/go-epub-translator/pkg/book/epub"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	var chapters bool

	cmd := &cobra.Command{
		Use:   "inspect <book.epub>",
		Short: "显示书籍信息与翻译前的结构问题",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := epub.Read(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			renderBookSummary(w, b)
			if chapters {
				renderChapters(w, b)
			}

			issues := epub.Inspect(b)
			renderIssues(w, issues)
			errCount := 0
			for _, is := range issues {
				if is.Severity == epub.SeverityError {
					errCount++
				}
			}
			if errCount > 0 {
				printVerdict(w, false, fmt.Sprintf("%d error(s), %d warning(s)", errCount, len(issues)-errCount))
				return fmt.Errorf("%s has %d structural error(s)", args[0], errCount)
			}
			printVerdict(w, true, fmt.Sprintf("no errors, %d warning(s)", len(issues)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&chapters, "chapters", false, "列出每个章节的文本单元数")
	return cmd
}

func renderBookSummary(w io.Writer, b *book.Book) {
	units, chars := 0, 0
	for u := range translation.Extract(b) {
		units++
		chars += len([]rune(u.Text))
	}

	tw := newTable(w, "Book")
	tw.AppendRows([]table.Row{
		{"Title", b.Metadata.Title},
		{"Creator", b.Metadata.Creator},
		{"Language", b.Metadata.Language},
		{"Identifier", b.Metadata.Identifier},
		{"Package", b.PackagePath},
		{"Chapters", len(b.Chapters)},
		{"Resources", len(b.Resources)},
		{"Text units", units},
		{"Characters", chars},
	})
	tw.Render()
}

func renderChapters(w io.Writer, b *book.Book) {
	tw := newTable(w, "Chapters")
	tw.AppendHeader(table.Row{"#", "Href", "Title", "Units"})
	for _, c := range b.Chapters {
		units := 0
		for range translation.ExtractChapter(c) {
			units++
		}
		tw.AppendRow(table.Row{c.Index, c.Href, c.Title, units})
	}
	tw.Render()
}
