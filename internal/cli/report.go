package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/go-epub-translator/pkg/book/epub"
	"github.com/nerdneilsfield/go-epub-translator/pkg/checker"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
)

// maxReportRows 表格最多显示的行数，其余只计数
const maxReportRows = 50

// printVerdict 输出带颜色的结论
func printVerdict(w io.Writer, ok bool, msg string) {
	if ok {
		color.New(color.FgGreen, color.Bold).Fprintf(w, "✅ %s\n", msg)
		return
	}
	color.New(color.FgRed, color.Bold).Fprintf(w, "❌ %s\n", msg)
}

func newTable(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(title)
	return tw
}

// renderViolations 以表格输出结构违规
func renderViolations(w io.Writer, violations []checker.Violation) {
	if len(violations) == 0 {
		return
	}
	tw := newTable(w, "Structural Violations")
	tw.AppendHeader(table.Row{"#", "Rule", "Chapter", "Path", "Detail"})
	for i, v := range violations {
		if i == maxReportRows {
			tw.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("... %d more", len(violations)-maxReportRows)})
			break
		}
		tw.AppendRow(table.Row{i + 1, v.Rule, v.Chapter, v.Path.String(), v.Detail})
	}
	tw.Render()
}

// renderBatchErrors 以表格输出最终失败的批次
func renderBatchErrors(w io.Writer, failures []*translation.BatchError) {
	if len(failures) == 0 {
		return
	}
	tw := newTable(w, "Failed Batches")
	tw.AppendHeader(table.Row{"Batch", "Chapters", "Units", "Attempts", "Kind", "Cause"})
	for i, be := range failures {
		if i == maxReportRows {
			tw.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("... %d more", len(failures)-maxReportRows)})
			break
		}
		tw.AppendRow(table.Row{
			be.Batch,
			fmt.Sprintf("%d-%d", be.ChapterFrom, be.ChapterTo),
			fmt.Sprintf("%d-%d", be.UnitFrom, be.UnitTo),
			be.Attempts,
			be.Kind,
			be.Cause,
		})
	}
	tw.Render()
}

func renderRunError(w io.Writer, re *translation.RunError) {
	renderBatchErrors(w, re.Batches)
	renderViolations(w, re.Violations)
}

// renderIssues 以表格输出 inspect 发现的问题
func renderIssues(w io.Writer, issues []epub.Issue) {
	if len(issues) == 0 {
		return
	}
	warn := color.New(color.FgYellow).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	tw := newTable(w, "Issues")
	tw.AppendHeader(table.Row{"Severity", "Entry", "Message"})
	for _, is := range issues {
		sev := warn(is.Severity)
		if is.Severity == epub.SeverityError {
			sev = bad(is.Severity)
		}
		tw.AppendRow(table.Row{sev, is.Entry, is.Message})
	}
	tw.Render()
}
