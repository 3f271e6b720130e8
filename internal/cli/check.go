package cli

import (
	"fmt"

	"github.com/nerdneilsfield/go-epub-translator/pkg/book/epub"
	"github.com/nerdneilsfield/go-epub-translator/pkg/checker"
	"github.com/spf13/cobra"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <source.epub> <candidate.epub>",
		Short: "校验译本与原书结构是否一致",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := epub.Read(args[0])
			if err != nil {
				return err
			}
			cand, err := epub.Read(args[1])
			if err != nil {
				return err
			}

			verdict := checker.CheckBook(src, cand)
			w := cmd.OutOrStdout()
			renderViolations(w, verdict.Violations)
			if !verdict.OK {
				printVerdict(w, false, fmt.Sprintf("%s is not structurally equivalent to %s", args[1], args[0]))
				return verdict.Err()
			}
			printVerdict(w, true, fmt.Sprintf("%s is structurally equivalent to %s", args[1], args[0]))
			return nil
		},
	}
}
