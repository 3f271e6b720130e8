package cli

import (
	"fmt"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/factory"
	"github.com/spf13/cobra"
)

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "列出支持的翻译后端",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "支持的翻译后端:")
			for _, name := range factory.NewRegistry().List() {
				fmt.Fprintf(w, "  - %s\n", name)
			}
			fmt.Fprintf(w, "  - %s\n", factory.TypePredefined)
		},
	}
}
