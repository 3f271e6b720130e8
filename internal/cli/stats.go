package cli

import (
	"fmt"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/stats"
	"github.com/spf13/cobra"
)

// newStatsCommand 查看累计的后端调用统计
func newStatsCommand(g *globalOptions) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "查看翻译后端的调用统计",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.loadConfig()
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()
			if cfg.StatsPath == "" {
				return fmt.Errorf("stats_path 未配置")
			}

			m := stats.NewManager(cfg.StatsPath, log)
			if reset {
				if err := m.Save(); err != nil {
					return err
				}
				printVerdict(cmd.OutOrStdout(), true, "statistics reset")
				return nil
			}
			if err := m.Load(); err != nil {
				return err
			}
			m.Render(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "清空统计")
	return cmd
}
