package cli

import (
	"fmt"

	"github.com/nerdneilsfield/go-epub-translator/internal/config"
	"github.com/nerdneilsfield/go-epub-translator/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// globalOptions 所有子命令共享的标志
type globalOptions struct {
	configFile string
	debug      bool
}

// loadConfig 加载配置并创建日志记录器
func (g *globalOptions) loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if g.debug {
		cfg.Debug = true
	}
	return cfg, logger.New(cfg.Debug, cfg.LogFormat), nil
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "epub-translator",
		Short: "翻译 EPUB 电子书正文并保证结构不变",
		Long: `epub-translator 提取 EPUB 章节中的可翻译文本，分批交给翻译后端，
再写回原来的位置。写出前会校验译本与原书结构完全一致。

支持的翻译后端:
  - openai: OpenAI 官方 SDK
  - compat: OpenAI 兼容接口（Ollama、DeepSeek、vLLM 等）
  - deepl: DeepL API
  - libretranslate: LibreTranslate（开源）
  - predefined: 仅使用预定义词表
  - raw / dummy: 不调用网络，用于演练`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "配置文件路径（默认 ~/.epub-translator.yaml）")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "启用调试日志")

	rootCmd.AddCommand(
		newTranslateCommand(g),
		newCheckCommand(),
		newInspectCommand(),
		newStatsCommand(g),
		newProvidersCommand(),
	)
	return rootCmd
}
