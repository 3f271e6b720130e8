package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/nerdneilsfield/go-epub-translator/internal/config"
	"github.com/nerdneilsfield/go-epub-translator/internal/langdetect"
	"github.com/nerdneilsfield/go-epub-translator/internal/progress"
	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
	"github.com/nerdneilsfield/go-epub-translator/pkg/book/epub"
	"github.com/nerdneilsfield/go-epub-translator/pkg/lang"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/stats"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// detectSampleChars 自动识别源语言时最多采样的字符数
const detectSampleChars = 4000

type translateOptions struct {
	sourceLang  string
	targetLang  string
	batchSize   int
	maxRetries  int
	concurrency int
	partial     bool
	provider    string
	dryRun      bool
	noProgress  bool
}

func newTranslateCommand(g *globalOptions) *cobra.Command {
	o := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate <input.epub> <output.epub>",
		Short: "翻译一本 EPUB",
		Example: `  epub-translator translate book.epub book.it.epub --target Italian
  epub-translator translate book.epub out.epub --provider compat --batch-size 4
  epub-translator translate book.epub out.epub --dry-run`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.loadConfig()
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()
			o.apply(cmd, cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runTranslate(ctx, cmd, cfg, o, log, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.sourceLang, "source", "s", "", "源语言（auto 表示自动识别）")
	flags.StringVarP(&o.targetLang, "target", "t", "", "目标语言")
	flags.IntVar(&o.batchSize, "batch-size", 0, "每批文本单元数")
	flags.IntVar(&o.maxRetries, "max-retries", 0, "每批最大重试次数")
	flags.IntVar(&o.concurrency, "concurrency", 0, "并发批次数")
	flags.BoolVar(&o.partial, "partial", false, "允许部分失败：失败批次保留原文")
	flags.StringVarP(&o.provider, "provider", "p", "", "翻译后端")
	flags.BoolVar(&o.dryRun, "dry-run", false, "使用 dummy 后端演练，不调用网络")
	flags.BoolVar(&o.noProgress, "no-progress", false, "不显示进度条")
	return cmd
}

// apply 只覆盖命令行上显式设置的值
func (o *translateOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.SourceLang = o.sourceLang
	}
	if flags.Changed("target") {
		cfg.TargetLang = o.targetLang
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = o.batchSize
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = o.maxRetries
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = o.concurrency
	}
	if flags.Changed("partial") {
		cfg.AllOrNothing = !o.partial
	}
	if flags.Changed("provider") {
		cfg.Provider = o.provider
	}
	if o.dryRun {
		cfg.Provider = factory.TypeDummy
	}
}

func runTranslate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, o *translateOptions, log *zap.Logger, input, output string) error {
	rc := cfg.RunOptions()
	// 先校验配置，避免读书或联网后才失败
	if err := rc.Validate(); err != nil {
		return err
	}

	src, err := epub.Read(input)
	if err != nil {
		return err
	}

	if lang.IsAuto(rc.SourceLanguage) {
		detected := detectSource(src, rc.SkipTags)
		if detected == "" {
			return errors.New("无法识别源语言，请使用 --source 指定")
		}
		log.Info("detected source language", zap.String("language", detected))
		rc.SourceLanguage = detected
	}

	var statsManager *stats.Manager
	if cfg.StatsPath != "" {
		statsManager = stats.NewManager(cfg.StatsPath, log)
		if err := statsManager.Load(); err != nil {
			log.Warn("failed to load stats", zap.Error(err))
		}
	}

	opts := cfg.ProviderOptions()
	opts.Stats = statsManager
	opts.Logger = log
	chain, err := factory.Build(nil, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := chain.Close(); err != nil {
			log.Warn("failed to close provider", zap.Error(err))
		}
	}()

	runID := uuid.NewString()
	runOpts := []translation.Option{
		translation.WithLogger(log),
		translation.WithRunID(runID),
	}
	if !o.noProgress {
		runOpts = append(runOpts, translation.WithReporter(progress.New(cmd.ErrOrStderr())))
	}

	start := time.Now()
	out, runErr := translation.TranslateBook(ctx, src, chain, rc, runOpts...)

	if statsManager != nil {
		if err := statsManager.Save(); err != nil {
			log.Warn("failed to save stats", zap.Error(err))
		}
		if cfg.Debug {
			statsManager.Render(cmd.OutOrStdout())
		}
	}

	w := cmd.OutOrStdout()
	var re *translation.RunError
	if errors.As(runErr, &re) {
		renderRunError(w, re)
	}
	if out == nil {
		if runErr == nil {
			runErr = errors.New("translation produced no book")
		}
		printVerdict(w, false, fmt.Sprintf("translation rejected, %s was not written", output))
		return runErr
	}

	if err := epub.Write(out, output); err != nil {
		return err
	}
	if runErr != nil {
		printVerdict(w, false, fmt.Sprintf("partial translation written to %s", output))
		return runErr
	}
	printVerdict(w, true, fmt.Sprintf("%s → %s: %s written in %s (run %s)",
		rc.SourceLanguage, rc.TargetLanguage, output, time.Since(start).Round(time.Millisecond), runID))
	return nil
}

// detectSource 用书中前若干段正文识别源语言
func detectSource(b *book.Book, skipTags []string) string {
	var texts []string
	size := 0
	for u := range translation.Extract(b, translation.WithSkipTags(skipTags...)) {
		texts = append(texts, u.Text)
		size += len(u.Text)
		if size >= detectSampleChars {
			break
		}
	}
	return langdetect.DetectTexts(texts, detectSampleChars)
}
