package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/yleoer/nowplaying/pkg/config"
	"github.com/yleoer/nowplaying/pkg/converter"
	"github.com/yleoer/nowplaying/pkg/extractor"
	"github.com/yleoer/nowplaying/pkg/observer"
)

// commandContext 在子命令之间共享配置和日志器
type commandContext struct {
	sourceFlag    string
	selectorsFlag string

	cfg    *config.Config
	logger *log.Logger
	stdout io.Writer
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{stdout: os.Stdout}

	rootCmd := &cobra.Command{
		Use:           "nowplaying",
		Short:         "Keep a JSON file in sync with the track shown in a now-playing page",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.ensureConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.sourceFlag, "source", "s", "", "Path to the page snapshot (HTML) to observe")
	rootCmd.PersistentFlags().StringVar(&ctx.selectorsFlag, "selectors", "", "TOML file overriding the page selectors")

	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newOnceCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}

// ensureConfig 初始化日志器并加载配置，命令行参数优先于环境变量
func (c *commandContext) ensureConfig() error {
	if c.cfg != nil {
		return nil
	}
	if c.logger == nil {
		c.logger = log.New(os.Stdout, "[NowPlaying] ", log.LstdFlags|log.Lshortfile)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.sourceFlag != "" {
		cfg.SourceFile = c.sourceFlag
	}
	if c.selectorsFlag != "" {
		cfg.SelectorsFile = c.selectorsFlag
	}
	c.cfg = cfg
	c.logger.Printf("Configuration loaded: SourceFile=%s, OutputFile=%s, DBPath=%s, Debounce=%v",
		cfg.SourceFile, cfg.OutputFile, cfg.DBPath, cfg.DebounceInterval)
	return nil
}

// newExtractor 根据配置构建抽取器
func (c *commandContext) newExtractor() (*extractor.Extractor, error) {
	sel, err := extractor.LoadSelectors(c.cfg.SelectorsFile)
	if err != nil {
		return nil, err
	}
	var tc converter.TextConverter
	if c.cfg.ConvertT2S {
		tc, err = converter.NewOpenCCConverter(c.logger)
		if err != nil {
			return nil, err
		}
	}
	return extractor.NewExtractor(sel, tc), nil
}

func (c *commandContext) newSource() (*observer.FileSource, error) {
	return observer.NewFileSource(c.cfg.SourceFile, c.logger)
}
