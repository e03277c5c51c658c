package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillet/pkg/agent"
	"github.com/jingkaihe/skillet/pkg/authoring"
	"github.com/jingkaihe/skillet/pkg/config"
	"github.com/jingkaihe/skillet/pkg/llm"
	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/jingkaihe/skillet/pkg/tools"
)

var rootCmd = &cobra.Command{
	Use:   "skillet",
	Short: "LLM-driven skill orchestration agent",
	Long: `Skillet routes free-text queries to documented skills, executes the
tools those skills need, and can author brand-new skills from a plain-English
description without a restart.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger.SetLogLevel(cfg.LogLevel)
		logger.SetLogFormat(cfg.LogFormat)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			runCmd.Run(cmd, args)
			return
		}
		cmd.Help()
		os.Exit(1)
	},
}

// runtime bundles the long-lived pieces a command needs
type runtime struct {
	config  config.Config
	loader  *skills.Loader
	store   *tools.Store
	catalog *tools.Catalog
	agent   *agent.Agent
	creator *authoring.Creator
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load()

	model, err := llm.NewModel(llm.Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		BaseURL:   cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	loader := skills.NewLoader(cfg.SkillsDir)
	store := tools.NewStore(cfg.ToolsDir)
	catalog := tools.NewCatalog(ctx, tools.DefaultBuild(loader, store),
		tools.WithToolTimeout(cfg.ToolTimeout))

	return &runtime{
		config:  cfg,
		loader:  loader,
		store:   store,
		catalog: catalog,
		agent:   agent.New(model, loader, catalog, agent.WithMaxTurns(cfg.MaxTurns)),
		creator: authoring.NewCreator(model, loader, store, catalog),
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	config.Init()

	rootCmd.PersistentFlags().String("provider", "", "decision-model provider (anthropic or openai)")
	rootCmd.PersistentFlags().String("model", "", "decision model to use (overrides config)")
	rootCmd.PersistentFlags().String("skills-dir", "", "directory holding skill definitions")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("skills_dir", rootCmd.PersistentFlags().Lookup("skills-dir"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
