package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"subtrans/internal/config"
	"subtrans/internal/llm"
	"subtrans/internal/persistence"
	"subtrans/internal/service"
	"subtrans/internal/translator"
	"subtrans/pkg/log"
)

// rootOptions holds the persistent flags shared by all commands.
type rootOptions struct {
	envFile string
	verbose bool
}

// setup loads the env file and initializes logging. It runs before any
// command so that config loading already sees the .env values.
func (o *rootOptions) setup() error {
	if err := config.LoadEnvFile(o.envFile); err != nil {
		return service.WrapError(err, service.ErrConfig, "failed to load env file")
	}
	log.InitLogger(o.logLevel())
	return nil
}

func (o *rootOptions) logLevel() log.LogLevel {
	if o.verbose {
		return log.LevelDebug
	}
	return log.ParseLevel(os.Getenv("LOG_LEVEL"))
}

// NewRootCommand builds the subtrans command tree. The root command is
// the translate surface itself; inspection and maintenance live in
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	flags := &translateFlags{}
	var restart bool

	rootCmd := &cobra.Command{
		Use:   "subtrans <subtitle-file>",
		Short: "Translate subtitle files in batches through an LLM",
		Long: `subtrans translates SRT subtitle files through any OpenAI-compatible
chat endpoint, a batch of lines per request. Completed batches are
checkpointed next to the input file, so an interrupted or failed run
resumes where it stopped when invoked again with the same arguments.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			cfg, err := config.NewFromEnv(flags.configOptions(cmd)...)
			if err != nil {
				return err
			}
			return runTranslate(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], restart)
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&opts.envFile, "env-file", "", "load this env file instead of ./.env")
	persistent.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	flags.register(rootCmd)
	rootCmd.Flags().BoolVar(&restart, "restart", false, "ignore any checkpoint and translate from the beginning")

	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newWatchCommand(opts))

	return rootCmd
}

func runTranslate(ctx context.Context, out io.Writer, cfg *config.Config, inputPath string, restart bool) error {
	client, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return service.WrapError(err, service.ErrConfig, "failed to create LLM client")
	}

	batchTranslator := translator.NewLLMTranslator(
		client,
		cfg.Translate.SourceLanguage,
		cfg.Translate.TargetLanguage,
		cfg.LLM.WarmupDuration(),
	)

	translatorConfig := service.TranslatorConfig{
		InputPath:      inputPath,
		TargetLanguage: cfg.Translate.TargetLanguage,
		SourceLanguage: cfg.Translate.SourceLanguage,
		BatchSize:      cfg.Translate.BatchSize,
		OutputPath:     cfg.Translate.OutputPath,
		Bilingual:      cfg.Translate.Bilingual,
		Restart:        restart,
	}
	driver, err := service.NewTranslator(translatorConfig, batchTranslator)
	if err != nil {
		return err
	}

	report, runErr := driver.Translate(ctx)
	recordHistory(cfg, translatorConfig, report, runErr)
	if runErr != nil {
		return runErr
	}

	printReport(out, report)
	return nil
}

// recordHistory writes the run outcome to the history store. Uses a
// fresh context so interrupted runs still get recorded, and never fails
// the run itself.
func recordHistory(cfg *config.Config, translatorConfig service.TranslatorConfig, report *service.RunReport, runErr error) {
	store, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		log.Warn("Failed to open run history: %v", err)
		return
	}
	defer store.Close()

	run := service.BuildRunRecord(translatorConfig, report, runErr)
	if err := store.RecordRun(context.Background(), run); err != nil {
		log.Warn("Failed to record run history: %v", err)
	}
}

func printReport(w io.Writer, report *service.RunReport) {
	languages := report.TargetLanguage
	if report.SourceLanguage != "" {
		languages = report.SourceLanguage + " to " + report.TargetLanguage
	}

	fmt.Fprintf(w, "Translation completed: %s\n", report.OutputPath)
	fmt.Fprintf(w, "  %d lines in %d batches (%s), took %s\n",
		report.TotalLines, report.TotalBatches, languages, report.Duration.Round(time.Millisecond))
	if report.ResumedBatches > 0 {
		fmt.Fprintf(w, "  %d batches were reused from the previous run\n", report.ResumedBatches)
	}
}
