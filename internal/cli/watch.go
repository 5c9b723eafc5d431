package cli

import (
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"subtrans/internal/config"
	"subtrans/internal/persistence"
	"subtrans/internal/service"
	"subtrans/pkg/log"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	flags := &translateFlags{}
	var cronExpr string
	var once bool
	var logFile string

	cmd := &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Scan directories on a schedule and translate new subtitles",
		Long: `watch periodically scans the given directories (or WATCH_DIRS) for
recently modified .srt files that do not have a translation yet and
runs each one through the batch pipeline. Files already translated,
recorded as completed, or produced by this tool are skipped.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgOpts := flags.configOptions(cmd)
			if len(args) > 0 {
				cfgOpts = append(cfgOpts, config.WithWatchDirs(args))
			}
			if cmd.Flags().Changed("cron") {
				cfgOpts = append(cfgOpts, config.WithCronExpr(cronExpr))
			}

			cfg, err := config.NewFromEnv(cfgOpts...)
			if err != nil {
				return err
			}
			if len(cfg.Watch.Dirs) == 0 {
				return service.NewError(service.ErrConfig, "no watch directories, pass one or set WATCH_DIRS")
			}
			if cfg.Translate.TargetLanguage == "" {
				return service.NewError(service.ErrConfig, "target language is required")
			}

			if logFile != "" {
				fileLogger, err := log.NewFileLogger(logFile, opts.logLevel())
				if err != nil {
					return service.WrapError(err, service.ErrFileWrite, "failed to open log file")
				}
				defer fileLogger.Close()
				log.SetLogger(fileLogger.Logger)
			}

			var watchOpts []service.WatchOption
			store, err := persistence.NewSQLiteStore(cfg.DBPath())
			if err != nil {
				log.Warn("Run history unavailable: %v", err)
			} else {
				defer store.Close()
				watchOpts = append(watchOpts, service.WithHistory(store))
			}

			runner := cron.New()
			watcher := service.NewWatchService(*cfg, runner, watchOpts...)

			if once {
				return watcher.RunOnce(cmd.Context())
			}

			if err := watcher.Schedule(cmd.Context()); err != nil {
				return err
			}
			log.Info("Watching %s (%s)", strings.Join(cfg.Watch.Dirs, ", "), cfg.Watch.CronExpr)
			runner.Start()

			<-cmd.Context().Done()
			// Let a sweep that is mid-file finish its batch checkpoints.
			<-runner.Stop().Done()
			log.Info("Watch stopped")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&cronExpr, "cron", "", "cron schedule (env WATCH_CRON, default @every 30m)")
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")

	return cmd
}
