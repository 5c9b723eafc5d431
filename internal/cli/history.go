package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"subtrans/internal/config"
	"subtrans/internal/persistence"
	"subtrans/internal/service"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent translation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewFromEnv()
			if err != nil {
				return err
			}

			store, err := persistence.NewSQLiteStore(cfg.DBPath())
			if err != nil {
				return service.WrapError(err, service.ErrConfig, "failed to open run history")
			}
			defer store.Close()

			runs, err := store.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([]table.Row, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, table.Row{
					run.CreatedAt.Local().Format("2006-01-02 15:04"),
					run.SourcePath,
					run.TargetLang,
					string(run.Status),
					run.TotalLines,
					run.Duration.Round(time.Second),
				})
			}
			header := table.Row{"When", "Source", "Target", "Status", "Lines", "Duration"}
			fmt.Fprintln(out, renderTable(header, rows, 5, 6))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	return cmd
}
