package cli

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"subtrans/internal/progress"
	"subtrans/internal/service"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <subtitle-file>",
		Short: "Show checkpoint progress for a subtitle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			out := cmd.OutOrStdout()

			lock := flock.New(service.LockPath(input))
			if locked, err := lock.TryLock(); err == nil {
				if locked {
					_ = lock.Unlock()
				} else {
					fmt.Fprintf(out, "A run is currently translating %s\n", input)
				}
			}

			record := progress.NewFileStore().Load(input)
			if record == nil {
				fmt.Fprintf(out, "No progress recorded for %s\n", input)
				return nil
			}

			rows := []table.Row{
				{"Source", record.SourcePath},
				{"Target language", record.TargetLang},
				{"Batch size", record.BatchSize},
				{"Batches completed", fmt.Sprintf("%d/%d", record.LastCompletedBatch+1, record.TotalBatches)},
				{"Updated", record.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
			}
			fmt.Fprintln(out, renderTable(table.Row{"Field", "Value"}, rows))
			return nil
		},
	}
}
