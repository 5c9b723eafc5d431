package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subtrans/internal/config"
	"subtrans/internal/persistence"
	"subtrans/internal/progress"
	"subtrans/internal/service"
)

func newCleanCommand() *cobra.Command {
	var cleanHistory bool

	cmd := &cobra.Command{
		Use:   "clean [subtitle-file]",
		Short: "Remove checkpoint files, optionally the run history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !cleanHistory {
				return service.NewError(service.ErrConfig, "nothing to clean, pass a subtitle file or --history")
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				input := args[0]
				if err := progress.NewFileStore().Clear(input); err != nil {
					return service.WrapError(err, service.ErrFileWrite, fmt.Sprintf("failed to remove progress for %s", input))
				}
				// Stale lock files are left behind by crashed runs.
				if err := os.Remove(service.LockPath(input)); err != nil && !os.IsNotExist(err) {
					return service.WrapError(err, service.ErrFileWrite, fmt.Sprintf("failed to remove lock for %s", input))
				}
				fmt.Fprintf(out, "Removed progress for %s\n", input)
			}

			if cleanHistory {
				cfg, err := config.NewFromEnv()
				if err != nil {
					return err
				}
				store, err := persistence.NewSQLiteStore(cfg.DBPath())
				if err != nil {
					return service.WrapError(err, service.ErrConfig, "failed to open run history")
				}
				defer store.Close()

				removed, err := store.DeleteHistory(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d history rows\n", removed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanHistory, "history", false, "also delete all recorded runs")
	return cmd
}
