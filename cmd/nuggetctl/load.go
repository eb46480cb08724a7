package main

import (
	"github.com/nugget-pipeline/internal/app"
	"github.com/nugget-pipeline/internal/loader"
	"github.com/spf13/cobra"
)

func newLoadCommand() *cobra.Command {
	var (
		watch     bool
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "load <dir>",
		Short: "Load idea seed files (*.json) from a directory into the queue",
		Long: `Loads every *.json file in <dir> except TEMPLATE.json. Ideas that already
exist are left alone unless --overwrite is set. With --watch, keeps running
and loads files as they are created or changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			l := loader.New(a.Services.Pipeline, loader.Options{Overwrite: overwrite}, a.Logger())
			summary, err := l.LoadDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := printJSON(summary); err != nil {
				return err
			}

			if !watch {
				return nil
			}
			return l.Watch(cmd.Context(), args[0], func(r loader.FileResult) {
				_ = printJSON(r)
			})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep watching the directory for new or changed files")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Re-enqueue ideas that already exist in a non-terminal state")
	return cmd
}
