package main

import (
	"context"

	"github.com/nugget-pipeline/internal/app"
	"github.com/nugget-pipeline/internal/models"
	"github.com/spf13/cobra"
)

func newGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run the generation trigger once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), app.Options{Upstreams: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.Config.Pipeline.TriggerTimeout)
			defer cancel()

			result, err := a.Services.Pipeline.RunGeneration(ctx, models.SourceManual)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run the reconciliation trigger once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), app.Options{Upstreams: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.Config.Pipeline.TriggerTimeout)
			defer cancel()

			report, err := a.Services.Pipeline.RunReconciliation(ctx)
			if report != nil {
				if perr := printJSON(report); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}
