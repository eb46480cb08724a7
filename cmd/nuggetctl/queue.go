package main

import (
	"fmt"

	"github.com/nugget-pipeline/internal/app"
	"github.com/nugget-pipeline/internal/models"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ideas, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.IdeaStatus(status)
			if filter != "" && !models.ValidIdeaStatuses[filter] {
				return fmt.Errorf("unknown status %q", status)
			}

			a, err := openApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			ideas, err := a.Services.Pipeline.ListIdeas(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(ideas)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only list ideas in this status")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show one idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			idea, err := a.Services.Pipeline.GetIdea(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(idea)
		},
	}
}

func newRequeueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <slug>",
		Short: "Return a failed or stuck idea to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			idea, err := a.Services.Pipeline.Requeue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(idea)
		},
	}
}

func newSkipCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "skip <slug>",
		Short: "Retire an idea without publishing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			idea, err := a.Services.Pipeline.Skip(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(idea)
		},
	}
}
