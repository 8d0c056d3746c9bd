package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"referralhub/internal/bootstrap/logging"
	"referralhub/internal/errs"
	"referralhub/internal/usecase/pipelineboard"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Terminal console commands",
}

var consolePipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Start the referral pipeline board",
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := cliActor(cmd)
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetString("status")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		if err := pipelineboard.Validate(svc.Referrals, actor); err != nil {
			return errs.Wrap(err, "validate pipeline board")
		}
		model := pipelineboard.NewBoardModel(ctx, svc.Referrals, pipelineboard.Options{
			Actor:           actor,
			StatusFilter:    status,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run pipeline board")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.AddCommand(consolePipelineCmd)

	addActorFlags(consoleCmd)
	consolePipelineCmd.Flags().String("status", "", "Optional status filter (e.g. \"Showing Homes\")")
	consolePipelineCmd.Flags().Duration("refresh-interval", 10*time.Second, "Auto refresh interval")
}
