package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/usecase/referral"
)

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

var referralCmd = &cobra.Command{
	Use:   "referral",
	Short: "Referral lifecycle commands",
}

var referralStatusCmd = &cobra.Command{
	Use:   "status <referral-id> <status>",
	Short: "Move a referral to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		args := cmd.Flags().Args()

		actor, err := cliActor(cmd)
		if err != nil {
			return err
		}

		input := referral.TransitionStatusInput{
			ReferralID: args[0],
			Status:     args[1],
			Actor:      actor,
		}
		if contractFile, _ := cmd.Flags().GetString("contract"); strings.TrimSpace(contractFile) != "" {
			details, err := readContractDetails(contractFile)
			if err != nil {
				return err
			}
			input.ContractDetails = details
		}

		out, err := svc.Referrals.TransitionStatus(ctx, input)
		if err != nil {
			return errs.Wrap(err, "transition status")
		}
		return renderSnapshot(cmd.OutOrStdout(), out)
	}),
}

var referralAssignAgentCmd = &cobra.Command{
	Use:   "assign-agent <referral-id> <agent-id>",
	Short: "Assign an agent to a referral",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		return runAssign(cmd, svc.Referrals.AssignAgent, "agent")
	}),
}

var referralAssignLenderCmd = &cobra.Command{
	Use:   "assign-lender <referral-id> <lender-id>",
	Short: "Assign a lender to a referral",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		return runAssign(cmd, svc.Referrals.AssignLender, "lender")
	}),
}

var referralNoteCmd = &cobra.Command{
	Use:   "note <referral-id> <content>",
	Short: "Add a note and optionally email it",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		args := cmd.Flags().Args()

		actor, err := cliActor(cmd)
		if err != nil {
			return err
		}
		hideAgent, _ := cmd.Flags().GetBool("hide-from-agent")
		hideMC, _ := cmd.Flags().GetBool("hide-from-mc")
		targets, _ := cmd.Flags().GetStringSlice("email")

		out, err := svc.Referrals.AddNote(ctx, referral.AddNoteInput{
			ReferralID:      args[0],
			Content:         args[1],
			HiddenFromAgent: hideAgent,
			HiddenFromMC:    hideMC,
			EmailTargets:    targets,
			Actor:           actor,
		})
		if err != nil {
			return errs.Wrap(err, "add note")
		}

		w := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(w, "%s %d\n", labelStyle.Render("note"), out.Note.ID); err != nil {
			return errs.Wrap(err, "write note output")
		}
		if out.DeliveryFailed {
			if _, err := fmt.Fprintln(w, warnStyle.Render("delivery failed: "+out.DeliveryFailureReason)); err != nil {
				return errs.Wrap(err, "write note output")
			}
		}
		return nil
	}),
}

var referralInsightsCmd = &cobra.Command{
	Use:   "insights <referral-id>",
	Short: "Show SLA follow-up recommendations",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := cliActor(cmd)
		if err != nil {
			return err
		}
		out, err := svc.Referrals.Insights(ctx, cmd.Flags().Arg(0), actor)
		if err != nil {
			return errs.Wrap(err, "compute insights")
		}
		return renderInsights(cmd.OutOrStdout(), out)
	}),
}

func init() {
	rootCmd.AddCommand(referralCmd)
	referralCmd.AddCommand(referralStatusCmd, referralAssignAgentCmd, referralAssignLenderCmd, referralNoteCmd, referralInsightsCmd)

	addActorFlags(referralCmd)
	referralStatusCmd.Flags().String("contract", "", "JSON file with contract details (required for Under Contract)")
	referralNoteCmd.Flags().Bool("hide-from-agent", false, "Hide the note from agents")
	referralNoteCmd.Flags().Bool("hide-from-mc", false, "Hide the note from mortgage consultants")
	referralNoteCmd.Flags().StringSlice("email", nil, "Email targets (agent, mc, admin)")
}

func addActorFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("as-user", "cli-admin", "Acting user id")
	cmd.PersistentFlags().String("as-role", "admin", "Acting role (admin, manager, viewer, mc, agent)")
}

func cliActor(cmd *cobra.Command) (domainreferral.Actor, error) {
	userID, _ := cmd.Flags().GetString("as-user")
	rawRole, _ := cmd.Flags().GetString("as-role")
	role, err := domainreferral.ParseRole(rawRole)
	if err != nil {
		return domainreferral.Actor{}, errs.Wrap(err, "parse --as-role")
	}
	return domainreferral.Actor{ID: strings.TrimSpace(userID), Role: role}, nil
}

type assignFunc func(ctx context.Context, input referral.AssignInput) (referral.AssignResult, error)

func runAssign(cmd *cobra.Command, assign assignFunc, label string) error {
	ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
	args := cmd.Flags().Args()

	actor, err := cliActor(cmd)
	if err != nil {
		return err
	}
	out, err := assign(ctx, referral.AssignInput{ReferralID: args[0], AssigneeID: args[1], Actor: actor})
	if err != nil {
		return errs.Wrapf(err, "assign %s", label)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", labelStyle.Render("assigned "+label), out.ID, args[1]); err != nil {
		return errs.Wrap(err, "write assign output")
	}
	return nil
}

func readContractDetails(path string) (*domainreferral.ContractDetails, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, "read contract file %s", path)
	}
	var details domainreferral.ContractDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, errs.Wrap(err, "decode contract file")
	}
	return &details, nil
}

func renderSnapshot(w io.Writer, snap referral.StatusSnapshot) error {
	rows := [][2]string{
		{"id", snap.ID},
		{"status", string(snap.Status)},
		{"days in status", fmt.Sprint(snap.DaysInStatus)},
		{"pre-approval", formatDollars(snap.PreApprovalAmountCents)},
		{"contract price", formatDollars(snap.ContractPriceCents)},
		{"referral fee due", formatDollars(snap.ReferralFeeDueCents)},
	}
	if _, err := fmt.Fprintln(w, headerStyle.Render("Referral")); err != nil {
		return errs.Wrap(err, "write snapshot")
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "  %s %s\n", labelStyle.Width(18).Render(row[0]), row[1]); err != nil {
			return errs.Wrap(err, "write snapshot")
		}
	}
	return nil
}

func renderInsights(w io.Writer, out referral.InsightsResult) error {
	header := fmt.Sprintf("Insights for %s (%s, %d days)", out.ReferralID, out.Status, out.DaysInStatus)
	if _, err := fmt.Fprintln(w, headerStyle.Render(header)); err != nil {
		return errs.Wrap(err, "write insights")
	}
	if len(out.Recommendations) == 0 {
		_, err := fmt.Fprintln(w, labelStyle.Render("  on track, nothing to follow up"))
		return errs.Wrap(err, "write insights")
	}
	for _, rec := range out.Recommendations {
		priority := fmt.Sprintf("[%s]", rec.Priority)
		if rec.Priority == domainreferral.PriorityUrgent || rec.Priority == domainreferral.PriorityHigh {
			priority = warnStyle.Render(priority)
		}
		if _, err := fmt.Fprintf(w, "  %s %s\n      %s\n", priority, rec.Title, rec.Message); err != nil {
			return errs.Wrap(err, "write insights")
		}
	}
	return nil
}

func formatDollars(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
