package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"referralhub/internal/bootstrap/logging"
	domainreferral "referralhub/internal/domain/referral"
	"referralhub/internal/errs"
	"referralhub/internal/usecase/referral"
)

var referralListCmd = &cobra.Command{
	Use:   "list",
	Short: "List referrals visible to the acting user",
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := cliActor(cmd)
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := svc.Referrals.ListReferrals(ctx, referral.ListReferralsInput{Status: status, Limit: limit, Actor: actor})
		if err != nil {
			logging.Error(ctx, "list referrals failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list referrals")
		}
		return writeReferralTable(cmd.OutOrStdout(), items, time.Now())
	}),
}

var referralStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline counts and fees by status",
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := cliActor(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := svc.Referrals.ListReferrals(ctx, referral.ListReferralsInput{Limit: limit, Actor: actor})
		if err != nil {
			logging.Error(ctx, "list referrals for stats failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list referrals for stats")
		}
		return writePipelineStats(cmd.OutOrStdout(), summarizePipeline(items))
	}),
}

func init() {
	referralCmd.AddCommand(referralListCmd, referralStatsCmd)

	referralListCmd.Flags().String("status", "", "Optional status filter")
	referralListCmd.Flags().Int("limit", 200, "Max referrals to list")
	referralStatsCmd.Flags().Int("limit", 1000, "Max referrals to aggregate")
}

type statusStats struct {
	Status   domainreferral.Status
	Count    int
	FeeCents int64
}

type pipelineStats struct {
	Total       int
	OpenFees    int64
	ByStatus    []statusStats
	Unassigned  int
	WithoutLender int
}

// summarizePipeline counts per status in pipeline order. Open fees exclude
// terminal statuses.
func summarizePipeline(items []domainreferral.Referral) pipelineStats {
	index := make(map[domainreferral.Status]int, len(domainreferral.Statuses))
	out := pipelineStats{ByStatus: make([]statusStats, 0, len(domainreferral.Statuses))}
	for i, status := range domainreferral.Statuses {
		index[status] = i
		out.ByStatus = append(out.ByStatus, statusStats{Status: status})
	}

	for _, item := range items {
		out.Total++
		if i, ok := index[item.Status]; ok {
			out.ByStatus[i].Count++
			out.ByStatus[i].FeeCents += item.ReferralFeeDueCents
		}
		if !item.Status.IsTerminal() {
			out.OpenFees += item.ReferralFeeDueCents
		}
		if item.AssignedAgent.IsEmpty() {
			out.Unassigned++
		}
		if item.Lender.IsEmpty() {
			out.WithoutLender++
		}
	}
	return out
}

func writePipelineStats(out io.Writer, stats pipelineStats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "metric\tvalue"); err != nil {
		return errs.Wrap(err, "write stats header")
	}
	if _, err := fmt.Fprintf(w, "total\t%d\nopen_fees\t%s\nwithout_agent\t%d\nwithout_lender\t%d\n\n",
		stats.Total, formatDollars(stats.OpenFees), stats.Unassigned, stats.WithoutLender); err != nil {
		return errs.Wrap(err, "write stats totals")
	}
	if _, err := fmt.Fprintln(w, "status\tcount\tfees"); err != nil {
		return errs.Wrap(err, "write status header")
	}
	for _, row := range stats.ByStatus {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", row.Status, row.Count, formatDollars(row.FeeCents)); err != nil {
			return errs.Wrap(err, "write status row")
		}
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(err, "flush stats output")
	}
	return nil
}

func writeReferralTable(out io.Writer, items []domainreferral.Referral, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "id\tborrower\tstatus\tdays\tfee_due\tagent\tlender"); err != nil {
		return errs.Wrap(err, "write referral header")
	}
	for _, item := range items {
		if _, err := fmt.Fprintf(
			w,
			"%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			item.ID,
			firstNonBlank(item.BorrowerName(), "-"),
			item.Status,
			domainreferral.DaysInStatus(item.StatusLastUpdated, now),
			formatDollars(item.ReferralFeeDueCents),
			referenceLabel(item.AssignedAgent),
			referenceLabel(item.Lender),
		); err != nil {
			return errs.Wrap(err, "write referral row")
		}
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(err, "flush referral table")
	}
	return nil
}

func referenceLabel(ref domainreferral.Reference[domainreferral.Party]) string {
	if ref.IsEmpty() {
		return "-"
	}
	if p, ok := ref.Expanded(); ok {
		return p.DisplayName()
	}
	return ref.ID()
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
