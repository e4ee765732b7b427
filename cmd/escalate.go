package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"labgate/internal/bootstrap"
	"labgate/internal/bootstrap/logging"
	"labgate/internal/errs"
	"labgate/internal/usecase/escalation"
)

// escalateCmd is the operator-side twin of POST /escalation/resend.
var escalateCmd = &cobra.Command{
	Use:   "escalate <inspection-id>",
	Short: "Re-send the pending escalation email for an inspection",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *escalation.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		out, err := svc.Resend(ctx, escalation.ResendInput{InspectionID: cmd.Flags().Arg(0)})
		if err != nil {
			logging.Error(ctx, "manual escalation failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "resend escalation")
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "escalation level %d re-sent to %s (status: %s)\n", out.Level, out.Recipient, out.EscalationStatus)
		if out.Warning != "" {
			fmt.Fprintf(w, "warning: %s\n", out.Warning)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(escalateCmd)
}
