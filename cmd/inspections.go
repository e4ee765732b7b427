package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"labgate/internal/bootstrap"
	"labgate/internal/errs"
	"labgate/internal/usecase/escalation"
)

var inspectionsCmd = &cobra.Command{
	Use:   "inspections",
	Short: "Inspect stored lab inspections and their escalation state",
}

var inspectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inspections",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *escalation.Service) error {
		company, _ := cmd.Flags().GetString("company")
		status, _ := cmd.Flags().GetString("escalation-status")

		items, err := svc.ListInspections(cmd.Context(), escalation.ListFilter{
			Company:          company,
			EscalationStatus: status,
		})
		if err != nil {
			return errs.Wrap(err, "list inspections")
		}

		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "no inspections")
			return nil
		}
		for _, item := range items {
			fmt.Fprintf(
				out,
				"%s  %-10s  lot %-12s  %-4s  %s\n",
				item.InspectionID,
				item.Company,
				item.Lot,
				item.OverallStatus,
				item.EscalationStatus,
			)
		}
		return nil
	}),
}

var inspectionsShowCmd = &cobra.Command{
	Use:   "show <inspection-id>",
	Short: "Show one inspection with its decision log and live action tokens",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *escalation.Service) error {
		detail, err := svc.GetInspection(cmd.Context(), cmd.Flags().Arg(0))
		if err != nil {
			return errs.Wrap(err, "get inspection")
		}

		out := cmd.OutOrStdout()
		inspection := detail.Inspection
		fmt.Fprintf(out, "inspection:        %s\n", inspection.InspectionID)
		fmt.Fprintf(out, "company:           %s\n", inspection.Company)
		fmt.Fprintf(out, "supplier:          %s\n", inspection.Supplier)
		fmt.Fprintf(out, "material:          %s (%s)\n", inspection.Material, inspection.InspectionType)
		fmt.Fprintf(out, "lot:               %s\n", inspection.Lot)
		fmt.Fprintf(out, "inspected at:      %s\n", inspection.InspectedAt)
		fmt.Fprintf(out, "overall status:    %s\n", inspection.OverallStatus)
		fmt.Fprintf(out, "escalation status: %s\n", inspection.EscalationStatus)
		if len(inspection.FailedParameters) > 0 {
			fmt.Fprintf(out, "failed parameters: %s\n", strings.Join(inspection.FailedParameters, ", "))
		}

		if len(detail.Decisions) > 0 {
			fmt.Fprintln(out, "decisions:")
			for _, decision := range detail.Decisions {
				fmt.Fprintf(out, "  %s  level %d  %-7s  by %s\n", decision.DecidedAt, decision.Level, decision.Action, decision.ActorEmail)
			}
		}
		if len(detail.LiveTokens) > 0 {
			fmt.Fprintln(out, "live tokens:")
			for _, token := range detail.LiveTokens {
				fmt.Fprintf(out, "  level %d  %-7s  for %s  expires %s\n", token.Level, token.Action, token.ApproverEmail, token.ExpiresAt)
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(inspectionsCmd)
	inspectionsCmd.AddCommand(inspectionsListCmd)
	inspectionsCmd.AddCommand(inspectionsShowCmd)

	inspectionsListCmd.Flags().String("company", "", "Filter by company code")
	inspectionsListCmd.Flags().String("escalation-status", "", "Filter by escalation status")
}
