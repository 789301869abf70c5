package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/compliops/internal/models"
)

var (
	reportsWait        bool
	reportsWaitTimeout time.Duration
	reportsPoll        time.Duration
)

// reportsCmd represents the reports command group
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Generate and read compliance reports",
	Long: `Commands for generating compliance reports from alerts.

Report generation runs in the background on the server. Use --wait to poll
until the report is completed or failed.

Examples:
  # Start a report and return immediately
  compliopsctl reports generate <alert-id>

  # Start a report and print it once done
  compliopsctl reports generate <alert-id> --wait --wait-timeout 2m

  # Show a report
  compliopsctl reports get <report-id>`,
}

var reportsGenerateCmd = &cobra.Command{
	Use:   "generate <alert-id>",
	Short: "Generate a report for an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		client := newClient()
		res, err := client.GenerateReport(ctx, args[0])
		if err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
		if !reportsWait {
			if GetOutput() == "json" {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report %s is %s\n", res.ReportID, res.Status)
			return nil
		}
		return waitAndPrint(cmd, client, res.ReportID)
	},
}

var reportsGetCmd = &cobra.Command{
	Use:   "get <report-id>",
	Short: "Show a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		if reportsWait {
			return waitAndPrint(cmd, client, args[0])
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()

		report, err := client.GetReport(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
		return printReportOutput(cmd.OutOrStdout(), report)
	},
}

func init() {
	for _, c := range []*cobra.Command{reportsGenerateCmd, reportsGetCmd} {
		c.Flags().BoolVarP(&reportsWait, "wait", "w", false, "poll until the report is completed or failed")
		c.Flags().DurationVar(&reportsWaitTimeout, "wait-timeout", 5*time.Minute, "give up waiting after this long")
		c.Flags().DurationVar(&reportsPoll, "poll-interval", 2*time.Second, "how often to poll while waiting")
	}

	reportsCmd.AddCommand(reportsGenerateCmd, reportsGetCmd)
	rootCmd.AddCommand(reportsCmd)
}

func waitAndPrint(cmd *cobra.Command, client *Client, reportID string) error {
	ctx, cancel := context.WithTimeout(baseContext(cmd), reportsWaitTimeout)
	defer cancel()

	report, err := client.WaitReport(ctx, reportID, reportsPoll)
	if err != nil {
		return fmt.Errorf("wait for report: %w", err)
	}
	if err := printReportOutput(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if report.Status == models.ReportFailed {
		return fmt.Errorf("report %s failed", report.ID)
	}
	return nil
}

func printReportOutput(out io.Writer, r *models.Report) error {
	if GetOutput() == "json" {
		return writeJSON(out, r)
	}
	fmt.Fprintf(out, "ID:       %s\n", r.ID)
	fmt.Fprintf(out, "Alert:    %s\n", r.AlertID)
	fmt.Fprintf(out, "Status:   %s\n", r.Status)
	fmt.Fprintf(out, "Updated:  %s\n", r.UpdatedAt.Format("2006-01-02 15:04:05"))
	if r.Content != "" {
		fmt.Fprintf(out, "\n%s\n", r.Content)
	}
	return nil
}
