package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/compliops/internal/models"
)

var (
	alertsSkip  int
	alertsLimit int
)

// alertsCmd represents the alerts command group
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect compliance alerts",
	Long: `Commands for reading the alerts recorded by the watchtower.

Examples:
  # List the first page of alerts
  compliopsctl alerts list

  # Show one alert with its required actions
  compliopsctl alerts get <alert-id>`,
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		page, err := newClient().ListAlerts(ctx, alertsSkip, alertsLimit)
		if err != nil {
			return fmt.Errorf("list alerts: %w", err)
		}
		if GetOutput() == "json" {
			return writeJSON(cmd.OutOrStdout(), page)
		}
		printAlertTable(cmd.OutOrStdout(), page)
		return nil
	},
}

var alertsGetCmd = &cobra.Command{
	Use:   "get <alert-id>",
	Short: "Show one alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		alert, err := newClient().GetAlert(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get alert: %w", err)
		}
		if GetOutput() == "json" {
			return writeJSON(cmd.OutOrStdout(), alert)
		}
		printAlert(cmd.OutOrStdout(), alert)
		return nil
	},
}

func init() {
	alertsListCmd.Flags().IntVar(&alertsSkip, "skip", 0, "number of alerts to skip")
	alertsListCmd.Flags().IntVar(&alertsLimit, "limit", 10, "maximum number of alerts to return")

	alertsCmd.AddCommand(alertsListCmd, alertsGetCmd)
	rootCmd.AddCommand(alertsCmd)
}

func printAlertTable(out io.Writer, page *AlertPage) {
	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No alerts found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tIMPACT\tACTION\tCREATED\tSUMMARY")
	for _, a := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			a.Impact.Level,
			yesNo(a.Impact.ActionRequired),
			a.CreatedAt.Format("2006-01-02 15:04:05"),
			truncate(a.Summary, 60),
		)
	}
	w.Flush()
	fmt.Fprintf(out, "\nShowing %d of %d alert(s)\n", len(page.Items), page.Total)
}

func printAlert(out io.Writer, a *models.Alert) {
	fmt.Fprintf(out, "ID:       %s\n", a.ID)
	fmt.Fprintf(out, "Source:   %s\n", a.Source)
	fmt.Fprintf(out, "Created:  %s\n", a.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Impact:   %s\n", a.Impact.Level)
	fmt.Fprintf(out, "Action:   %s\n", yesNo(a.Impact.ActionRequired))
	fmt.Fprintf(out, "\n%s\n", a.Summary)
	if len(a.Impact.Actions) > 0 {
		fmt.Fprintln(out, "\nRequired actions:")
		for i, action := range a.Impact.Actions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, action)
		}
	}
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
