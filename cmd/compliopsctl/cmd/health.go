package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show server health and gateway mode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		h, err := newClient().Health(ctx)
		if err != nil {
			return fmt.Errorf("health: %w", err)
		}
		if GetOutput() == "json" {
			return writeJSON(cmd.OutOrStdout(), h)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Status:   %s\n", h.Status)
		fmt.Fprintf(cmd.OutOrStdout(), "Mode:     %s\n", h.Mode)
		fmt.Fprintf(cmd.OutOrStdout(), "API key:  %s\n", yesNo(h.APIKeyConfigured))
		fmt.Fprintf(cmd.OutOrStdout(), "Version:  %s\n", h.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(baseContext(cmd), timeout)
}
