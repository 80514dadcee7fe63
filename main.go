package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "yard",
		Short:        "Yard parking slot allocation",
		Long:         "Assigns trucks to yard slots, tracks reservations and keeps slot status in step with both.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReconcileCmd())
	cmd.AddCommand(newHealCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
