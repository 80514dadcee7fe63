package main

import (
	"fmt"
	"time"

	"yard_parking/internal/config"
	"yard_parking/internal/domain"
	"yard_parking/internal/repository/postgresql"
	"yard_parking/internal/repository/sqlite"

	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Mark the slots of today's reservations Reserved",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			yard := a.yard(nil)
			if date == "" {
				date = yard.Calendar.Today()
			}
			if _, err := time.Parse(domain.DateLayout, date); err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
			n, err := yard.Reconciler.ReconcileToday(cmd.Context(), date)
			fmt.Fprintf(cmd.OutOrStdout(), "%d slots reserved for %s\n", n, date)
			return err
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "calendar date to reconcile (default: today in YARD_TIMEZONE)")
	return cmd
}

func newHealCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heal",
		Short: "Re-derive every slot's status from assignments and reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			yard := a.yard(nil)
			n, err := yard.Healer.Heal(cmd.Context(), yard.Calendar.Today())
			fmt.Fprintf(cmd.OutOrStdout(), "%d slots corrected\n", n)
			return err
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables for the configured SQL store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch cfg.StoreDriver {
			case "sqlite":
				db, err := sqlite.Open(cfg.SQLitePath)
				if err != nil {
					return err
				}
				if sqlDB, err := db.DB(); err == nil {
					defer sqlDB.Close()
				}
			case "postgres":
				db, err := postgresql.NewDB(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := postgresql.Migrate(cmd.Context(), db); err != nil {
					return err
				}
			default:
				fmt.Fprintln(out, "memory store has no schema")
				return nil
			}
			fmt.Fprintf(out, "%s schema up to date\n", cfg.StoreDriver)
			return nil
		},
	}
}
