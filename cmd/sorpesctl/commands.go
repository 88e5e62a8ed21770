package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sorpes/internal/core"
	"sorpes/internal/services"
)

// monthArg parses an optional month argument; none means the active month.
func monthArg(args []string) (core.MonthKey, error) {
	if len(args) == 0 {
		return "", nil
	}
	return core.ParseMonthKey(args[0])
}

func newMonthsCmd(a *app) *cobra.Command {
	var year string
	cmd := &cobra.Command{
		Use:   "months",
		Short: "List months, optionally of one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year != "" {
				return printJSON(cmd.OutOrStdout(), a.tracker.MonthsOfYear(year))
			}
			return printJSON(cmd.OutOrStdout(), a.tracker.View())
		},
	}
	cmd.Flags().StringVar(&year, "year", "", "only list months of this year (YYYY)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [YYYY-MM]",
		Short: "Print a month's entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := monthArg(args)
			if err != nil {
				return err
			}
			md, err := a.tracker.Month(key)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), md)
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var copyFrom string
	cmd := &cobra.Command{
		Use:   "create YYYY-MM",
		Short: "Add a month and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := core.ParseMonthKey(args[0])
			if err != nil {
				return err
			}
			var from core.MonthKey
			if copyFrom != "" {
				if from, err = core.ParseMonthKey(copyFrom); err != nil {
					return err
				}
			}
			if err := a.tracker.CreateMonth(cmd.Context(), key, from); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", key, key.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&copyFrom, "copy-from", "", "copy expenses and blocks forward from this month")
	return cmd
}

func newSwitchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch YYYY-MM",
		Short: "Make a month active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := core.ParseMonthKey(args[0])
			if err != nil {
				return err
			}
			if _, err := a.tracker.SwitchMonth(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active month: %s\n", key.Label())
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete YYYY-MM",
		Short: "Remove a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := core.ParseMonthKey(args[0])
			if err != nil {
				return err
			}
			err = a.tracker.DeleteMonth(cmd.Context(), key, yes)
			if errors.Is(err, services.ErrConfirmationRequired) {
				return fmt.Errorf("%s still has entries; rerun with --yes to delete it", key)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", key)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "delete even if the month has entries")
	return cmd
}

func newTotalsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "totals [YYYY-MM]",
		Short: "Print a month's totals and owner split",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := monthArg(args)
			if err != nil {
				return err
			}
			totals, err := a.tracker.Totals(key)
			if err != nil {
				return err
			}
			split, err := a.tracker.OwnerSplit(key)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{"totals": totals, "owners": split})
			}
			if key == "" {
				key = a.tracker.View().ActiveMonth
			}
			return writeTotals(cmd.OutOrStdout(), key, totals, split)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics across every month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := a.tracker.Statistics()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			return writeStatistics(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, data, err := a.tracker.Export(cmd.Context())
			if err != nil {
				return err
			}
			if dir == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			path := filepath.Join(dir, filename)
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", `directory for the backup file, or "-" for stdout`)
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the whole state with a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			if err := a.tracker.Import(cmd.Context(), data); err != nil {
				return err
			}
			view := a.tracker.View()
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d months, active %s\n", len(view.Months), view.ActiveMonth)
			return nil
		},
	}
}

func newBackupStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup-status",
		Short: "Tell whether a new export is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), a.tracker.BackupStatus(cmd.Context()))
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe every month; owners are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every month; rerun with --yes")
			}
			if err := a.tracker.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "State reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
