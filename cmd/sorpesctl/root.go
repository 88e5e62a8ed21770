package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sorpes/internal/backend"
	"sorpes/internal/cli"
	"sorpes/internal/log"
	"sorpes/internal/services"
)

// app carries what every subcommand shares.
type app struct {
	now    func() time.Time
	dbPath string
	logger *log.Logger

	tracker *services.Tracker
	res     *backend.Result
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sorpesctl",
		Short: "Inspect and maintain the sorpes finance state",
		Long: `sorpesctl works on the same store as the sorpes server: it lists months,
prints totals and statistics, and exports or imports backup files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")

	root.AddCommand(
		newMonthsCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newSwitchCmd(a),
		newDeleteCmd(a),
		newTotalsCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newBackupStatusCmd(a),
		newResetCmd(a),
	)
	return root
}

// open loads the configuration and state. Logs go to stderr so that
// command output stays machine readable.
func (a *app) open(ctx context.Context) error {
	if a.dbPath != "" {
		if err := os.Setenv("SQLITE_DB_PATH", a.dbPath); err != nil {
			return err
		}
	}
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	a.logger = log.New(log.Config{
		Component: log.ComponentCLI,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: log.ParseLevel(cfg.LogLevel)}),
	})

	tracker, res, _, err := cli.NewTracker(ctx, cfg, a.logger, a.now)
	if err != nil {
		return err
	}
	tracker.Start(ctx)
	a.tracker, a.res = tracker, res
	return nil
}

func (a *app) close() error {
	if a.res == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := a.res.Close(ctx)
	a.res, a.tracker = nil, nil
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
