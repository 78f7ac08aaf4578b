package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/n8dizzle/Christmas-automations/config"
	"github.com/n8dizzle/Christmas-automations/lookup"
	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/spf13/cobra"
)

func newLookupCmd(d deps) *cobra.Command {
	var (
		outputDir string
		headed    bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "lookup <serial> <manufacturer...>",
		Short: "Look up one serial number and print the warranty record as JSON",
		Long: `Drives the manufacturer's lookup page in a local browser and prints the
resulting record. Screenshots and raw text are written to the output directory.

The exit status is non-zero only when the lookup ends in "error".`,
		Example: `  warranty lookup 5434REB2F Trane
  warranty lookup 2419E12345 "Carrier" --headed`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if outputDir != "" {
				cfg.Lookup.OutputDir = outputDir
			}
			if headed {
				cfg.Browser.Headless = false
			}
			cfg.Browser.MaxSessions = 1

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			req := models.LookupRequest{
				SerialNumber: args[0],
				Manufacturer: strings.Join(args[1:], " "),
			}
			rec, err := runLookup(ctx, d, cfg, req)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), rec); err != nil {
				return err
			}
			if rec.LookupStatus == models.StatusError {
				return fmt.Errorf("lookup failed: %s", rec.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for screenshots and raw text (default $WARRANTY_OUTPUT_DIR or ./warranty_output)")
	cmd.Flags().BoolVar(&headed, "headed", false, "Show the browser window")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall lookup timeout")
	return cmd
}

// runLookup starts a browser only when the manufacturer is supported.
func runLookup(ctx context.Context, d deps, cfg *config.Config, req models.LookupRequest) (*models.WarrantyRecord, error) {
	probe := lookup.New(nil, cfg.Lookup)
	if _, ok := probe.Match(req.Manufacturer); !ok {
		return probe.Lookup(ctx, req), nil
	}

	l, err := d.launch(cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer l.Close()

	return lookup.New(l, cfg.Lookup).Lookup(ctx, req), nil
}
