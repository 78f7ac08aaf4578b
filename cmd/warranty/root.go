package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/config"
	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/n8dizzle/Christmas-automations/sitecheck"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

// deps are the collaborators the commands create. Tests swap them.
type deps struct {
	launch func(cfg config.BrowserConfig) (browser.Launcher, error)
	prober func(timeout time.Duration) prober
	now    func() time.Time
}

type prober interface {
	Check(ctx context.Context, url string) *models.SiteStatus
}

func defaultDeps() deps {
	return deps{
		launch: func(cfg config.BrowserConfig) (browser.Launcher, error) {
			return browser.NewRodLauncher(cfg)
		},
		prober: func(timeout time.Duration) prober {
			return sitecheck.New(timeout)
		},
		now: time.Now,
	}
}

func newRootCmd(d deps) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "warranty",
		Short:         "Look up HVAC equipment warranties on manufacturer sites",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger(cmd.ErrOrStderr(), logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(newLookupCmd(d), newParseCmd(d), newSitesCmd(d), newWatchCmd())
	return root
}

func initLogger(w io.Writer, level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
