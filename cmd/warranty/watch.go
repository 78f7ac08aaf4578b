package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/n8dizzle/Christmas-automations/config"
	"github.com/n8dizzle/Christmas-automations/events"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cfg := config.Load()
	url := cfg.Events.NATSURL
	if url == "" {
		url = nats.DefaultURL
	}

	var (
		subject string
		count   int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print completed lookups published by warrantyd",
		Long: "Subscribes to the lookup events subject and prints one JSON line per\n" +
			"completed lookup until interrupted or --count events were seen.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			nc, err := nats.Connect(url, nats.Name("warranty-watch"))
			if err != nil {
				return fmt.Errorf("connect %s: %w", url, err)
			}
			defer nc.Close()

			received := make(chan events.LookupCompleted, 64)
			sub, err := events.Subscribe(nc, subject, func(_ context.Context, ev events.LookupCompleted) {
				select {
				case received <- ev:
				case <-ctx.Done():
				}
			})
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			defer func() { _ = sub.Unsubscribe() }()
			// Release a handler blocked on received before the connection closes.
			defer stop()
			slog.Info("watching lookups", "url", url, "subject", subject)

			enc := json.NewEncoder(cmd.OutOrStdout())
			seen := 0
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-received:
					if err := enc.Encode(ev); err != nil {
						return err
					}
					seen++
					if count > 0 && seen >= count {
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&url, "nats-url", url, "NATS server URL")
	cmd.Flags().StringVar(&subject, "subject", cfg.Events.Subject, "Subject carrying completed lookups")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many events (0 = run until interrupted)")
	return cmd
}
