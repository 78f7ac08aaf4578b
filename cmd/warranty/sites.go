package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/n8dizzle/Christmas-automations/config"
	"github.com/n8dizzle/Christmas-automations/lookup"
	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newSitesCmd(d deps) *cobra.Command {
	var (
		probe   bool
		asJSON  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List supported manufacturer sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			adapters := lookup.Adapters(nil, cfg.Lookup)

			sites := make([]models.SiteInfo, len(adapters))
			for i, a := range adapters {
				sites[i] = models.SiteInfo{Adapter: a.Name(), Tokens: a.Tokens(), URL: a.URL()}
			}

			if probe {
				p := d.prober(timeout)
				var g errgroup.Group
				for i := range sites {
					g.Go(func() error {
						sites[i].Reachable = p.Check(cmd.Context(), sites[i].URL)
						return nil
					})
				}
				_ = g.Wait()
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), models.SitesResponse{Sites: sites})
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ADAPTER\tMATCHES\tURL\tSTATUS")
			for _, s := range sites {
				fmt.Fprintf(tw, "%s\t%v\t%s\t%s\n", s.Adapter, s.Tokens, s.URL, siteState(s.Reachable))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Fetch each lookup page to check it is reachable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Probe timeout per site")
	return cmd
}

func siteState(st *models.SiteStatus) string {
	switch {
	case st == nil:
		return "-"
	case st.OK:
		return fmt.Sprintf("ok %d (%dms)", st.StatusCode, st.LatencyMs)
	default:
		return "unreachable: " + st.Error
	}
}
