package main

import (
	"fmt"
	"io"
	"os"

	"github.com/n8dizzle/Christmas-automations/extract"
	"github.com/spf13/cobra"
)

func newParseCmd(d deps) *cobra.Command {
	var site string

	cmd := &cobra.Command{
		Use:   "parse <raw-text-file|->",
		Short: "Parse a saved raw text dump into warranty data",
		Long: `Re-runs the text extractor over a raw text file written by an earlier
lookup (for example trane_raw_<serial>.txt) without opening a browser.`,
		Example: `  warranty parse warranty_output/trane_raw_5434REB2F.txt --site trane
  pbpaste | warranty parse - --site carrier`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read raw text: %w", err)
			}

			data, err := extract.Parse(site, string(raw), d.now())
			if err != nil {
				return fmt.Errorf("%w: use american_standard, trane or carrier", err)
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}

	cmd.Flags().StringVarP(&site, "site", "s", "", "Site or manufacturer the text came from (required)")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}
