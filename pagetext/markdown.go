package pagetext

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Consent banners and overlays that clutter result snapshots.
var snapshotNoise = []string{
	"#onetrust-consent-sdk",
	"[class*='cookie']",
	"[id*='cookie']",
	"[class*='modal-backdrop']",
}

// Converter renders result pages as Markdown. It is safe for concurrent use.
type Converter struct {
	conv *converter.Converter
}

// NewConverter builds a converter with table support, since warranty
// coverage is usually laid out as a table.
func NewConverter() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Markdown converts a captured page to Markdown. pageURL resolves relative
// links.
func (c *Converter) Markdown(rawHTML, pageURL string) (string, error) {
	cleaned := StripSelectors(rawHTML, snapshotNoise)
	return c.conv.ConvertString(cleaned, converter.WithDomain(pageURL))
}
