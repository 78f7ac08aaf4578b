package lookup

import (
	"github.com/n8dizzle/Christmas-automations/adapter"
	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/config"
)

// Adapters builds every supported site adapter over one launcher, in match
// order. New manufacturers are registered here.
func Adapters(l browser.Launcher, cfg config.LookupConfig) []adapter.Adapter {
	opts := adapter.NewOptions(l, cfg)
	return []adapter.Adapter{
		adapter.NewAmericanStandard(opts),
		adapter.NewCarrier(opts),
	}
}

// New builds a Dispatcher over all supported adapters. The configured site
// interval is applied before opts.
func New(l browser.Launcher, cfg config.LookupConfig, opts ...Option) *Dispatcher {
	opts = append([]Option{WithSiteInterval(cfg.SiteInterval)}, opts...)
	return NewDispatcher(Adapters(l, cfg), opts...)
}
