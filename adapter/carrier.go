package adapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/n8dizzle/Christmas-automations/artifact"
	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/extract"
	"github.com/n8dizzle/Christmas-automations/models"
)

// CarrierURL is the Carrier residential warranty lookup.
const CarrierURL = "https://www.carrier.com/residential/en/us/warranty-lookup/"

const carrierPrefix = "carrier"

var (
	carrierCookieBanner = Chain{
		Name:    "cookie banner",
		Timeout: time.Second,
		Steps: Steps(
			browser.CSS("#onetrust-accept-btn-handler"),
			browser.HasText("button", "Accept"),
			browser.HasText("button", "Accept All"),
			browser.CSS("[class*='cookie'] button"),
		),
	}
	carrierSerialInput = Chain{
		Name:     "serial number input",
		Timeout:  5 * time.Second,
		Required: true,
		Missing:  "could not find serial number input (#serialNumber)",
		Steps:    Steps(browser.CSS("#serialNumber")),
	}
	carrierOriginalOwner = Chain{
		Name:     "original purchaser option",
		Required: true,
		Missing:  "could not find original purchaser option",
		Steps: []Step{
			{Locator: browser.CSS("#isOriginal1"), Timeout: 2 * time.Second},
			{Locator: browser.CSS("label[for='isOriginal1']"), Timeout: time.Second},
		},
	}
	carrierSubmit = Chain{
		Name:     "submit button",
		Required: true,
		Missing:  "could not find submit button",
		Steps: []Step{
			{Locator: browser.CSS("#btnSubmit"), Timeout: 2 * time.Second},
			{Locator: browser.CSS("input[type='submit']"), Timeout: time.Second},
			{Locator: browser.HasText("button", "Submit"), Timeout: time.Second},
		},
	}
)

func init() {
	mustValidate(carrierCookieBanner, carrierSerialInput, carrierOriginalOwner, carrierSubmit)
}

// Carrier looks up Carrier family equipment (Carrier, Bryant, Payne,
// Comfortmaker and others). Results render on the lookup page.
type Carrier struct {
	opts *Options
}

// NewCarrier returns the Carrier adapter.
func NewCarrier(opts *Options) *Carrier {
	return &Carrier{opts: opts}
}

func (c *Carrier) Name() string { return extract.Carrier }

func (c *Carrier) Tokens() []string { return []string{"carrier"} }

func (c *Carrier) URL() string { return CarrierURL }

func (c *Carrier) Lookup(ctx context.Context, req models.LookupRequest) *models.WarrantyRecord {
	return run(ctx, c.opts, c.Name(), carrierPrefix, req, c.flow)
}

func (c *Carrier) flow(ctx context.Context, page browser.Page, rec *models.WarrantyRecord) error {
	t := c.opts.Timeouts

	err := state(ctx, "navigate", func(ctx context.Context) error {
		if err := page.Navigate(ctx, c.URL(), t.Navigate); err != nil {
			return err
		}
		return settle(ctx, t.PageSettle)
	})
	if err != nil {
		return err
	}

	_ = state(ctx, "dismiss_interstitials", func(ctx context.Context) error {
		if ok, _ := carrierCookieBanner.Run(ctx, page, click); ok {
			_ = settle(ctx, t.ActionSettle)
		}
		return nil
	})

	err = state(ctx, "fill_serial", func(ctx context.Context) error {
		_, err := carrierSerialInput.Run(ctx, page, func(ctx context.Context, el browser.Element) error {
			return el.Fill(ctx, rec.SerialNumber)
		})
		if err != nil {
			return err
		}
		return settle(ctx, t.ActionSettle)
	})
	if err != nil {
		return err
	}

	err = state(ctx, "submit", func(ctx context.Context) error {
		if _, err := carrierOriginalOwner.Run(ctx, page, click); err != nil {
			return err
		}
		if err := settle(ctx, t.ActionSettle); err != nil {
			return err
		}
		_, err := carrierSubmit.Run(ctx, page, click)
		return err
	})
	if err != nil {
		return err
	}

	err = state(ctx, "await_results", func(ctx context.Context) error {
		return settle(ctx, t.CarrierResults)
	})
	if err != nil {
		return err
	}

	return state(ctx, "resolve", func(ctx context.Context) error {
		return c.resolve(ctx, page, rec)
	})
}

func (c *Carrier) resolve(ctx context.Context, page browser.Page, rec *models.WarrantyRecord) error {
	if png, err := page.Screenshot(ctx, true); err != nil {
		slog.Warn("results screenshot failed", "adapter", c.Name(), "serial", rec.SerialNumber, "error", err)
	} else if path, err := c.opts.Writer.Save(artifact.ScreenshotName(carrierPrefix, rec.SerialNumber), png); err != nil {
		slog.Warn("failed to save results screenshot", "adapter", c.Name(), "serial", rec.SerialNumber, "error", err)
	} else {
		rec.ScreenshotPath = path
	}

	text, err := pageText(ctx, page, c.opts.Timeouts.Text)
	if err != nil {
		return models.NewLookupError(models.ErrCodeSiteError, "could not read results page", err)
	}

	switch extract.ClassifyCarrier(text) {
	case extract.CarrierNotFound:
		rec.LookupStatus = models.StatusNotFound
		rec.Error = "Serial number not found or no warranty on file"
	case extract.CarrierSiteError:
		rec.Fail("Website returned an error")
	default:
		rec.LookupStatus = models.StatusSuccess
		rec.WarrantyData = extract.ParseCarrier(text, c.opts.now())
		c.opts.saveRawText(rec, carrierPrefix, text)
		c.opts.snapshot(ctx, page, carrierPrefix, rec.SerialNumber)
		slog.Debug("carrier results parsed", "serial", rec.SerialNumber, "components", len(rec.WarrantyData.Components))
	}
	return nil
}
