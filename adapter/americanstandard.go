package adapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/n8dizzle/Christmas-automations/artifact"
	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/extract"
	"github.com/n8dizzle/Christmas-automations/models"
)

// AmericanStandardURL is the warranty lookup shared by American Standard
// and Trane.
const AmericanStandardURL = "https://www.americanstandardair.com/resources/warranty-and-registration/lookup/"

// Artifact prefix for raw text and error captures.
const tranePrefix = "trane"

var (
	asInterstitials = Chain{
		Name:    "interstitial",
		Timeout: time.Second,
		Steps: Steps(
			browser.HasText("button", "Next"),
			browser.HasText("button", "Continue"),
			browser.HasText("button", "Close"),
			browser.HasText("button", "I Understand"),
			browser.CSS(".modal button"),
			browser.CSS("[class*='modal'] button:not([disabled])"),
		),
	}
	asCookieBanner = Chain{
		Name:    "cookie banner",
		Timeout: time.Second,
		Steps:   Steps(browser.CSS("#onetrust-accept-btn-handler")),
	}
	asSerialInput = Chain{
		Name:     "serial number input",
		Timeout:  time.Second,
		Required: true,
		Missing:  "could not find serial number input",
		Steps: Steps(
			browser.CSS("#serialNumber"),
			browser.CSS("input[name='serialNumber']"),
			browser.CSS("input[type='text']"),
		),
	}
	asSearch = Chain{
		Name:    "search button",
		Timeout: time.Second,
		Steps: Steps(
			browser.HasText("button", "Search"),
			browser.CSS("button[type='submit']"),
			browser.HasText("button", "Look"),
		),
	}
	asResultsAction = Chain{
		Name:    "print action",
		Timeout: 3 * time.Second,
		Steps: Steps(
			browser.HasText("button", "Print my warranty"),
			browser.HasText("button", "Print"),
			browser.HasText("a", "Print my warranty"),
			browser.HasText("button", "View Warranty"),
			browser.CSS("[class*='print']"),
		),
	}
	asWarrantyError = Chain{
		Name:    "warranty error",
		Timeout: time.Second,
		Steps:   Steps(browser.CSS(".warranty-error")),
	}
)

func init() {
	mustValidate(asInterstitials, asCookieBanner, asSerialInput, asSearch, asResultsAction, asWarrantyError)
}

// AmericanStandard looks up American Standard and Trane equipment. The
// certificate is either rendered inline or opened as a PDF in a new window.
type AmericanStandard struct {
	opts *Options
}

// NewAmericanStandard returns the American Standard / Trane adapter.
func NewAmericanStandard(opts *Options) *AmericanStandard {
	return &AmericanStandard{opts: opts}
}

func (a *AmericanStandard) Name() string { return extract.AmericanStandard }

func (a *AmericanStandard) Tokens() []string { return []string{"trane", "american standard"} }

func (a *AmericanStandard) URL() string { return AmericanStandardURL }

func (a *AmericanStandard) Lookup(ctx context.Context, req models.LookupRequest) *models.WarrantyRecord {
	return run(ctx, a.opts, a.Name(), tranePrefix, req, a.flow)
}

func (a *AmericanStandard) flow(ctx context.Context, page browser.Page, rec *models.WarrantyRecord) error {
	t := a.opts.Timeouts

	err := state(ctx, "navigate", func(ctx context.Context) error {
		if err := page.Navigate(ctx, a.URL(), t.Navigate); err != nil {
			return err
		}
		return settle(ctx, t.PageSettle)
	})
	if err != nil {
		return err
	}

	_ = state(ctx, "dismiss_interstitials", func(ctx context.Context) error {
		if ok, _ := asInterstitials.Run(ctx, page, click); ok {
			_ = settle(ctx, 2*t.ActionSettle)
		}
		_, _ = asCookieBanner.Run(ctx, page, click)
		return nil
	})

	var serialInput browser.Element
	err = state(ctx, "fill_serial", func(ctx context.Context) error {
		_, err := asSerialInput.Run(ctx, page, func(ctx context.Context, el browser.Element) error {
			if err := el.Fill(ctx, rec.SerialNumber); err != nil {
				return err
			}
			serialInput = el
			return nil
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
		ok, err := asSearch.Run(ctx, page, click)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := serialInput.Submit(ctx); err != nil {
			return models.NewLookupError(models.ErrCodeElementNotFound, "could not submit serial number", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = state(ctx, "await_results", func(ctx context.Context) error {
		return settle(ctx, t.AmericanStandardResults)
	})
	if err != nil {
		return err
	}

	return state(ctx, "resolve", func(ctx context.Context) error {
		el, _, err := asResultsAction.Probe(ctx, page)
		switch {
		case err == nil:
			return a.capturePopup(ctx, page, el, rec)
		case errors.Is(err, ErrNoMatch):
			return a.resolveInline(ctx, page, rec)
		default:
			return models.NewLookupError(models.ErrCodeTimeout, "lookup timed out", err)
		}
	})
}

// resolveInline handles results rendered on the lookup page itself.
func (a *AmericanStandard) resolveInline(ctx context.Context, page browser.Page, rec *models.WarrantyRecord) error {
	// Checked before the text markers: "Warranty" is on every lookup page.
	if _, _, err := asWarrantyError.Probe(ctx, page); err == nil {
		rec.LookupStatus = models.StatusNotFound
		rec.Error = "Serial number not found"
		return nil
	}

	text, err := pageText(ctx, page, a.opts.Timeouts.Text)
	if err != nil {
		return models.NewLookupError(models.ErrCodeSiteError, "could not read results page", err)
	}
	if !extract.HasWarrantyMarkers(text) {
		return models.NewLookupError(models.ErrCodeElementNotFound, "could not find 'Print my warranty' button or results", nil)
	}

	rec.LookupStatus = models.StatusSuccess
	rec.WarrantyData = extract.ParseAmericanStandard(text, a.opts.now())

	if png, err := page.Screenshot(ctx, true); err != nil {
		slog.Warn("results screenshot failed", "serial", rec.SerialNumber, "error", err)
	} else if path, err := a.opts.Writer.Save(artifact.ScreenshotName("", rec.SerialNumber), png); err != nil {
		slog.Warn("failed to save results screenshot", "serial", rec.SerialNumber, "error", err)
	} else {
		rec.ScreenshotPath = path
	}

	a.opts.saveRawText(rec, tranePrefix, text)
	a.opts.snapshot(ctx, page, tranePrefix, rec.SerialNumber)
	return nil
}

// capturePopup clicks the print action and captures the warranty document
// from the window it opens. Once the document URL is known the lookup stays
// a success; later failures are reported in the record's error.
func (a *AmericanStandard) capturePopup(ctx context.Context, page browser.Page, trigger browser.Element, rec *models.WarrantyRecord) error {
	t := a.opts.Timeouts

	popup, err := page.ExpectPopup(ctx, t.Popup, func(ctx context.Context) error {
		return trigger.Click(ctx)
	})
	if err != nil {
		if ctx.Err() != nil {
			return models.NewLookupError(models.ErrCodeTimeout, "lookup timed out", err)
		}
		rec.LookupStatus = models.StatusSuccessNoData
		rec.Error = "Warranty found but could not open the document: " + errorMessage(err)
		return nil
	}

	rec.LookupStatus = models.StatusSuccess
	rec.PDFURL = popup.URL()
	slog.Info("warranty document opened", "serial", rec.SerialNumber, "url", rec.PDFURL)

	if err := popup.WaitIdle(ctx, t.Idle); err != nil {
		rec.Error = "Document opened but processing failed: " + errorMessage(err)
		return nil
	}
	if err := settle(ctx, t.PDFSettle); err != nil {
		rec.Error = "Document opened but processing failed: " + errorMessage(err)
		return nil
	}

	if png, err := popup.Screenshot(ctx, false); err != nil {
		slog.Warn("document screenshot failed", "serial", rec.SerialNumber, "error", err)
	} else if path, err := a.opts.Writer.SaveCropped(artifact.ScreenshotName("", rec.SerialNumber), png, a.opts.CropLeft); err != nil {
		slog.Warn("failed to save document screenshot", "serial", rec.SerialNumber, "error", err)
	} else {
		rec.ScreenshotPath = path
	}

	if pdf, err := popup.PDF(ctx); err != nil {
		slog.Debug("pdf snapshot skipped", "serial", rec.SerialNumber, "error", err)
	} else if path, err := a.opts.Writer.SavePDF(artifact.PDFName(rec.SerialNumber), pdf); err != nil {
		slog.Debug("pdf snapshot not saved", "serial", rec.SerialNumber, "error", err)
	} else {
		rec.PDFPath = path
	}

	text, err := pageText(ctx, popup, t.Text)
	if err != nil {
		slog.Warn("document text extraction failed", "serial", rec.SerialNumber, "error", err)
		rec.WarrantyData = &models.WarrantyData{
			Source: "Screenshot saved",
			Note:   "Text extraction failed",
		}
		return nil
	}

	rec.WarrantyData = extract.ParseAmericanStandard(text, a.opts.now())
	a.opts.saveRawText(rec, tranePrefix, text)
	a.opts.snapshot(ctx, popup, tranePrefix, rec.SerialNumber)
	return nil
}
