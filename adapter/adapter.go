// Package adapter drives manufacturer warranty-lookup sites. Each adapter is
// a sequential state machine over one browser page:
//
//	Navigate → DismissInterstitials → FillSerial → Submit → AwaitResults → Resolve → Cleanup
//
// Every exit path closes the session and returns a finalized record.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/n8dizzle/Christmas-automations/artifact"
	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/config"
	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/n8dizzle/Christmas-automations/pagetext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/n8dizzle/Christmas-automations/adapter")

// Adapter looks up warranties on one manufacturer site.
type Adapter interface {
	// Name identifies the adapter in records, logs and artifact names.
	Name() string

	// Tokens are lower-case substrings of a manufacturer name this
	// adapter serves.
	Tokens() []string

	// URL is the lookup page.
	URL() string

	// Lookup never returns a pending record.
	Lookup(ctx context.Context, req models.LookupRequest) *models.WarrantyRecord
}

// Timeouts bound each browser operation. Delays are fixed waits for
// client-side rendering.
type Timeouts struct {
	Navigate time.Duration
	Popup    time.Duration
	Idle     time.Duration
	Text     time.Duration

	PageSettle   time.Duration // after navigation
	ActionSettle time.Duration // after clicks and input
	PDFSettle    time.Duration // blob PDF rendering in the popup

	AmericanStandardResults time.Duration
	CarrierResults          time.Duration
}

// DefaultTimeouts match the pacing the manufacturer sites need.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigate:                30 * time.Second,
		Popup:                   15 * time.Second,
		Idle:                    15 * time.Second,
		Text:                    5 * time.Second,
		PageSettle:              2 * time.Second,
		ActionSettle:            500 * time.Millisecond,
		PDFSettle:               3 * time.Second,
		AmericanStandardResults: 3 * time.Second,
		CarrierResults:          4 * time.Second,
	}
}

// Options are the collaborators shared by all adapters.
type Options struct {
	Launcher browser.Launcher
	Writer   *artifact.Writer
	Timeouts Timeouts

	// CropLeft is cut from popup screenshots to hide the PDF viewer sidebar.
	CropLeft int

	SaveMarkdown     bool
	DebugScreenshots bool

	// Now is the clock used for warranty status and age.
	Now func() time.Time

	markdown *pagetext.Converter
}

// NewOptions builds adapter options from configuration.
func NewOptions(l browser.Launcher, cfg config.LookupConfig) *Options {
	t := DefaultTimeouts()
	t.Navigate = cfg.NavigationTimeout
	t.Popup = cfg.PopupTimeout
	t.Idle = cfg.IdleTimeout
	t.PDFSettle = cfg.PDFSettle
	o := &Options{
		Launcher:         l,
		Writer:           artifact.New(cfg.OutputDir),
		Timeouts:         t,
		CropLeft:         cfg.CropLeft,
		SaveMarkdown:     cfg.SaveMarkdown,
		DebugScreenshots: cfg.DebugScreenshots,
		Now:              time.Now,
	}
	if o.SaveMarkdown {
		o.markdown = pagetext.NewConverter()
	}
	return o
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// flow fills rec from page. A returned error moves rec to error.
type flow func(ctx context.Context, page browser.Page, rec *models.WarrantyRecord) error

// run owns the session lifecycle shared by every adapter: open, recover,
// debug capture on failure, close and finalize.
func run(ctx context.Context, o *Options, name, prefix string, req models.LookupRequest, f flow) (rec *models.WarrantyRecord) {
	start := time.Now()
	rec = models.NewRecord(req.SerialNumber, req.Manufacturer, name)
	log := slog.With("adapter", name, "serial", req.SerialNumber)

	ctx, span := tracer.Start(ctx, "adapter."+name)
	span.SetAttributes(attribute.String("warranty.serial", req.SerialNumber))
	defer span.End()

	sess, err := o.Launcher.NewSession(ctx)
	if err != nil {
		rec.Fail(errorMessage(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, rec.Error)
		rec.Finalize()
		rec.DurationMs = time.Since(start).Milliseconds()
		return rec
	}

	var page browser.Page
	defer func() {
		if r := recover(); r != nil {
			log.Error("adapter panic recovered", "panic", r)
			rec.Fail(fmt.Sprintf("unexpected failure: %v", r))
		}
		if rec.LookupStatus == models.StatusError && page != nil && o.DebugScreenshots {
			rec.DebugScreenshot = o.debugScreenshot(ctx, page, prefix, req.SerialNumber)
		}
		if err := sess.Close(); err != nil {
			log.Warn("failed to close browser session", "error", err)
		}
		rec.Finalize()
		rec.DurationMs = time.Since(start).Milliseconds()

		span.SetAttributes(attribute.String("warranty.status", string(rec.LookupStatus)))
		if rec.LookupStatus == models.StatusError {
			span.SetStatus(codes.Error, rec.Error)
		}
		log.Info("lookup finished", "status", rec.LookupStatus, "duration_ms", rec.DurationMs)
	}()

	page, err = sess.NewPage(ctx)
	if err != nil {
		rec.Fail(errorMessage(err))
		return rec
	}

	if err := f(ctx, page, rec); err != nil {
		span.RecordError(err)
		rec.Fail(errorMessage(err))
	}
	return rec
}

// state runs one named step of a flow inside its own span.
func state(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "state."+name)
	defer span.End()

	slog.Debug("adapter state", "state", name)
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// debugScreenshot captures the page after a failure. It uses a fresh
// deadline because the lookup context may already be done.
func (o *Options) debugScreenshot(ctx context.Context, page browser.Page, prefix, serial string) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	png, err := page.Screenshot(ctx, false)
	if err != nil {
		slog.Debug("debug screenshot failed", "error", err)
		return ""
	}
	path, err := o.Writer.Save(artifact.ErrorScreenshotName(prefix, serial), png)
	if err != nil {
		slog.Warn("failed to save debug screenshot", "error", err)
		return ""
	}
	return path
}

// pageText reads the rendered body text, falling back to parsing the HTML
// when the text call fails.
func pageText(ctx context.Context, page browser.Page, timeout time.Duration) (string, error) {
	text, err := page.Text(ctx, timeout)
	if err == nil {
		return text, nil
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	html, herr := page.HTML(tctx)
	if herr != nil {
		return "", err
	}
	if text, terr := pagetext.VisibleText(html); terr == nil && text != "" {
		slog.Debug("page text recovered from html", "error", err)
		return text, nil
	}
	return "", err
}

// snapshot writes a Markdown rendering of page when enabled.
func (o *Options) snapshot(ctx context.Context, page browser.Page, prefix, serial string) {
	if !o.SaveMarkdown {
		return
	}
	conv := o.markdown
	if conv == nil {
		conv = pagetext.NewConverter()
	}
	html, err := page.HTML(ctx)
	if err != nil {
		slog.Debug("markdown snapshot skipped", "error", err)
		return
	}
	md, err := conv.Markdown(html, page.URL())
	if err != nil {
		slog.Debug("markdown conversion failed", "error", err)
		return
	}
	if _, err := o.Writer.SaveMarkdown(artifact.MarkdownName(prefix, serial), md); err != nil {
		slog.Warn("failed to save markdown snapshot", "error", err)
	}
}

// errorMessage is the human-readable text stored on a failed record.
func errorMessage(err error) string {
	var le *models.LookupError
	if errors.As(err, &le) {
		return le.Human()
	}
	return err.Error()
}

// settle waits for client-side rendering.
func settle(ctx context.Context, d time.Duration) error {
	if err := browser.Sleep(ctx, d); err != nil {
		return models.NewLookupError(models.ErrCodeTimeout, "lookup timed out", err)
	}
	return nil
}

// saveRawText persists the page text next to the screenshots.
func (o *Options) saveRawText(rec *models.WarrantyRecord, prefix, text string) {
	path, err := o.Writer.SaveText(artifact.RawTextName(prefix, rec.SerialNumber), text)
	if err != nil {
		slog.Warn("failed to save raw text", "serial", rec.SerialNumber, "error", err)
		return
	}
	rec.RawTextPath = path
}
