// Package browser is the page-navigation capability used by the site
// adapters. The rod implementation drives a shared Chrome process and hands
// out one incognito session per lookup.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/n8dizzle/Christmas-automations/models"
)

// ErrNotFound is returned by Page.Find when no visible element matches
// before the probe timeout.
var ErrNotFound = errors.New("element not found")

// Launcher creates isolated browser sessions.
type Launcher interface {
	// NewSession blocks until a session slot is free or ctx is done.
	NewSession(ctx context.Context) (Session, error)
	Stats() models.SessionStats
	Close() error
}

// Session is an isolated browser context. Cookies and storage never leak
// between sessions. Close is safe to call more than once.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab inside a session.
type Page interface {
	// Navigate loads url and waits for DOMContentLoaded only.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Find returns the first element matching loc once it is visible.
	Find(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)

	// Text returns the rendered text of the document body.
	Text(ctx context.Context, timeout time.Duration) (string, error)

	HTML(ctx context.Context) (string, error)

	// Screenshot captures PNG bytes of the viewport or the full page.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	PDF(ctx context.Context) ([]byte, error)

	// WaitIdle waits until the page has no in-flight requests.
	WaitIdle(ctx context.Context, timeout time.Duration) error

	// ExpectPopup runs trigger while waiting for the page to open a new
	// tab. The wait is armed before trigger runs so a fast popup is never
	// missed.
	ExpectPopup(ctx context.Context, timeout time.Duration, trigger func(ctx context.Context) error) (Page, error)

	URL() string
}

// Element is a located DOM element.
type Element interface {
	Click(ctx context.Context) error

	// Fill clears the field and types value into it.
	Fill(ctx context.Context, value string) error

	// Submit presses Enter in the element.
	Submit(ctx context.Context) error
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
