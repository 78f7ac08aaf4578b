package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/n8dizzle/Christmas-automations/models"
	"golang.org/x/sync/errgroup"
)

// idleWindow is how long the network must stay quiet to count as idle.
const idleWindow = 500 * time.Millisecond

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tp := p.page.Context(ctx)

	// Registered before Navigate so the event cannot be missed.
	wait := tp.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := tp.Navigate(url); err != nil {
		return categorizeError(err, "navigation to lookup page failed")
	}
	wait()

	if err := ctx.Err(); err != nil {
		return categorizeError(err, "lookup page did not finish loading")
	}
	return nil
}

func (p *rodPage) Find(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tp := p.page.Context(pctx)

	var (
		el  *rod.Element
		err error
	)
	if loc.Text == "" {
		el, err = tp.Element(loc.CSS)
	} else {
		el, err = tp.ElementR(loc.CSS, loc.textPattern())
	}
	if err == nil {
		err = el.WaitVisible()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, categorizeError(ctx.Err(), "lookup canceled")
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return &rodElement{el: el}, nil
}

func (p *rodPage) Text(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := p.page.Context(ctx).Element("body")
	if err != nil {
		return "", categorizeError(err, "page body not available")
	}
	text, err := body.Text()
	if err != nil {
		return "", categorizeError(err, "failed to read page text")
	}
	return text, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

func (p *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	data, err := p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, categorizeError(err, "screenshot failed")
	}
	return data, nil
}

func (p *rodPage) PDF(ctx context.Context) ([]byte, error) {
	r, err := p.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
	})
	if err != nil {
		return nil, categorizeError(err, "print to PDF failed")
	}
	return io.ReadAll(r)
}

func (p *rodPage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := p.page.Context(ictx).WaitRequestIdle(idleWindow, nil, nil, nil)
	wait()

	if err := ictx.Err(); err != nil {
		return categorizeError(err, "page did not reach network idle")
	}
	return nil
}

func (p *rodPage) ExpectPopup(ctx context.Context, timeout time.Duration, trigger func(ctx context.Context) error) (Page, error) {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(wctx)

	// WaitOpen subscribes to target creation immediately; the returned
	// func only blocks.
	waitOpen := p.page.Context(gctx).WaitOpen()

	var popup *rod.Page
	g.Go(func() error {
		var err error
		popup, err = waitOpen()
		return err
	})
	g.Go(func() error {
		return trigger(gctx)
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() == nil && wctx.Err() != nil {
			return nil, models.NewLookupError(models.ErrCodePopup, "warranty document window did not open", err)
		}
		return nil, categorizeError(err, "warranty document window did not open")
	}
	return &rodPage{page: popup.Context(context.Background())}, nil
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Fill(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	if _, err := el.Eval(`() => { this.value = '' }`); err != nil {
		return err
	}
	return el.Input(value)
}

func (e *rodElement) Submit(ctx context.Context) error {
	return e.el.Context(ctx).Type(input.Enter)
}
