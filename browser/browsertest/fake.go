// Package browsertest provides an in-memory browser for adapter and
// dispatcher tests. Pages are scripted by selector; nothing talks to Chrome.
package browsertest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/models"
)

// Launcher hands out fake sessions and records them.
type Launcher struct {
	// NewPage builds the page of each new session. An empty Page is used
	// when nil.
	NewPage func() *Page

	// SessionErr fails every NewSession call.
	SessionErr error

	mu       sync.Mutex
	sessions []*Session
}

func (l *Launcher) NewSession(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.SessionErr != nil {
		return nil, l.SessionErr
	}
	page := &Page{}
	if l.NewPage != nil {
		page = l.NewPage()
	}
	s := &Session{page: page}

	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s, nil
}

// Sessions returns every session created so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// Navigations returns every URL navigated to across all sessions.
func (l *Launcher) Navigations() []string {
	var urls []string
	for _, s := range l.Sessions() {
		urls = append(urls, s.page.Navigations()...)
	}
	return urls
}

func (l *Launcher) Stats() models.SessionStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	active := 0
	for _, s := range l.sessions {
		if !s.Closed() {
			active++
		}
	}
	return models.SessionStats{
		MaxSessions:    len(l.sessions),
		ActiveSessions: active,
		TotalSessions:  int64(len(l.sessions)),
	}
}

func (l *Launcher) Close() error { return nil }

// Session is a fake incognito context with a single page.
type Session struct {
	page *Page

	mu     sync.Mutex
	closed int
}

// Page returns the scripted page of this session.
func (s *Session) Page() *Page { return s.page }

func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	if s.Closed() {
		return nil, errors.New("session closed")
	}
	return s.page, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

// Closed reports whether Close was called at least once.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}

// Page is a scripted browser.Page. Exported fields are set up before use.
type Page struct {
	// Elements maps Locator.String() to the element found for it.
	Elements map[string]*Element

	Body    string
	TextErr error
	Markup  string

	NavigateErr   error
	NavigateDelay time.Duration
	NavigatePanic string

	// Width and Height size the generated screenshot.
	Width, Height int
	ScreenshotErr error

	PDFData []byte
	PDFErr  error
	IdleErr error

	Popup    *Page
	PopupErr error
	PageURL  string

	mu          sync.Mutex
	navigations []string
	screenshots int
}

// Navigations returns the URLs passed to Navigate.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Screenshots returns how many captures were taken.
func (p *Page) Screenshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screenshots
}

// Add registers an element for loc and returns it.
func (p *Page) Add(loc browser.Locator) *Element {
	if p.Elements == nil {
		p.Elements = make(map[string]*Element)
	}
	el := &Element{}
	p.Elements[loc.String()] = el
	return el
}

func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	p.PageURL = url
	p.mu.Unlock()

	if p.NavigatePanic != "" {
		panic(p.NavigatePanic)
	}
	if p.NavigateDelay > 0 {
		if err := browser.Sleep(ctx, p.NavigateDelay); err != nil {
			return err
		}
	}
	return p.NavigateErr
}

func (p *Page) Find(ctx context.Context, loc browser.Locator, timeout time.Duration) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if el, ok := p.Elements[loc.String()]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, loc)
}

func (p *Page) Text(ctx context.Context, timeout time.Duration) (string, error) {
	if p.TextErr != nil {
		return "", p.TextErr
	}
	return p.Body, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if p.Markup != "" {
		return p.Markup, nil
	}
	return "<html><body>" + p.Body + "</body></html>", nil
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	p.mu.Lock()
	p.screenshots++
	p.mu.Unlock()

	w, h := p.Width, p.Height
	if w == 0 {
		w = 1400
	}
	if h == 0 {
		h = 900
	}
	return PNG(w, h), nil
}

func (p *Page) PDF(ctx context.Context) ([]byte, error) {
	if p.PDFErr != nil {
		return nil, p.PDFErr
	}
	if p.PDFData == nil {
		return nil, errors.New("printing not supported")
	}
	return p.PDFData, nil
}

func (p *Page) WaitIdle(ctx context.Context, timeout time.Duration) error {
	return p.IdleErr
}

func (p *Page) ExpectPopup(ctx context.Context, timeout time.Duration, trigger func(ctx context.Context) error) (browser.Page, error) {
	if err := trigger(ctx); err != nil {
		return nil, err
	}
	if p.PopupErr != nil {
		return nil, p.PopupErr
	}
	if p.Popup == nil {
		return nil, models.NewLookupError(models.ErrCodePopup, "warranty document window did not open", context.DeadlineExceeded)
	}
	return p.Popup, nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PageURL
}

// Element records the interactions performed on it.
type Element struct {
	ClickErr error

	// OnClick runs after a successful click.
	OnClick func()

	mu      sync.Mutex
	clicks  int
	submits int
	value   string
}

func (e *Element) Click(ctx context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) Fill(ctx context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.value = value
	return nil
}

func (e *Element) Submit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.submits++
	return nil
}

// Clicks returns the number of successful clicks.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Submits returns the number of Enter presses.
func (e *Element) Submits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submits
}

// Value returns the last filled value.
func (e *Element) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// PNG encodes a blank w×h image.
func PNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.Black)
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

var (
	_ browser.Launcher = (*Launcher)(nil)
	_ browser.Session  = (*Session)(nil)
	_ browser.Page     = (*Page)(nil)
	_ browser.Element  = (*Element)(nil)
)
