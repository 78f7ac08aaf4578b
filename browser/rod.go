package browser

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/n8dizzle/Christmas-automations/config"
	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/ysmood/gson"
)

// RodLauncher owns one Chrome process. Each lookup gets its own incognito
// browser context from it. It is safe for concurrent use.
type RodLauncher struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	cfg      config.BrowserConfig
	sem      chan struct{}
	active   atomic.Int32
	total    atomic.Int64
}

// NewRodLauncher launches Chrome and connects to it.
func NewRodLauncher(cfg config.BrowserConfig) (*RodLauncher, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	// The print action opens the warranty document in a new window.
	l.Set(flags.Flag("disable-popup-blocking"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewLookupError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "pid", l.PID())

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewLookupError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	maxSessions := cfg.MaxSessions
	if maxSessions < 1 {
		maxSessions = 1
	}

	return &RodLauncher{
		launcher: l,
		browser:  browser,
		cfg:      cfg,
		sem:      make(chan struct{}, maxSessions),
	}, nil
}

// NewSession waits for a free slot and opens an incognito context.
func (r *RodLauncher) NewSession(ctx context.Context) (Session, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, categorizeError(ctx.Err(), "timed out waiting for a browser session")
	}

	incognito, err := r.browser.Incognito()
	if err != nil {
		<-r.sem
		return nil, models.NewLookupError(
			models.ErrCodeBrowserCrash,
			"failed to create incognito context",
			err,
		)
	}

	r.active.Add(1)
	r.total.Add(1)
	return &rodSession{owner: r, browser: incognito}, nil
}

// Stats returns a snapshot of session usage.
func (r *RodLauncher) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    cap(r.sem),
		ActiveSessions: int(r.active.Load()),
		TotalSessions:  r.total.Load(),
		BrowserPID:     r.launcher.PID(),
	}
}

// Close kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (r *RodLauncher) Close() error {
	slog.Info("launcher shutting down: closing browser")
	err := r.browser.Close()
	r.launcher.Kill()
	slog.Info("launcher shutdown complete")
	return err
}

type rodSession struct {
	owner   *RodLauncher
	browser *rod.Browser

	mu      sync.Mutex
	routers []*rod.HijackRouter
	closed  bool
}

func (s *rodSession) NewPage(ctx context.Context) (Page, error) {
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewLookupError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}
	// Drop the creation context so later calls can bind their own.
	page = page.Context(context.Background())

	cfg := s.owner.cfg
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("failed to set viewport", "error", err)
	}

	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		}),
	}.Call(page)

	if router := setupHijack(page, cfg.BlockedResourceTypes, cfg.BlockTrackers); router != nil {
		s.mu.Lock()
		s.routers = append(s.routers, router)
		s.mu.Unlock()
	}

	return &rodPage{page: page}, nil
}

// Close disposes the incognito context together with every page and popup
// it opened, then frees the session slot.
func (s *rodSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	for _, router := range s.routers {
		_ = router.Stop()
	}
	err := s.browser.Close()

	s.owner.active.Add(-1)
	<-s.owner.sem
	return err
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

var _ Launcher = (*RodLauncher)(nil)
