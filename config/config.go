package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Lookup    LookupConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Events    EventsConfig
	Trace     TraceConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxSessions caps concurrent incognito lookup sessions.
	MaxSessions int // default: 4

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects the stealth script into every lookup page.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block on lookup pages.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// BlockTrackers drops requests to known ad and analytics hosts.
	BlockTrackers bool // default: true

	ViewportWidth  int // default: 1400
	ViewportHeight int // default: 900
}

// LookupConfig controls the warranty lookup flows.
type LookupConfig struct {
	// OutputDir receives screenshots, raw text dumps and PDF snapshots.
	OutputDir string // default: "./warranty_output"

	NavigationTimeout time.Duration // default: 30s
	PopupTimeout      time.Duration // default: 15s
	IdleTimeout       time.Duration // default: 15s

	// PDFSettle is the extra wait for a blob PDF to render in the popup.
	PDFSettle time.Duration // default: 3s

	// CropLeft is the width of the PDF viewer sidebar cut from popup screenshots.
	CropLeft int // default: 270

	// SiteInterval is the minimum spacing between lookups against one site.
	SiteInterval time.Duration // default: 2s

	// BatchConcurrency bounds concurrent lookups inside one batch.
	BatchConcurrency int // default: 2

	// SaveMarkdown writes a Markdown snapshot of each results page.
	SaveMarkdown bool // default: false

	// DebugScreenshots writes <prefix>_error_<serial>.png on failure.
	DebugScreenshots bool // default: true
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the warranty record cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached records.
	MaxEntries int // default: 1000

	// TTL is how long a record is kept regardless of the caller's max_age.
	TTL time.Duration // default: 24h
}

// EventsConfig controls publication of completed lookups.
type EventsConfig struct {
	// NATSURL enables publishing when set.
	NATSURL string

	Subject string // default: "warranty.lookup.completed"
}

// TraceConfig controls OpenTelemetry span export.
type TraceConfig struct {
	// Exporter is "none", "stdout" or "otlp". default: "none"
	Exporter string

	// OTLPEndpoint is the collector URL for the otlp exporter, e.g.
	// "http://localhost:4318". Empty falls back to OTEL_EXPORTER_OTLP_* vars.
	OTLPEndpoint string

	ServiceName string // default: "warrantyd"

	// SampleRatio is the fraction of root spans recorded. default: 1
	SampleRatio float64
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("WARRANTY_HOST", "0.0.0.0"),
			Port: envIntOr("WARRANTY_PORT", 8080),
			Mode: envOr("WARRANTY_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:             envBoolOr("WARRANTY_HEADLESS", true),
			MaxSessions:          envIntOr("WARRANTY_MAX_SESSIONS", 4),
			Proxy:                os.Getenv("WARRANTY_PROXY"),
			NoSandbox:            envBoolOr("WARRANTY_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("WARRANTY_BROWSER_BIN"),
			Stealth:              envBoolOr("WARRANTY_STEALTH", true),
			BlockedResourceTypes: envSliceOr("WARRANTY_BLOCKED_RESOURCES", []string{"Font", "Media"}),
			BlockTrackers:        envBoolOr("WARRANTY_BLOCK_TRACKERS", true),
			ViewportWidth:        envIntOr("WARRANTY_VIEWPORT_WIDTH", 1400),
			ViewportHeight:       envIntOr("WARRANTY_VIEWPORT_HEIGHT", 900),
		},
		Lookup: LookupConfig{
			OutputDir:         envOr("WARRANTY_OUTPUT_DIR", "./warranty_output"),
			NavigationTimeout: envDurationOr("WARRANTY_NAV_TIMEOUT", 30*time.Second),
			PopupTimeout:      envDurationOr("WARRANTY_POPUP_TIMEOUT", 15*time.Second),
			IdleTimeout:       envDurationOr("WARRANTY_IDLE_TIMEOUT", 15*time.Second),
			PDFSettle:         envDurationOr("WARRANTY_PDF_SETTLE", 3*time.Second),
			CropLeft:          envIntOr("WARRANTY_CROP_LEFT", 270),
			SiteInterval:      envDurationOr("WARRANTY_SITE_INTERVAL", 2*time.Second),
			BatchConcurrency:  envIntOr("WARRANTY_BATCH_CONCURRENCY", 2),
			SaveMarkdown:      envBoolOr("WARRANTY_SAVE_MARKDOWN", false),
			DebugScreenshots:  envBoolOr("WARRANTY_DEBUG_SCREENSHOTS", true),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("WARRANTY_AUTH_ENABLED", true),
			APIKeys: envSliceOr("WARRANTY_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("WARRANTY_RATE_RPS", 1.0),
			Burst:             envIntOr("WARRANTY_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("WARRANTY_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("WARRANTY_CACHE_TTL", 24*time.Hour),
		},
		Events: EventsConfig{
			NATSURL: os.Getenv("WARRANTY_NATS_URL"),
			Subject: envOr("WARRANTY_NATS_SUBJECT", "warranty.lookup.completed"),
		},
		Trace: TraceConfig{
			Exporter:     envOr("WARRANTY_TRACE_EXPORTER", "none"),
			OTLPEndpoint: os.Getenv("WARRANTY_OTLP_ENDPOINT"),
			ServiceName:  envOr("WARRANTY_SERVICE_NAME", "warrantyd"),
			SampleRatio:  envFloatOr("WARRANTY_TRACE_SAMPLE_RATIO", 1.0),
		},
		Log: LogConfig{
			Level:  envOr("WARRANTY_LOG_LEVEL", "info"),
			Format: envOr("WARRANTY_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
