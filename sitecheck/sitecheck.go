// Package sitecheck probes manufacturer lookup pages over plain HTTP with a
// Chrome TLS fingerprint, without starting a browser.
package sitecheck

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/n8dizzle/Christmas-automations/models"
	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"
)

// userAgent matches the browser used for lookups.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// maxBody bounds how much of a page is scanned for its title.
const maxBody = 1 << 20

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// net/http cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// Prober checks that lookup pages answer.
type Prober struct {
	client *http.Client
}

// New creates a Prober with a Chrome-like TLS fingerprint. Some manufacturer
// CDNs reject Go's default ClientHello.
func New(timeout time.Duration) *Prober {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("sitecheck: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return NewWithClient(&http.Client{Transport: transport, Timeout: timeout})
}

// NewWithClient creates a Prober over an existing client.
func NewWithClient(client *http.Client) *Prober {
	return &Prober{client: client}
}

// Check fetches url and reports status, title and latency. Failures are
// reported in the result rather than returned.
func (p *Prober) Check(ctx context.Context, url string) *models.SiteStatus {
	start := time.Now()
	st := &models.SiteStatus{}
	defer func() { st.LatencyMs = time.Since(start).Milliseconds() }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		st.Error = fmt.Sprintf("build request: %v", err)
		return st
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := p.client.Do(req)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	defer resp.Body.Close()

	st.StatusCode = resp.StatusCode
	st.OK = resp.StatusCode < 400
	if !st.OK {
		st.Error = fmt.Sprintf("status %d", resp.StatusCode)
	}
	if isHTMLContentType(resp.Header.Get("Content-Type")) {
		st.Title = extractTitle(io.LimitReader(resp.Body, maxBody))
	}
	return st
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
