package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/n8dizzle/Christmas-automations/browser"
	"github.com/n8dizzle/Christmas-automations/browser/browsertest"
	"github.com/n8dizzle/Christmas-automations/config"
	"github.com/n8dizzle/Christmas-automations/events"
	"github.com/n8dizzle/Christmas-automations/models"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProber struct{}

func (stubProber) Check(_ context.Context, url string) *models.SiteStatus {
	return &models.SiteStatus{OK: true, StatusCode: 200, LatencyMs: 12}
}

func testDeps(l *browsertest.Launcher) deps {
	return deps{
		launch: func(config.BrowserConfig) (browser.Launcher, error) { return l, nil },
		prober: func(time.Duration) prober { return stubProber{} },
		now:    func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func run(t *testing.T, d deps, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(d)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParse_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trane_raw_5434REB2F.txt")
	require.NoError(t, os.WriteFile(path, []byte("Compressor : Term End Date is 10/15/2030 (10 Years)"), 0o644))

	out, err := run(t, testDeps(nil), "", "parse", path, "--site", "trane")
	require.NoError(t, err)

	var data models.WarrantyData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "10/15/2020", data.InstallDate)
	assert.Equal(t, "Active", data.WarrantyStatus)
}

func TestParse_Stdin(t *testing.T) {
	out, err := run(t, testDeps(nil), "Compressor help_outline\t10 years\t08/07/2035\n", "parse", "-", "--site", "carrier")
	require.NoError(t, err)
	assert.Contains(t, out, `"install_date": "08/07/2025"`)
}

func TestParse_UnknownSite(t *testing.T) {
	_, err := run(t, testDeps(nil), "text", "parse", "-", "--site", "lennox")
	assert.ErrorContains(t, err, "lennox")
}

func TestLookup_UnsupportedSkipsBrowser(t *testing.T) {
	d := testDeps(nil)
	d.launch = func(config.BrowserConfig) (browser.Launcher, error) {
		t.Fatal("browser launched for unsupported manufacturer")
		return nil, nil
	}

	out, err := run(t, d, "", "lookup", "ABC123", "Lennox", "-o", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, `"lookup_status": "unsupported"`)
}

func TestLookup_Trane(t *testing.T) {
	l := &browsertest.Launcher{NewPage: func() *browsertest.Page {
		p := &browsertest.Page{Body: "Compressor : Term End Date is 10/15/2030 (10 Years)"}
		p.Add(browser.CSS("#serialNumber"))
		p.Add(browser.HasText("button", "Search"))
		return p
	}}
	t.Setenv("WARRANTY_SITE_INTERVAL", "0s")

	out, err := run(t, testDeps(l), "", "lookup", "5434REB2F", "American", "Standard", "-o", t.TempDir())
	require.NoError(t, err)

	var rec models.WarrantyRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, models.StatusSuccess, rec.LookupStatus)
	assert.Equal(t, "American Standard", rec.Manufacturer)
	require.Len(t, l.Sessions(), 1)
	assert.True(t, l.Sessions()[0].Closed())
}

func TestLookup_ErrorExitsNonZero(t *testing.T) {
	l := &browsertest.Launcher{}
	t.Setenv("WARRANTY_DEBUG_SCREENSHOTS", "false")

	out, err := run(t, testDeps(l), "", "lookup", "2419E12345", "Carrier", "-o", t.TempDir())
	assert.ErrorContains(t, err, "lookup failed")
	assert.Contains(t, out, `"lookup_status": "error"`)
}

func TestSites(t *testing.T) {
	out, err := run(t, testDeps(nil), "", "sites", "--probe")
	require.NoError(t, err)
	assert.Contains(t, out, "american_standard")
	assert.Contains(t, out, "https://www.carrier.com/residential/en/us/warranty-lookup/")
	assert.Contains(t, out, "ok 200 (12ms)")

	out, err = run(t, testDeps(nil), "", "sites", "--json")
	require.NoError(t, err)
	var resp models.SitesResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Sites, 2)
}

func TestWatch_PrintsPublishedLookups(t *testing.T) {
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	require.NoError(t, err)
	srv.Start()
	require.True(t, srv.ReadyForConnections(3*time.Second))
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	pub := events.NewNATSPublisher(nc, "warranty.watch.test")

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := run(t, testDeps(nil), "", "watch",
			"--nats-url", srv.ClientURL(), "--subject", "warranty.watch.test", "--count", "1")
		done <- result{out, err}
	}()

	rec := models.NewRecord("2419E12345", "Carrier", "carrier")
	rec.LookupStatus = models.StatusNotFound
	rec.Error = "Serial number not found or no warranty on file"

	// The subscription may not exist yet; keep publishing until watch exits.
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	timeout := time.After(5 * time.Second)
	var res result
wait:
	for {
		select {
		case res = <-done:
			break wait
		case <-tick.C:
			require.NoError(t, pub.Publish(context.Background(), rec))
		case <-timeout:
			t.Fatal("watch did not exit")
		}
	}

	require.NoError(t, res.err)
	var ev events.LookupCompleted
	require.NoError(t, json.Unmarshal([]byte(res.out), &ev))
	require.NotNil(t, ev.Record)
	assert.Equal(t, "2419E12345", ev.Record.SerialNumber)
	assert.Equal(t, models.StatusNotFound, ev.Record.LookupStatus)
}
