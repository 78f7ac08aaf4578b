package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n8dizzle/Christmas-automations/adapter"
	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/n8dizzle/Christmas-automations/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAdapter struct{ name, url string }

func (a fakeAdapter) Name() string     { return a.name }
func (a fakeAdapter) Tokens() []string { return []string{a.name} }
func (a fakeAdapter) URL() string      { return a.url }
func (a fakeAdapter) Lookup(context.Context, models.LookupRequest) *models.WarrantyRecord {
	return nil
}

// fakeDispatcher answers not_found for serials starting with "N" and
// error for "E"; everything else succeeds.
type fakeDispatcher struct {
	mu   sync.Mutex
	reqs []models.LookupRequest
}

func (d *fakeDispatcher) Lookup(_ context.Context, req models.LookupRequest) *models.WarrantyRecord {
	d.mu.Lock()
	d.reqs = append(d.reqs, req)
	d.mu.Unlock()

	rec := models.NewRecord(req.SerialNumber, req.Manufacturer, "carrier")
	switch req.SerialNumber[0] {
	case 'N':
		rec.LookupStatus = models.StatusNotFound
		rec.Error = "Serial number not found or no warranty on file"
	case 'E':
		rec.Fail("Website returned an error")
	default:
		rec.LookupStatus = models.StatusSuccess
		rec.WarrantyData = &models.WarrantyData{ModelNumber: "24ACC636A003"}
	}
	return rec
}

func (d *fakeDispatcher) Each(ctx context.Context, reqs []models.LookupRequest, _ int, fn func(int, *models.WarrantyRecord)) {
	for i, r := range reqs {
		fn(i, d.Lookup(ctx, r))
	}
}

func (d *fakeDispatcher) Adapters() []adapter.Adapter {
	return []adapter.Adapter{
		fakeAdapter{name: "american_standard", url: adapter.AmericanStandardURL},
		fakeAdapter{name: "carrier", url: adapter.CarrierURL},
	}
}

type fakeProber struct{}

func (fakeProber) Check(_ context.Context, url string) *models.SiteStatus {
	return &models.SiteStatus{OK: true, StatusCode: 200, Title: url}
}

type fixedStats models.SessionStats

func (s fixedStats) Stats() models.SessionStats { return models.SessionStats(s) }

func do(t *testing.T, h gin.HandlerFunc, method, path, route string, body any) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Handle(method, route, h)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLookup_ReturnsRecordForEveryStatus(t *testing.T) {
	d := &fakeDispatcher{}
	tests := []struct {
		serial string
		want   models.LookupStatus
	}{
		{"2419E12345", models.StatusSuccess},
		{"N000", models.StatusNotFound},
		{"E000", models.StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.serial, func(t *testing.T) {
			w := do(t, Lookup(d), http.MethodPost, "/lookup", "/lookup",
				map[string]any{"serial_number": " " + tt.serial + " ", "manufacturer": "Carrier"})

			require.Equal(t, http.StatusOK, w.Code)
			var rec models.WarrantyRecord
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
			assert.Equal(t, tt.want, rec.LookupStatus)
			assert.Equal(t, tt.serial, rec.SerialNumber)
		})
	}
}

func TestLookup_InvalidRequest(t *testing.T) {
	d := &fakeDispatcher{}
	bodies := []map[string]any{
		{"manufacturer": "Carrier"},
		{"serial_number": "ABC"},
		{"serial_number": "   ", "manufacturer": "Carrier"},
		{"serial_number": "ABC", "manufacturer": "Carrier", "max_age": -1},
	}
	for _, body := range bodies {
		w := do(t, Lookup(d), http.MethodPost, "/lookup", "/lookup", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), models.ErrCodeInvalidInput)
	}
	assert.Empty(t, d.reqs)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		stats models.SessionStats
		want  string
	}{
		{models.SessionStats{MaxSessions: 4, ActiveSessions: 1}, "healthy"},
		{models.SessionStats{MaxSessions: 4, ActiveSessions: 4}, "degraded"},
	}
	for _, tt := range tests {
		w := do(t, Health(fixedStats(tt.stats), time.Now()), http.MethodGet, "/health", "/health", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp models.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tt.want, resp.Status)
		assert.Equal(t, tt.stats.MaxSessions, resp.SessionStats.MaxSessions)
	}
}

func TestSites(t *testing.T) {
	d := &fakeDispatcher{}

	w := do(t, Sites(d, fakeProber{}), http.MethodGet, "/sites", "/sites", nil)
	var plain models.SitesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plain))
	require.Len(t, plain.Sites, 2)
	assert.Equal(t, adapter.CarrierURL, plain.Sites[1].URL)
	assert.Nil(t, plain.Sites[0].Reachable)

	w = do(t, Sites(d, fakeProber{}), http.MethodGet, "/sites?probe=true", "/sites", nil)
	var probed models.SitesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &probed))
	require.NotNil(t, probed.Sites[0].Reachable)
	assert.True(t, probed.Sites[0].Reachable.OK)
	assert.Equal(t, adapter.AmericanStandardURL, probed.Sites[0].Reachable.Title)
}

func TestBatch_RunsAndReports(t *testing.T) {
	hooks := make(chan webhook.Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev webhook.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		hooks <- ev
	}))
	defer srv.Close()

	runner := &BatchRunner{
		Dispatcher:  &fakeDispatcher{},
		Store:       NewBatchStore(),
		Webhooks:    webhook.NewSender(),
		Concurrency: 2,
	}
	body := map[string]any{
		"items": []map[string]any{
			{"serial_number": "2419E12345", "manufacturer": "Carrier"},
			{"serial_number": "E111", "manufacturer": "Carrier"},
		},
		"webhook_url": srv.URL,
	}

	w := do(t, PostBatch(runner), http.MethodPost, "/batch", "/batch", body)
	require.Equal(t, http.StatusOK, w.Code)
	var created models.BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 2, created.Total)
	assert.Equal(t, models.BatchProcessing, created.Status)

	runner.Wait()
	runner.Webhooks.Wait()

	w = do(t, GetBatch(runner.Store), http.MethodGet, "/batch/"+created.ID, "/batch/:id", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status models.BatchStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.BatchPartial, status.Status)
	assert.Equal(t, 2, status.Completed)
	require.Len(t, status.Results, 2)
	assert.Equal(t, "2419E12345", status.Results[0].SerialNumber)
	assert.Equal(t, models.StatusError, status.Results[1].LookupStatus)

	select {
	case ev := <-hooks:
		assert.Equal(t, "batch.completed", ev.Type)
		assert.Equal(t, created.ID, ev.JobID)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not delivered")
	}
}

func TestBatch_Validation(t *testing.T) {
	runner := &BatchRunner{Dispatcher: &fakeDispatcher{}, Store: NewBatchStore()}

	w := do(t, PostBatch(runner), http.MethodPost, "/batch", "/batch", map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, PostBatch(runner), http.MethodPost, "/batch", "/batch", map[string]any{
		"items": []map[string]any{{"serial_number": "X"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBatch_Unknown(t *testing.T) {
	w := do(t, GetBatch(NewBatchStore()), http.MethodGet, "/batch/nope", "/batch/:id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchStore_Expires(t *testing.T) {
	s := NewBatchStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	old := s.create(1)

	now = now.Add(2 * time.Hour)
	s.create(1)

	_, ok := s.Get(old.ID)
	assert.False(t, ok)
}
