package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/lookup", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		var req models.LookupRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 60000, req.MaxAge)

		rec := models.NewRecord(req.SerialNumber, req.Manufacturer, "american_standard")
		rec.LookupStatus = models.StatusSuccess
		rec.WarrantyData = &models.WarrantyData{
			InstallDate: "10/15/2020",
			Components:  []models.Component{{Name: "Compressor", TermYears: 10, EndDate: "10/15/2030"}},
		}
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	res, err := handleLookup(srv.URL, "k")(context.Background(), callRequest(map[string]any{
		"serial_number": "5434REB2F",
		"manufacturer":  "Trane",
		"max_age":       float64(60000),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Status: success")
	assert.Contains(t, text, "Install date: 10/15/2020")
	assert.Contains(t, text, "Compressor: 10 years, ends 10/15/2030")
}

func TestHandleLookup_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.NewErrorResponse(models.ErrCodeUnauthorized, "invalid API key"))
	}))
	defer srv.Close()

	res, err := handleLookup(srv.URL, "bad")(context.Background(), callRequest(map[string]any{
		"serial_number": "X", "manufacturer": "Carrier",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "[UNAUTHORIZED] invalid API key")

	res, err = handleLookup(srv.URL, "k")(context.Background(), callRequest(map[string]any{"manufacturer": "Carrier"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleBatchLookup(t *testing.T) {
	pollInterval = 5 * time.Millisecond
	var polls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/batch/lookup":
			var req models.BatchLookupRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Len(t, req.Items, 2)
			_ = json.NewEncoder(w).Encode(models.BatchResponse{ID: "batch-1", Status: models.BatchProcessing, Total: 2})
		case strings.HasSuffix(r.URL.Path, "/batch-1"):
			resp := models.BatchStatusResponse{ID: "batch-1", Status: models.BatchProcessing, Total: 2}
			if polls.Add(1) > 1 {
				found := models.NewRecord("A1", "Carrier", "carrier")
				found.LookupStatus = models.StatusSuccess
				missing := models.NewRecord("B2", "Lennox", "")
				missing.LookupStatus = models.StatusUnsupported
				missing.Error = "Warranty lookup not yet implemented for Lennox"
				resp.Status = models.BatchCompleted
				resp.Completed = 2
				resp.Results = []*models.WarrantyRecord{found, missing}
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	res, err := handleBatchLookup(srv.URL, "k")(context.Background(), callRequest(map[string]any{
		"items": []any{
			map[string]any{"serial_number": "A1", "manufacturer": "Carrier"},
			map[string]any{"serial_number": "B2", "manufacturer": "Lennox"},
		},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	text := resultText(t, res)
	assert.Contains(t, text, "Batch batch-1: completed (2/2 completed)")
	assert.Contains(t, text, "Status: unsupported")
	assert.Contains(t, text, "Note: Warranty lookup not yet implemented for Lennox")
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestHandleBatchLookup_InvalidItems(t *testing.T) {
	res, err := handleBatchLookup("http://127.0.0.1:1", "k")(context.Background(), callRequest(map[string]any{"items": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
