package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/n8dizzle/Christmas-automations/models"
)

// pollInterval is how often batch status is checked.
var pollInterval = 2 * time.Second

func main() {
	apiURL := os.Getenv("WARRANTY_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("WARRANTY_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "WARRANTY_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"warranty",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	lookupTool := mcp.NewTool("lookup_warranty",
		mcp.WithDescription("Look up the manufacturer warranty for one piece of HVAC equipment by serial number. Supports Trane/American Standard and Carrier. Takes up to a minute because it drives the manufacturer's website in a browser."),
		mcp.WithString("serial_number",
			mcp.Required(),
			mcp.Description("Serial number from the equipment data plate"),
		),
		mcp.WithString("manufacturer",
			mcp.Required(),
			mcp.Description("Brand from the data plate, e.g. 'Trane', 'American Standard' or 'Carrier'"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Reuse a cached result younger than this many milliseconds (default: 0, always look up)"),
		),
	)
	s.AddTool(lookupTool, handleLookup(apiURL, apiKey))

	batchTool := mcp.NewTool("batch_lookup_warranty",
		mcp.WithDescription("Look up warranties for several pieces of equipment at once and return one summary line per item."),
		mcp.WithArray("items",
			mcp.Required(),
			mcp.Description("List of {serial_number, manufacturer} objects (max 50)"),
		),
	)
	s.AddTool(batchTool, handleBatchLookup(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the warranty API and returns the status and body.
func apiDo(ctx context.Context, client *http.Client, method, url, apiKey string, payload interface{}) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// apiError formats a non-2xx API response.
func apiError(status int, body []byte) string {
	var e models.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != nil {
		return fmt.Sprintf("[%s] %s", e.Error.Code, e.Error.Message)
	}
	return fmt.Sprintf("API returned status %d", status)
}

// pollBatch polls the batch endpoint until status is no longer "processing"
// or ctx is cancelled.
func pollBatch(ctx context.Context, client *http.Client, apiURL, apiKey, id string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, body, err := apiDo(ctx, client, http.MethodGet, apiURL+"/api/v1/batch/"+id, apiKey, nil)
			if err != nil {
				return nil, err
			}
			if status != http.StatusOK {
				return nil, fmt.Errorf("poll batch: %s", apiError(status, body))
			}
			var resp models.BatchStatusResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if resp.Status != models.BatchProcessing {
				return &resp, nil
			}
		}
	}
}

func handleLookup(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		serial, err := request.RequireString("serial_number")
		if err != nil {
			return mcp.NewToolResultError("serial_number is required"), nil
		}
		manufacturer, err := request.RequireString("manufacturer")
		if err != nil {
			return mcp.NewToolResultError("manufacturer is required"), nil
		}

		payload := models.LookupRequest{SerialNumber: serial, Manufacturer: manufacturer}
		if v, ok := request.GetArguments()["max_age"].(float64); ok && v > 0 {
			payload.MaxAge = int(v)
		}

		status, body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/lookup", apiKey, payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(apiError(status, body)), nil
		}

		var rec models.WarrantyRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if rec.LookupStatus == models.StatusError {
			return mcp.NewToolResultError(fmt.Sprintf("lookup failed for %s: %s", rec.SerialNumber, rec.Error)), nil
		}
		return mcp.NewToolResultText(formatRecord(&rec)), nil
	}
}

func handleBatchLookup(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, ok := request.GetArguments()["items"]
		if !ok {
			return mcp.NewToolResultError("items is required"), nil
		}
		// Round-trip through JSON to accept any array of objects.
		data, err := json.Marshal(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid items: %v", err)), nil
		}
		var items []models.LookupRequest
		if err := json.Unmarshal(data, &items); err != nil || len(items) == 0 {
			return mcp.NewToolResultError("items must be a non-empty array of {serial_number, manufacturer}"), nil
		}

		status, body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/batch/lookup", apiKey,
			models.BatchLookupRequest{Items: items})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(apiError(status, body)), nil
		}
		var created models.BatchResponse
		if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		final, err := pollBatch(ctx, client, apiURL, apiKey, created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Batch %s: %s (%d/%d completed)\n\n", final.ID, final.Status, final.Completed, final.Total)
		for i, rec := range final.Results {
			if rec == nil {
				fmt.Fprintf(&sb, "--- [%d] no result ---\n\n", i+1)
				continue
			}
			fmt.Fprintf(&sb, "--- [%d] ---\n%s\n", i+1, formatRecord(rec))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// formatRecord renders a record as short plain text for the model.
func formatRecord(rec *models.WarrantyRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Serial: %s\nManufacturer: %s\nStatus: %s\n", rec.SerialNumber, rec.Manufacturer, rec.LookupStatus)
	if rec.Error != "" {
		fmt.Fprintf(&sb, "Note: %s\n", rec.Error)
	}
	if d := rec.WarrantyData; d != nil {
		field := func(name, v string) {
			if v != "" {
				fmt.Fprintf(&sb, "%s: %s\n", name, v)
			}
		}
		field("Model", d.ModelNumber)
		field("Brand", d.Brand)
		field("Install date", d.InstallDate)
		field("Warranty end", d.WarrantyEnd)
		field("Warranty status", d.WarrantyStatus)
		field("Capacity", d.Capacity)
		for _, c := range d.Components {
			fmt.Fprintf(&sb, "  - %s: %d years, ends %s\n", c.Name, c.TermYears, c.EndDate)
		}
	}
	if rec.PDFURL != "" {
		fmt.Fprintf(&sb, "Document: %s\n", rec.PDFURL)
	}
	if rec.ScreenshotPath != "" {
		fmt.Fprintf(&sb, "Screenshot: %s\n", rec.ScreenshotPath)
	}
	return sb.String()
}
