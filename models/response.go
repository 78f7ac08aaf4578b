package models

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	SessionStats SessionStats `json:"session_stats"`
	Version      string       `json:"version"`
}

// SessionStats reports browser session usage.
type SessionStats struct {
	MaxSessions    int   `json:"max_sessions"`
	ActiveSessions int   `json:"active_sessions"`
	TotalSessions  int64 `json:"total_sessions"`
	BrowserPID     int   `json:"browser_pid"`
}

// SiteInfo describes one registered manufacturer adapter for GET /api/v1/sites.
type SiteInfo struct {
	Adapter   string      `json:"adapter"`
	Tokens    []string    `json:"tokens"`
	URL       string      `json:"url"`
	Reachable *SiteStatus `json:"reachable,omitempty"`
}

// SiteStatus is the outcome of a plain HTTP reachability probe.
type SiteStatus struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code,omitempty"`
	Title      string `json:"title,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}

// SitesResponse is the response for GET /api/v1/sites.
type SitesResponse struct {
	Sites []SiteInfo `json:"sites"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// NewErrorResponse builds an ErrorResponse.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: &ErrorDetail{Code: code, Message: message}}
}
