package models

// BatchLookupRequest is the payload for POST /api/v1/batch/lookup.
type BatchLookupRequest struct {
	// Items is the list of equipment to look up. Required.
	Items []LookupRequest `json:"items" binding:"required,min=1,max=50,dive"`

	// WebhookURL receives a signed notification when the batch finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook body with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// BatchResponse is the immediate response for POST /api/v1/batch/lookup.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []*WarrantyRecord `json:"results,omitempty"`
}

// Batch job states.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchPartial    = "partial"
	BatchFailed     = "failed"
)

// BatchJob tracks an in-progress batch lookup.
type BatchJob struct {
	ID        string
	Status    string
	Total     int
	Completed int
	Results   []*WarrantyRecord
	CreatedAt int64 // unix timestamp
}

// BatchStatusOf derives the final batch state from its records: completed
// when nothing errored, failed when everything did, partial otherwise.
func BatchStatusOf(records []*WarrantyRecord) string {
	errored := 0
	for _, r := range records {
		if r == nil || r.LookupStatus == StatusError {
			errored++
		}
	}
	switch {
	case errored == 0:
		return BatchCompleted
	case errored == len(records):
		return BatchFailed
	default:
		return BatchPartial
	}
}
