package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/n8dizzle/Christmas-automations/models"
	"github.com/n8dizzle/Christmas-automations/webhook"
)

// batchTTL is how long finished and running jobs stay queryable.
const batchTTL = time.Hour

// BatchStore holds all in-flight and completed batch jobs.
type BatchStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.BatchJob
	now  func() time.Time
}

// NewBatchStore creates an empty store.
func NewBatchStore() *BatchStore {
	return &BatchStore{jobs: make(map[string]*models.BatchJob), now: time.Now}
}

// create registers a job and expires jobs older than batchTTL.
func (s *BatchStore) create(total int) *models.BatchJob {
	now := s.now()
	job := &models.BatchJob{
		ID:        "batch-" + uuid.NewString(),
		Status:    models.BatchProcessing,
		Total:     total,
		Results:   make([]*models.WarrantyRecord, total),
		CreatedAt: now.Unix(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-batchTTL).Unix()
	for id, j := range s.jobs {
		if j.CreatedAt < cutoff {
			delete(s.jobs, id)
		}
	}
	s.jobs[job.ID] = job
	return job
}

func (s *BatchStore) record(job *models.BatchJob, i int, rec *models.WarrantyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Results[i] = rec
	job.Completed++
}

func (s *BatchStore) finish(job *models.BatchJob) models.BatchStatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Status = models.BatchStatusOf(job.Results)
	return snapshot(job)
}

// Get returns a consistent copy of a job's progress.
func (s *BatchStore) Get(id string) (models.BatchStatusResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.BatchStatusResponse{}, false
	}
	return snapshot(job), true
}

func snapshot(job *models.BatchJob) models.BatchStatusResponse {
	return models.BatchStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Completed: job.Completed,
		Total:     job.Total,
		Results:   append([]*models.WarrantyRecord(nil), job.Results...),
	}
}

// BatchRunner starts batch jobs in the background.
type BatchRunner struct {
	Dispatcher  Dispatcher
	Store       *BatchStore
	Webhooks    *webhook.Sender
	Concurrency int

	wg sync.WaitGroup
}

// Wait blocks until every started batch has finished.
func (b *BatchRunner) Wait() {
	b.wg.Wait()
}

// PostBatch returns a handler for POST /api/v1/batch/lookup.
// It validates the request, creates a batch job, and runs the lookups in
// the background with bounded concurrency.
func PostBatch(b *BatchRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchLookupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.ErrCodeInvalidInput, err.Error()))
			return
		}
		for i := range req.Items {
			req.Items[i].Normalize()
		}

		job := b.Store.create(len(req.Items))

		// The batch outlives the request but keeps its trace.
		ctx := context.WithoutCancel(c.Request.Context())
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.run(ctx, job, req)
		}()

		c.JSON(http.StatusOK, models.BatchResponse{
			ID:     job.ID,
			Status: models.BatchProcessing,
			Total:  job.Total,
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch(store *BatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, ok := store.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.NewErrorResponse(models.ErrCodeInvalidInput, "batch job not found"))
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (b *BatchRunner) run(ctx context.Context, job *models.BatchJob, req models.BatchLookupRequest) {
	b.Dispatcher.Each(ctx, req.Items, b.Concurrency, func(i int, rec *models.WarrantyRecord) {
		b.Store.record(job, i, rec)
	})
	final := b.Store.finish(job)

	slog.Info("batch job finished",
		"id", final.ID,
		"status", final.Status,
		"total", final.Total,
	)

	if req.WebhookURL != "" && b.Webhooks != nil {
		b.Webhooks.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      "batch.completed",
			JobID:     final.ID,
			Timestamp: time.Now().Unix(),
			Data:      final,
		})
	}
}
