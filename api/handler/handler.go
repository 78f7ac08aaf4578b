package handler

import (
	"context"

	"github.com/n8dizzle/Christmas-automations/adapter"
	"github.com/n8dizzle/Christmas-automations/models"
)

// Dispatcher runs warranty lookups.
type Dispatcher interface {
	Lookup(ctx context.Context, req models.LookupRequest) *models.WarrantyRecord
	Each(ctx context.Context, reqs []models.LookupRequest, concurrency int, fn func(i int, rec *models.WarrantyRecord))
	Adapters() []adapter.Adapter
}

// Prober checks whether a lookup page answers.
type Prober interface {
	Check(ctx context.Context, url string) *models.SiteStatus
}

// StatsSource reports browser session usage.
type StatsSource interface {
	Stats() models.SessionStats
}
