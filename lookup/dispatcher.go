// Package lookup routes warranty lookups to the adapter for a manufacturer.
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/n8dizzle/Christmas-automations/adapter"
	"github.com/n8dizzle/Christmas-automations/cache"
	"github.com/n8dizzle/Christmas-automations/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("github.com/n8dizzle/Christmas-automations/lookup")

// Publisher receives every record produced by an adapter run.
type Publisher interface {
	Publish(ctx context.Context, rec *models.WarrantyRecord) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCache enables max_age reuse of earlier records.
func WithCache(c *cache.Cache) Option {
	return func(d *Dispatcher) { d.cache = c }
}

// WithPublisher registers a publisher for completed lookups.
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publishers = append(d.publishers, p) }
}

// WithSiteInterval spaces consecutive lookups against one site.
func WithSiteInterval(interval time.Duration) Option {
	return func(d *Dispatcher) { d.interval = interval }
}

// Dispatcher matches a manufacturer to an adapter and runs the lookup.
// Concurrent lookups of the same serial on the same site share one run.
type Dispatcher struct {
	adapters   []adapter.Adapter
	cache      *cache.Cache
	publishers []Publisher
	interval   time.Duration

	limiters map[string]*rate.Limiter
	group    singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context shared by every caller of one singleflight run.
// It outlives any single caller and is canceled once all of them have left.
type flight struct {
	ctx    context.Context
	cancel context.CancelFunc
	refs   int
}

// NewDispatcher creates a Dispatcher over adapters. Earlier adapters win
// when several tokens match.
func NewDispatcher(adapters []adapter.Adapter, opts ...Option) *Dispatcher {
	d := &Dispatcher{adapters: adapters, flights: make(map[string]*flight)}
	for _, opt := range opts {
		opt(d)
	}

	limit := rate.Inf
	if d.interval > 0 {
		limit = rate.Every(d.interval)
	}
	d.limiters = make(map[string]*rate.Limiter, len(adapters))
	for _, a := range adapters {
		d.limiters[a.Name()] = rate.NewLimiter(limit, 1)
	}
	return d
}

// Adapters returns the registered adapters in match order.
func (d *Dispatcher) Adapters() []adapter.Adapter {
	return append([]adapter.Adapter(nil), d.adapters...)
}

// Match returns the adapter whose brand token occurs in manufacturer.
func (d *Dispatcher) Match(manufacturer string) (adapter.Adapter, bool) {
	key := strings.ToLower(strings.TrimSpace(manufacturer))
	if key == "" {
		return nil, false
	}
	for _, a := range d.adapters {
		for _, tok := range a.Tokens() {
			if strings.Contains(key, tok) {
				return a, true
			}
		}
	}
	return nil, false
}

// Lookup runs one warranty lookup. It always returns a terminal record.
func (d *Dispatcher) Lookup(ctx context.Context, req models.LookupRequest) *models.WarrantyRecord {
	start := time.Now()
	req.Normalize()

	ctx, span := tracer.Start(ctx, "lookup.Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("warranty.serial", req.SerialNumber),
		attribute.String("warranty.manufacturer", req.Manufacturer),
	)

	rec := d.dispatch(ctx, req)
	if rec.CacheStatus != "hit" {
		rec.DurationMs = time.Since(start).Milliseconds()
	}

	span.SetAttributes(
		attribute.String("warranty.adapter", rec.Adapter),
		attribute.String("warranty.status", string(rec.LookupStatus)),
	)
	if rec.LookupStatus == models.StatusError {
		span.SetStatus(codes.Error, rec.Error)
	}
	return rec
}

func (d *Dispatcher) dispatch(ctx context.Context, req models.LookupRequest) *models.WarrantyRecord {
	a, ok := d.Match(req.Manufacturer)
	if !ok {
		rec := models.NewRecord(req.SerialNumber, req.Manufacturer, "")
		rec.LookupStatus = models.StatusUnsupported
		rec.Error = fmt.Sprintf("Warranty lookup not yet implemented for %s", req.Manufacturer)
		slog.Info("unsupported manufacturer", "manufacturer", req.Manufacturer)
		d.publish(ctx, rec)
		return rec
	}

	if req.SerialNumber == "" {
		rec := models.NewRecord("", req.Manufacturer, a.Name())
		rec.Fail("serial number is required")
		d.publish(ctx, rec)
		return rec
	}

	key := cache.Key(a.Name(), req.SerialNumber)
	if d.cache != nil {
		if cached, hit := d.cache.Get(key, req.MaxAge); hit {
			slog.Debug("cache hit", "adapter", a.Name(), "serial", req.SerialNumber)
			cached.CacheStatus = "hit"
			cached.Manufacturer = req.Manufacturer
			return cached
		}
	}

	f := d.join(ctx, key)
	ch := d.group.DoChan(key, func() (any, error) {
		return d.run(f.ctx, a, req, key), nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
		d.leave(key, f)
	case <-ctx.Done():
		d.leave(key, f)
		rec := models.NewRecord(req.SerialNumber, req.Manufacturer, a.Name())
		rec.Fail(fmt.Sprintf("lookup canceled: %v", ctx.Err()))
		return rec
	}
	if res.Shared {
		slog.Debug("lookup shared with concurrent caller", "adapter", a.Name(), "serial", req.SerialNumber)
	}

	rec := res.Val.(*models.WarrantyRecord).Clone()
	rec.Manufacturer = req.Manufacturer
	if d.cache != nil && req.MaxAge > 0 {
		rec.CacheStatus = "miss"
	}
	return rec
}

func (d *Dispatcher) join(ctx context.Context, key string) *flight {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		d.flights[key] = f
	}
	f.refs++
	return f
}

func (d *Dispatcher) leave(key string, f *flight) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f.refs--
	if f.refs > 0 {
		return
	}
	f.cancel()
	if d.flights[key] == f {
		delete(d.flights, key)
		// A caller arriving after this point must not join a canceled run.
		d.group.Forget(key)
	}
}

// run waits for the site's turn, drives the adapter and records the result.
func (d *Dispatcher) run(ctx context.Context, a adapter.Adapter, req models.LookupRequest, key string) *models.WarrantyRecord {
	if err := d.limiters[a.Name()].Wait(ctx); err != nil {
		rec := models.NewRecord(req.SerialNumber, req.Manufacturer, a.Name())
		rec.Fail(fmt.Sprintf("lookup canceled while waiting for %s: %v", a.Name(), err))
		return rec
	}

	rec := a.Lookup(ctx, req)
	if d.cache != nil {
		d.cache.Set(key, rec)
	}
	d.publish(ctx, rec)
	return rec
}

func (d *Dispatcher) publish(ctx context.Context, rec *models.WarrantyRecord) {
	for _, p := range d.publishers {
		if err := p.Publish(ctx, rec); err != nil {
			slog.Warn("failed to publish lookup", "serial", rec.SerialNumber, "error", err)
		}
	}
}

// Each runs reqs with at most concurrency lookups in flight and calls fn
// with each record as it completes. fn may be called concurrently.
func (d *Dispatcher) Each(ctx context.Context, reqs []models.LookupRequest, concurrency int, fn func(i int, rec *models.WarrantyRecord)) {
	if concurrency < 1 {
		concurrency = 1
	}
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			fn(i, d.Lookup(ctx, req))
			return nil
		})
	}
	_ = g.Wait()
}

// LookupBatch runs independent lookups concurrently. Results keep request
// order.
func (d *Dispatcher) LookupBatch(ctx context.Context, reqs []models.LookupRequest, concurrency int) []*models.WarrantyRecord {
	out := make([]*models.WarrantyRecord, len(reqs))
	d.Each(ctx, reqs, concurrency, func(i int, rec *models.WarrantyRecord) {
		out[i] = rec
	})
	return out
}
