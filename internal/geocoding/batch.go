package geocoding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/logger"
	"golang.org/x/time/rate"
)

// ErrBatchInFlight is returned when ResolveBatch is called while a
// previous run on the same coordinator has not finished.
var ErrBatchInFlight = errors.New("geocoding batch already processing")

// RecordStore is the slice of the company record store the coordinator
// needs: read an existing coordinate pair and write a resolved one back.
type RecordStore interface {
	// Coordinates returns nil when the record has no coordinate pair yet
	Coordinates(ctx context.Context, id uint) (*Coordinate, error)
	// SetCoordinates refuses to overwrite an existing pair unless force
	SetCoordinates(ctx context.Context, id uint, coord Coordinate, force bool) error
}

// Request is one address to resolve
type Request struct {
	ID        uint   `json:"id"`
	Address   string `json:"address"`
	Provincia string `json:"provincia,omitempty"`
	Localidad string `json:"localidad,omitempty"`
}

// FullAddress joins the request fields into the lookup string
func (r Request) FullAddress() string {
	return FullAddress(r.Address, r.Localidad, r.Provincia)
}

// ItemResult is the per-request outcome. Every input id appears exactly
// once in a batch's result list, as a success or a typed failure.
type ItemResult struct {
	ID      uint     `json:"id"`
	Success bool     `json:"success"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Cached  bool     `json:"cached"`
	Source  string   `json:"source,omitempty"` // record, cache or provider
	Error   string   `json:"error,omitempty"`
}

// BatchStats aggregates a run for the caller
type BatchStats struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	Cached   int `json:"cached"`
	Failed   int `json:"failed"`
}

// BatchOptions tunes one run
type BatchOptions struct {
	// Force re-resolves records that already carry coordinates
	Force bool
	// OnProgress, when set, is invoked after each sub-batch settles
	OnProgress func(done, total int)
}

const (
	defaultSubBatchSize  = 4
	defaultSubBatchDelay = time.Second

	reasonRateLimited = "daily geocoding limit reached"
	reasonCancelled   = "batch cancelled"
	reasonNotFound    = "address not found"
)

// BatchCoordinator orchestrates resolving a list of addresses: record
// store first, then cache, then rate-budgeted provider sub-batches.
// At most one batch runs per coordinator instance; cache and budget are
// shared process state and survive across runs.
type BatchCoordinator struct {
	store    RecordStore
	cache    *CacheStore
	budget   *RateBudget
	resolver Resolver

	subBatchSize int
	pacer        *rate.Limiter

	mu      sync.Mutex
	running bool
}

func NewBatchCoordinator(store RecordStore, cache *CacheStore, budget *RateBudget, resolver Resolver, subBatchSize int, subBatchDelay time.Duration) *BatchCoordinator {
	if subBatchSize <= 0 {
		subBatchSize = defaultSubBatchSize
	}
	if subBatchDelay <= 0 {
		subBatchDelay = defaultSubBatchDelay
	}
	return &BatchCoordinator{
		store:        store,
		cache:        cache,
		budget:       budget,
		resolver:     resolver,
		subBatchSize: subBatchSize,
		pacer:        rate.NewLimiter(rate.Every(subBatchDelay), 1),
	}
}

// ResolveBatch resolves every request and returns one result per input
// id. Per-item failures never abort the run; only a second concurrent
// call does, with ErrBatchInFlight. Cancelling ctx stops new sub-batches
// but keeps everything already committed.
func (c *BatchCoordinator) ResolveBatch(ctx context.Context, requests []Request, opts BatchOptions) ([]ItemResult, BatchStats, error) {
	log := logger.GetLogger("geocoder")

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		batchRuns.WithLabelValues("rejected").Inc()
		return nil, BatchStats{}, ErrBatchInFlight
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	total := len(requests)
	log.Infof("Batch started: %d requests (force=%v)", total, opts.Force)

	results := make([]ItemResult, 0, total)
	var pending []Request

	// Phase 1: records that already have coordinates, then the cache.
	// Neither path consumes provider budget.
	for _, req := range requests {
		if !opts.Force {
			if coord, err := c.store.Coordinates(ctx, req.ID); err == nil && coord != nil {
				results = append(results, successResult(req.ID, *coord, true, "record"))
				continue
			}
		}

		full := req.FullAddress()
		if coord, ok := c.cache.Get(ctx, full); ok {
			c.budget.RecordCacheHit(ctx, req.ID)
			results = append(results, successResult(req.ID, coord, true, "cache"))
			c.writeBackRecord(ctx, req.ID, coord, opts.Force)
			continue
		}

		pending = append(pending, req)
	}

	// Phase 2: provider sub-batches, paced and budget-gated
	state := "completed"
	for start := 0; start < len(pending); start += c.subBatchSize {
		if err := c.pacer.Wait(ctx); err != nil {
			results = failRemaining(results, pending[start:], reasonCancelled)
			state = "cancelled"
			break
		}

		if !c.budget.CanProceed() {
			log.Warnf("Daily budget exhausted, failing %d remaining requests", len(pending)-start)
			results = failRemaining(results, pending[start:], reasonRateLimited)
			state = "rate_limited"
			break
		}

		end := start + c.subBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		sub := pending[start:end]

		subResults, rateLimited := c.resolveSubBatch(ctx, sub, opts.Force)
		results = append(results, subResults...)

		if opts.OnProgress != nil {
			opts.OnProgress(len(results), total)
		}

		if rateLimited {
			log.Warn("Provider rate limited mid-batch, halting further calls")
			results = failRemaining(results, pending[end:], reasonRateLimited)
			state = "rate_limited"
			break
		}
	}
	batchRuns.WithLabelValues(state).Inc()

	stats := tally(results)
	log.Infof("Batch finished (%s): %d total, %d resolved, %d cached, %d failed",
		state, stats.Total, stats.Resolved, stats.Cached, stats.Failed)
	return results, stats, nil
}

// resolveSubBatch fans the group out concurrently and settles all of it
// before returning. rateLimited reports whether any lookup hit the
// provider's ceiling.
func (c *BatchCoordinator) resolveSubBatch(ctx context.Context, sub []Request, force bool) ([]ItemResult, bool) {
	out := make([]ItemResult, len(sub))
	var wg sync.WaitGroup
	for i, req := range sub {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			out[i] = c.resolveOne(ctx, req, force)
		}(i, req)
	}
	wg.Wait()

	rateLimited := false
	for _, r := range out {
		if r.Error == reasonRateLimited {
			rateLimited = true
		}
	}
	return out, rateLimited
}

func (c *BatchCoordinator) resolveOne(ctx context.Context, req Request, force bool) ItemResult {
	full := req.FullAddress()
	res := c.resolver.Resolve(ctx, full)

	// only real round-trips consume daily budget
	if res.Contacted {
		c.budget.RecordCall(ctx, req.ID, res.Status == StatusResolved)
	}

	switch res.Status {
	case StatusResolved:
		c.cache.Set(ctx, full, res.Coord)
		c.writeBackRecord(ctx, req.ID, res.Coord, force)
		return successResult(req.ID, res.Coord, false, "provider")
	case StatusNotFound:
		// deliberately not cached: the next run retries it
		return ItemResult{ID: req.ID, Error: reasonNotFound}
	case StatusRateLimited:
		return ItemResult{ID: req.ID, Error: reasonRateLimited}
	default:
		msg := "temporary geocoding failure"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return ItemResult{ID: req.ID, Error: msg}
	}
}

// writeBackRecord persists a coordinate to the record store without
// blocking resolution; failures are logged and the batch result stands.
func (c *BatchCoordinator) writeBackRecord(ctx context.Context, id uint, coord Coordinate, force bool) {
	log := logger.GetLogger("geocoder")
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := c.store.SetCoordinates(bg, id, coord, force); err != nil {
			log.Warnf("Record write-back failed for empresa %d: %v", id, err)
		}
	}()
}

func successResult(id uint, coord Coordinate, cached bool, source string) ItemResult {
	lat, lng := coord.Lat, coord.Lng
	return ItemResult{
		ID:      id,
		Success: true,
		Lat:     &lat,
		Lng:     &lng,
		Cached:  cached,
		Source:  source,
	}
}

func failRemaining(results []ItemResult, remaining []Request, reason string) []ItemResult {
	for _, req := range remaining {
		results = append(results, ItemResult{ID: req.ID, Error: reason})
	}
	return results
}

func tally(results []ItemResult) BatchStats {
	stats := BatchStats{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Success && r.Cached:
			stats.Cached++
		case r.Success:
			stats.Resolved++
		default:
			stats.Failed++
		}
	}
	return stats
}
