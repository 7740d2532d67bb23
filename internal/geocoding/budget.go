package geocoding

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/logger"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
)

const (
	defaultDailyLimit = 2500
	budgetWindow      = 24 * time.Hour

	// audit row sources
	SourceProvider = "provider"
	SourceCache    = "cache"
)

// RateBudget tracks provider calls inside the trailing 24h window and
// refuses further calls once the daily ceiling is hit. The count is
// rebuilt from the audit trail on cold start so a restart cannot reset
// the budget. Cache hits are audited too but never consume budget.
// A nil audit trail keeps the budget in-memory only.
type RateBudget struct {
	audit AuditLog
	limit int

	mu          sync.Mutex
	used        int
	windowStart time.Time

	now func() time.Time
}

func NewRateBudget(audit AuditLog, limit int) *RateBudget {
	if limit <= 0 {
		limit = defaultDailyLimit
	}
	b := &RateBudget{
		audit: audit,
		limit: limit,
		now:   time.Now,
	}
	b.reload()
	return b
}

// reload rebuilds the window from provider-sourced audit rows. Any
// query failure (including a missing table on first boot) degrades to
// an empty window. Cache-sourced rows never count.
func (b *RateBudget) reload() {
	if b.audit == nil {
		b.windowStart = b.now()
		return
	}
	log := logger.GetLogger("ratebudget")
	ctx := context.Background()
	cutoff := b.now().Add(-budgetWindow)

	count, err := b.audit.CountSince(ctx, cutoff, SourceProvider)
	if err != nil {
		log.Warnf("Could not reload budget from geocode_log, starting empty: %v", err)
		b.windowStart = b.now()
		return
	}
	oldest, err := b.audit.OldestSince(ctx, cutoff, SourceProvider)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.used = int(count)
	if err == nil && !oldest.IsZero() {
		b.windowStart = oldest
	} else {
		b.windowStart = b.now()
	}
	log.Infof("Budget reloaded: %d/%d provider calls in current window", b.used, b.limit)
}

// rollLocked resets the window once it has fully elapsed
func (b *RateBudget) rollLocked() {
	if b.now().Sub(b.windowStart) >= budgetWindow {
		b.used = 0
		b.windowStart = b.now()
	}
}

// CanProceed reports whether another provider call fits in the window
func (b *RateBudget) CanProceed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return b.used < b.limit
}

// RecordCall counts one actual provider round-trip and appends the
// audit row. Only callers that really reached the provider may use it.
func (b *RateBudget) RecordCall(ctx context.Context, empresaID uint, success bool) {
	b.mu.Lock()
	b.rollLocked()
	if b.used == 0 {
		b.windowStart = b.now()
	}
	b.used++
	b.mu.Unlock()

	b.appendLog(ctx, empresaID, SourceProvider, success)
}

// RecordCacheHit audits a cache-served resolution without touching the
// window counter.
func (b *RateBudget) RecordCacheHit(ctx context.Context, empresaID uint) {
	b.appendLog(ctx, empresaID, SourceCache, true)
}

func (b *RateBudget) appendLog(ctx context.Context, empresaID uint, source string, success bool) {
	if b.audit == nil {
		return
	}
	log := logger.GetLogger("ratebudget")
	row := models.GeocodeLog{
		EmpresaID: empresaID,
		Source:    source,
		Success:   success,
	}
	if err := b.audit.Append(ctx, &row); err != nil {
		log.Warnf("Failed to append geocode_log row: %v", err)
	}
}

// BudgetSnapshot is the stats view of the current window
type BudgetSnapshot struct {
	Used      int
	Limit     int
	Remaining int
	CanMake   bool
}

func (b *RateBudget) Snapshot() BudgetSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	remaining := b.limit - b.used
	if remaining < 0 {
		remaining = 0
	}
	return BudgetSnapshot{
		Used:      b.used,
		Limit:     b.limit,
		Remaining: remaining,
		CanMake:   b.used < b.limit,
	}
}

// HitRate returns the share of the last day's resolutions served from
// cache, as a 0-100 percentage with one decimal. Zero when the log is
// empty or unreadable.
func (b *RateBudget) HitRate(ctx context.Context) float64 {
	if b.audit == nil {
		return 0
	}
	cutoff := b.now().Add(-budgetWindow)

	total, err := b.audit.CountSince(ctx, cutoff, "")
	if err != nil || total == 0 {
		return 0
	}
	hits, err := b.audit.CountSince(ctx, cutoff, SourceCache)
	if err != nil {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*1000) / 10
}
