// Package quota tracks monthly usage of a paid upstream against a hard
// ceiling. The count is advisory: it exists to stay safely under a quota,
// not to bill precisely, so reads fail open and write failures are logged
// and swallowed.
package quota

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMonthlyLimit stays within the provider's free tier.
const DefaultMonthlyLimit = 1000

// UsageStore persists the full month-keyed usage record.
type UsageStore interface {
	// Read returns the complete usage record. Implementations return an
	// error for missing or corrupt storage; the Tracker treats that as an
	// empty record.
	Read(ctx context.Context) (map[string]int, error)

	// Write replaces the complete usage record.
	Write(ctx context.Context, usage map[string]int) error
}

// Tracker gates calls against the monthly ceiling. All mutation funnels
// through a single mutex so concurrent increments within one process do
// not lose each other's writes.
type Tracker struct {
	store UsageStore
	limit int

	mu  sync.Mutex
	now func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a Tracker over the given store. A non-positive limit
// falls back to DefaultMonthlyLimit.
func NewTracker(store UsageStore, limit int, opts ...Option) *Tracker {
	if limit <= 0 {
		limit = DefaultMonthlyLimit
	}
	t := &Tracker{store: store, limit: limit, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Limit returns the configured monthly ceiling.
func (t *Tracker) Limit() int { return t.limit }

// MonthKey formats the UTC year-month key for a given instant.
func MonthKey(at time.Time) string {
	return at.UTC().Format("2006-01")
}

// CurrentUsage returns this month's count. Any read failure counts as
// zero: failing closed would silently disable a healthy provider.
func (t *Tracker) CurrentUsage(ctx context.Context) int {
	usage, err := t.store.Read(ctx)
	if err != nil {
		return 0
	}
	return usage[MonthKey(t.now())]
}

// Increment adds one successful call to the current month. The full
// record is read, modified, and rewritten so historical months survive.
func (t *Tracker) Increment(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	usage := t.readAll(ctx)
	key := MonthKey(t.now())
	usage[key] = usage[key] + 1
	t.writeAll(ctx, usage)
}

// ForceToLimit pins the current month at the ceiling, used when the
// upstream itself reports an over-limit condition: further calls stop for
// the rest of the month without waiting for organic increments.
func (t *Tracker) ForceToLimit(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	usage := t.readAll(ctx)
	usage[MonthKey(t.now())] = t.limit
	t.writeAll(ctx, usage)
}

func (t *Tracker) readAll(ctx context.Context) map[string]int {
	usage, err := t.store.Read(ctx)
	if err != nil || usage == nil {
		return make(map[string]int)
	}
	return usage
}

func (t *Tracker) writeAll(ctx context.Context, usage map[string]int) {
	if err := t.store.Write(ctx, usage); err != nil {
		zap.L().Warn("quota: could not save usage", zap.Error(err))
	}
}
