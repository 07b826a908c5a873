// Package quota tracks per-provider API call budgets over rolling
// minute and day windows so the pipeline never exceeds free-tier limits.
package quota

import (
	"sync"
	"time"

	"github.com/seenimoa/newspulse/internal/config"
	"github.com/seenimoa/newspulse/pkg/models"
)

// Limits defines the call budget for one provider.
type Limits struct {
	PerMinute int
	PerDay    int
}

// DefaultLimits returns the published free-tier limits per provider.
func DefaultLimits() map[string]Limits {
	return map[string]Limits{
		"groq":      {PerMinute: 30, PerDay: 14400},
		"gemini":    {PerMinute: 15, PerDay: 1500},
		"openai":    {PerMinute: 500, PerDay: 10000},
		"anthropic": {PerMinute: 50, PerDay: 1000},
	}
}

// LimitsFromConfig builds the limits table from configuration, falling
// back to defaults for zero values.
func LimitsFromConfig(cfg config.QuotaConfig) map[string]Limits {
	limits := DefaultLimits()
	apply := func(name string, qc config.ProviderQuotaConfig) {
		l := limits[name]
		if qc.MinuteLimit > 0 {
			l.PerMinute = qc.MinuteLimit
		}
		if qc.DailyLimit > 0 {
			l.PerDay = qc.DailyLimit
		}
		limits[name] = l
	}
	apply("groq", cfg.Groq)
	apply("gemini", cfg.Gemini)
	apply("openai", cfg.OpenAI)
	apply("anthropic", cfg.Anthropic)
	return limits
}

type window struct {
	minuteStart time.Time
	dayStart    time.Time
	minuteCalls int
	dayCalls    int
	limits      Limits
}

// Tracker serializes quota accounting across concurrent workers. All
// methods are safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker with the given per-provider limits.
func NewTracker(limits map[string]Limits, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		windows: make(map[string]*window, len(limits)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	start := t.now()
	for name, l := range limits {
		t.windows[name] = &window{
			minuteStart: start,
			dayStart:    start,
			limits:      l,
		}
	}
	return t
}

// roll resets any window whose period has elapsed. Caller holds t.mu.
func (t *Tracker) roll(w *window, now time.Time) {
	if now.Sub(w.minuteStart) >= time.Minute {
		w.minuteStart = now
		w.minuteCalls = 0
	}
	if now.Sub(w.dayStart) >= 24*time.Hour {
		w.dayStart = now
		w.dayCalls = 0
	}
}

// CanCall reports whether one more call to the provider fits inside
// both windows. Unknown providers are always allowed.
func (t *Tracker) CanCall(provider string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[provider]
	if !ok {
		return true
	}
	t.roll(w, t.now())
	return w.minuteCalls < w.limits.PerMinute && w.dayCalls < w.limits.PerDay
}

// TryAcquire atomically claims one call slot for the provider: the
// window check and the increment happen under a single lock, so
// concurrent callers can never oversubscribe a limit the way a
// separate CanCall/RecordCall pair could. Unknown providers are always
// allowed and not counted.
func (t *Tracker) TryAcquire(provider string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[provider]
	if !ok {
		return true
	}
	t.roll(w, t.now())
	if w.minuteCalls >= w.limits.PerMinute || w.dayCalls >= w.limits.PerDay {
		return false
	}
	w.minuteCalls++
	w.dayCalls++
	return true
}

// RecordCall counts one call against the provider's windows. It must be
// called after every request regardless of the request's outcome.
func (t *Tracker) RecordCall(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[provider]
	if !ok {
		return
	}
	t.roll(w, t.now())
	w.minuteCalls++
	w.dayCalls++
}

// Snapshot returns the current quota state for one provider.
func (t *Tracker) Snapshot(provider string) (models.ProviderQuota, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.windows[provider]
	if !ok {
		return models.ProviderQuota{}, false
	}
	t.roll(w, t.now())
	return models.ProviderQuota{
		Provider:        provider,
		WindowStart:     w.minuteStart,
		DayStart:        w.dayStart,
		CallsThisMinute: w.minuteCalls,
		CallsToday:      w.dayCalls,
		MinuteLimit:     w.limits.PerMinute,
		DailyLimit:      w.limits.PerDay,
	}, true
}

// SnapshotAll returns the quota state for every tracked provider.
func (t *Tracker) SnapshotAll() map[string]models.ProviderQuota {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	out := make(map[string]models.ProviderQuota, len(t.windows))
	for name, w := range t.windows {
		t.roll(w, now)
		out[name] = models.ProviderQuota{
			Provider:        name,
			WindowStart:     w.minuteStart,
			DayStart:        w.dayStart,
			CallsThisMinute: w.minuteCalls,
			CallsToday:      w.dayCalls,
			MinuteLimit:     w.limits.PerMinute,
			DailyLimit:      w.limits.PerDay,
		}
	}
	return out
}
