// Package pipeline drives items through the enrichment lifecycle:
// collected feeds are filtered, ranked, enriched by the cheapest
// available LLM provider, and finalized. A provider failure degrades
// individual items, never the batch.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/newspulse/internal/config"
	"github.com/seenimoa/newspulse/internal/filter"
	"github.com/seenimoa/newspulse/internal/llm"
	"github.com/seenimoa/newspulse/internal/logging"
	"github.com/seenimoa/newspulse/internal/policy"
	"github.com/seenimoa/newspulse/internal/quota"
	"github.com/seenimoa/newspulse/pkg/models"
	"github.com/seenimoa/newspulse/pkg/utils"
)

// degradedSummaryLen bounds the RSS-only fallback summary.
const degradedSummaryLen = 280

// Enricher runs the LLM enrichment stage over a ranked batch.
type Enricher struct {
	providers     llm.Registry
	tracker       *quota.Tracker
	batchSize     int
	deepCutoff    int
	workers       int
	timeout       time.Duration
	usePaid       bool
	crossValidate bool
	primary       string

	mu   sync.Mutex
	dead map[string]bool
}

// NewEnricher wires the enrichment stage from configuration.
func NewEnricher(providers llm.Registry, tracker *quota.Tracker, cfg *config.Config) *Enricher {
	return &Enricher{
		providers:     providers,
		tracker:       tracker,
		batchSize:     cfg.App.BatchSize,
		deepCutoff:    cfg.App.DeepCutoff,
		workers:       cfg.App.Workers,
		timeout:       time.Duration(cfg.App.TimeoutSeconds) * time.Second,
		usePaid:       cfg.LLM.UsePaid,
		crossValidate: cfg.LLM.CrossValidate,
		primary:       cfg.LLM.Primary,
		dead:          make(map[string]bool),
	}
}

// Enrich processes every filtered item and returns exactly one
// finalized EnrichedItem per input, in rank order, plus the number of
// items that received a deep-analysis pass. Items the batch could not
// enrich come back degraded rather than missing.
func (e *Enricher) Enrich(ctx context.Context, filtered []models.FilterResult) ([]models.EnrichedItem, int) {
	ranked := policy.RankItems(filtered)
	if e.batchSize > 0 && len(ranked) > e.batchSize {
		ranked = ranked[:e.batchSize]
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	results := make([]models.EnrichedItem, len(ranked))
	deep := make([]bool, len(ranked))

	g := new(errgroup.Group)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for i, item := range ranked {
		i, item := i, item
		g.Go(func() error {
			results[i], deep[i] = e.enrichOne(ctx, item, i)
			return nil
		})
	}
	g.Wait()

	deepCount := 0
	for _, d := range deep {
		if d {
			deepCount++
		}
	}
	e.assignConfidence(results)
	return results, deepCount
}

// enrichOne walks the provider chain for a single item. An empty or
// fully failing chain finalizes the item degraded. The second return
// reports whether the deep-analysis pass succeeded.
func (e *Enricher) enrichOne(ctx context.Context, item models.FilterResult, rank int) (models.EnrichedItem, bool) {
	if ctx.Err() != nil {
		return e.degrade(item), false
	}

	dec := policy.Plan(policy.Input{
		Rank:       rank,
		DeepCutoff: e.deepCutoff,
		UsePaid:    e.usePaid,
		Primary:    e.primary,
		Quotas:     e.tracker.SnapshotAll(),
		Available:  e.available(),
		Dead:       e.deadSnapshot(),
	})
	if len(dec.Chain) == 0 {
		logging.Warn("no providers available", "title", item.Title)
		return e.degrade(item), false
	}

	enr, ok := e.callChain(ctx, item, dec.Chain, llm.ModeClassify)
	if !ok {
		return e.degrade(item), false
	}

	out := models.EnrichedItem{
		FilterResult:   item,
		Summary:        enr.Summary,
		Sentiment:      enr.Sentiment,
		Category:       enr.Category,
		ProviderUsed:   enr.Provider,
		ConfidenceTier: models.ConfidenceMedium,
		State:          models.StateClassified,
	}
	if enr.Direction != "" {
		out.Direction = enr.Direction
	}

	deepDone := false
	if dec.Deep {
		if deep, ok := e.callChain(ctx, item, dec.Chain, llm.ModeAnalyze); ok {
			out.Summary = deep.Summary
			out.Sentiment = deep.Sentiment
			if deep.Category != "" {
				out.Category = deep.Category
			}
			if deep.Direction != "" {
				out.Direction = deep.Direction
			}
			out.ProviderUsed = deep.Provider
			out.State = models.StateDeepAnalyzed
			deepDone = true
		}
	}

	final := out
	final.State = models.StateFinalized
	if final.Category == "" {
		final.Category = filter.Category(item.NewsItem)
	}
	return final, deepDone
}

// callChain tries each provider in order, moving to the next on any
// retryable failure. Every attempt is counted against the quota,
// successful or not; the slot is claimed atomically so concurrent
// workers cannot burst past a limit between check and increment.
func (e *Enricher) callChain(ctx context.Context, item models.FilterResult, chain []string, mode llm.Mode) (*llm.Enrichment, bool) {
	for _, name := range chain {
		provider, ok := e.providers[name]
		if !ok || e.isDead(name) {
			continue
		}
		if !e.tracker.TryAcquire(name) {
			continue
		}

		enr, err := provider.Enrich(ctx, item, mode)
		if err == nil {
			return enr, true
		}

		switch {
		case errors.Is(err, llm.ErrAuthInvalid):
			// A bad key fails every call. Stop using the provider for
			// the rest of the batch.
			logging.Error("provider auth failed, disabling for batch", "provider", name, "error", err)
			e.markDead(name)
		case llm.IsRetryable(err):
			logging.Warn("provider call failed, trying next", "provider", name, "mode", string(mode), "error", err)
		default:
			logging.Warn("provider call failed", "provider", name, "error", err)
		}
		if ctx.Err() != nil {
			return nil, false
		}
	}
	return nil, false
}

// degrade finalizes an item with RSS-only fields.
func (e *Enricher) degrade(item models.FilterResult) models.EnrichedItem {
	return models.EnrichedItem{
		FilterResult:   item,
		Summary:        utils.Truncate(item.RawText, degradedSummaryLen),
		Sentiment:      models.SentimentNeutral,
		Category:       filter.Category(item.NewsItem),
		ConfidenceTier: models.ConfidenceDegraded,
		State:          models.StateFinalized,
	}
}

// assignConfidence settles the final tier for every successful item.
// With cross-validation on, an item is only "high" when an independent
// feed carries a near-identical headline; otherwise every successful
// enrichment is trusted as high.
func (e *Enricher) assignConfidence(items []models.EnrichedItem) {
	if !e.crossValidate {
		for i := range items {
			if !items[i].Degraded() {
				items[i].ConfidenceTier = models.ConfidenceHigh
			}
		}
		return
	}
	CrossValidate(items)
}

func (e *Enricher) available() map[string]bool {
	avail := make(map[string]bool, len(e.providers))
	for name := range e.providers {
		avail[name] = true
	}
	return avail
}

func (e *Enricher) isDead(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dead[name]
}

func (e *Enricher) markDead(name string) {
	e.mu.Lock()
	e.dead[name] = true
	e.mu.Unlock()
}

func (e *Enricher) deadSnapshot() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := make(map[string]bool, len(e.dead))
	for k, v := range e.dead {
		snap[k] = v
	}
	return snap
}
