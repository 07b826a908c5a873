package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/seenimoa/newspulse/internal/filter"
	"github.com/seenimoa/newspulse/internal/logging"
	"github.com/seenimoa/newspulse/pkg/models"
)

// Collector supplies raw news items.
type Collector interface {
	Collect(ctx context.Context) ([]models.NewsItem, error)
}

// ItemStore persists enriched items and remembers seen URLs.
type ItemStore interface {
	FilterNew(ctx context.Context, items []models.NewsItem) ([]models.NewsItem, error)
	SaveBatch(ctx context.Context, items []models.EnrichedItem) error
}

// Writer renders the batch output file.
type Writer interface {
	Append(items []models.EnrichedItem) error
}

// Notifier publishes the batch digest.
type Notifier interface {
	PublishDigest(ctx context.Context, stats models.BatchStats, items []models.EnrichedItem) error
}

// Pipeline is the end-to-end batch run: collect, filter, enrich,
// persist, report.
type Pipeline struct {
	collector Collector
	filter    *filter.Filter
	enricher  *Enricher
	store     ItemStore
	writer    Writer
	notifier  Notifier
}

// New assembles a pipeline. Store, writer and notifier may be nil;
// the corresponding stage is skipped.
func New(collector Collector, f *filter.Filter, enricher *Enricher, store ItemStore, writer Writer, notifier Notifier) *Pipeline {
	return &Pipeline{
		collector: collector,
		filter:    f,
		enricher:  enricher,
		store:     store,
		writer:    writer,
		notifier:  notifier,
	}
}

// Run executes one batch and returns its items and stats. Only a total
// collection failure is fatal; everything after that degrades.
func (p *Pipeline) Run(ctx context.Context) ([]models.EnrichedItem, models.BatchStats, error) {
	start := time.Now()
	var stats models.BatchStats

	collected, err := p.collector.Collect(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("pipeline: collect: %w", err)
	}
	stats.Collected = len(collected)

	if p.store != nil {
		fresh, err := p.store.FilterNew(ctx, collected)
		if err != nil {
			logging.Warn("seen-url filtering failed, processing full batch", "error", err)
		} else {
			collected = fresh
		}
	}

	filtered := p.filter.Apply(collected)
	stats.Filtered = len(filtered)
	stats.Dropped = len(collected) - len(filtered)

	items, deepCount := p.enricher.Enrich(ctx, filtered)
	for i := range items {
		if items[i].Degraded() {
			stats.Degraded++
		} else {
			stats.Enriched++
		}
	}
	stats.DeepAnalyzed = deepCount
	stats.Duration = time.Since(start)

	if p.store != nil {
		if err := p.store.SaveBatch(ctx, items); err != nil {
			logging.Error("persisting batch failed", "error", err)
		}
	}
	if p.writer != nil {
		if err := p.writer.Append(items); err != nil {
			logging.Error("writing csv failed", "error", err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.PublishDigest(ctx, stats, items); err != nil {
			logging.Warn("publishing digest failed", "error", err)
		}
	}

	logging.Info("batch complete",
		"collected", stats.Collected,
		"filtered", stats.Filtered,
		"enriched", stats.Enriched,
		"degraded", stats.Degraded,
		"duration", stats.Duration.String(),
	)
	return items, stats, nil
}
