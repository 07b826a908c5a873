// Package feed collects candidate news items from Google News searches
// and configured RSS feeds.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/newspulse/internal/config"
	"github.com/seenimoa/newspulse/internal/infra"
	"github.com/seenimoa/newspulse/internal/logging"
	"github.com/seenimoa/newspulse/pkg/models"
)

const googleNewsBase = "https://news.google.com/rss/search"

// ErrAllFeedsFailed is returned when not a single feed could be
// fetched. Individual feed failures are logged and skipped.
var ErrAllFeedsFailed = fmt.Errorf("feed: all feeds failed")

// Collector fetches and normalizes RSS items.
type Collector struct {
	cfg     config.FeedsConfig
	parser  *gofeed.Parser
	limiter *infra.RateLimiter
	cache   *infra.Cache
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithLimiter overrides the request rate limiter.
func WithLimiter(l *infra.RateLimiter) CollectorOption {
	return func(c *Collector) { c.limiter = l }
}

// WithCache overrides the feed cache.
func WithCache(cache *infra.Cache) CollectorOption {
	return func(c *Collector) { c.cache = cache }
}

// NewCollector creates a collector for the configured keywords and
// feed URLs.
func NewCollector(cfg config.FeedsConfig, opts ...CollectorOption) *Collector {
	c := &Collector{
		cfg:     cfg,
		parser:  gofeed.NewParser(),
		limiter: infra.NewRateLimiter(10, time.Second),
		cache:   infra.NewCache(10 * time.Minute),
	}
	c.parser.UserAgent = "newspulse/1.0"
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchURL builds the Google News RSS search URL for one keyword.
func (c *Collector) SearchURL(keyword string) string {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("hl", c.cfg.Language)
	q.Set("gl", c.cfg.Country)
	q.Set("ceid", c.cfg.CEID)
	return googleNewsBase + "?" + q.Encode()
}

// FeedURLs returns every feed the collector will poll: one Google News
// search per keyword, the explicitly configured URLs, and any feeds
// listed in the OPML file.
func (c *Collector) FeedURLs() ([]string, error) {
	urls := make([]string, 0, len(c.cfg.Keywords)+len(c.cfg.URLs))
	for _, kw := range c.cfg.Keywords {
		urls = append(urls, c.SearchURL(kw))
	}
	urls = append(urls, c.cfg.URLs...)
	if c.cfg.OPMLPath != "" {
		fromOPML, err := LoadOPML(c.cfg.OPMLPath)
		if err != nil {
			return nil, fmt.Errorf("feed: load opml: %w", err)
		}
		urls = append(urls, fromOPML...)
	}
	return urls, nil
}

// Collect fetches every feed concurrently and merges the results.
// Items older than the configured maximum age are dropped, each feed
// contributes at most MaxPerFeed items, and duplicate URLs are
// removed keeping the first occurrence. The returned items carry a
// stable FeedOrder so later tie-breaks are reproducible.
func (c *Collector) Collect(ctx context.Context) ([]models.NewsItem, error) {
	urls, err := c.FeedURLs()
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("feed: no feeds configured")
	}

	cutoff := time.Now().AddDate(0, 0, -c.cfg.MaxAgeDays)

	type feedResult struct {
		index int
		items []models.NewsItem
	}

	var (
		mu      sync.Mutex
		results []feedResult
		failed  int
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, feedURL := range urls {
		i, feedURL := i, feedURL
		g.Go(func() error {
			items, err := c.fetchFeed(gctx, feedURL, cutoff)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// One broken feed must not sink the batch.
				logging.Warn("feed fetch failed", "url", feedURL, "error", err)
				failed++
				return nil
			}
			results = append(results, feedResult{index: i, items: items})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failed == len(urls) {
		return nil, ErrAllFeedsFailed
	}

	// Merge in configured feed order so FeedOrder is stable run to run.
	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })

	seen := make(map[string]bool)
	var merged []models.NewsItem
	for _, res := range results {
		for _, item := range res.items {
			if seen[item.URL] {
				continue
			}
			seen[item.URL] = true
			item.FeedOrder = len(merged)
			merged = append(merged, item)
		}
	}
	logging.Info("feed collection complete", "feeds", len(urls), "failed", failed, "items", len(merged))
	return merged, nil
}

// fetchFeed downloads and normalizes a single feed, serving from the
// cache when the feed was fetched recently.
func (c *Collector) fetchFeed(ctx context.Context, feedURL string, cutoff time.Time) ([]models.NewsItem, error) {
	if cached, ok := c.cache.Get(feedURL); ok {
		return cached.([]models.NewsItem), nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parsed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	sourceName := parsed.Title
	if sourceName == "" {
		sourceName = feedURL
	}

	items := make([]models.NewsItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		published := publishedTime(it)
		if published.Before(cutoff) {
			continue
		}
		items = append(items, models.NewsItem{
			Title:       strings.TrimSpace(it.Title),
			URL:         it.Link,
			PublishedAt: published,
			SourceFeed:  sourceName,
			RawText:     cleanHTML(it.Description),
		})
		if len(items) >= c.cfg.MaxPerFeed && c.cfg.MaxPerFeed > 0 {
			break
		}
	}

	c.cache.Set(feedURL, items)
	return items, nil
}

func publishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Now()
}

// cleanHTML strips markup from a feed description, collapsing
// whitespace. Google News descriptions are small HTML fragments.
func cleanHTML(raw string) string {
	if raw == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
