// Package models defines the shared data types that flow through the
// enrichment pipeline: raw feed items, filter results, enriched items,
// and provider quota snapshots.
package models

import (
	"fmt"
	"time"
)

// ItemState tracks an enriched item's position in the pipeline
// lifecycle. Collection and filtering happen before an EnrichedItem
// exists, so the states start at classification.
type ItemState string

const (
	StateClassified   ItemState = "classified"
	StateDeepAnalyzed ItemState = "deep_analyzed"
	StateFinalized    ItemState = "finalized"
)

// Direction indicates the revenue/traffic direction a headline implies.
type Direction string

const (
	DirectionGrowth  Direction = "growth"
	DirectionDecline Direction = "decline"
	DirectionNeutral Direction = "neutral"
)

// ConfidenceTier grades how much we trust an enriched item.
type ConfidenceTier string

const (
	ConfidenceHigh     ConfidenceTier = "high"
	ConfidenceMedium   ConfidenceTier = "medium"
	ConfidenceDegraded ConfidenceTier = "degraded"
)

// Sentiment is the model-assigned tone of an article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// NewsItem is a raw article as collected from an RSS feed.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	SourceFeed  string    `json:"source_feed"`
	RawText     string    `json:"raw_text"`
	// FeedOrder is the item's position in the overall collection order.
	// It provides the stable tie-break when items share a relevance score.
	FeedOrder int `json:"feed_order"`
}

// FilterResult is a NewsItem that passed the relevance filter.
type FilterResult struct {
	NewsItem

	RelevanceScore float64   `json:"relevance_score"`
	MatchedCountry string    `json:"matched_country,omitempty"`
	Continent      string    `json:"continent,omitempty"`
	Direction      Direction `json:"direction"`
}

// EnrichedItem is the final pipeline output for a single article.
type EnrichedItem struct {
	FilterResult

	Summary        string         `json:"summary"`
	Sentiment      Sentiment      `json:"sentiment"`
	Category       string         `json:"category,omitempty"`
	ConfidenceTier ConfidenceTier `json:"confidence_tier"`
	ProviderUsed   string         `json:"provider_used,omitempty"`
	State          ItemState      `json:"state"`
}

// Degraded reports whether the item fell back to RSS-only output.
func (e *EnrichedItem) Degraded() bool {
	return e.ConfidenceTier == ConfidenceDegraded
}

// String returns a short human-readable summary of the item.
func (e *EnrichedItem) String() string {
	return fmt.Sprintf("[%s/%s] %q via %s", e.State, e.ConfidenceTier, e.Title, e.ProviderUsed)
}

// ProviderQuota is a point-in-time snapshot of a provider's call budget.
type ProviderQuota struct {
	Provider        string    `json:"provider"`
	WindowStart     time.Time `json:"window_start"`
	DayStart        time.Time `json:"day_start"`
	CallsThisMinute int       `json:"calls_this_minute"`
	CallsToday      int       `json:"calls_today"`
	MinuteLimit     int       `json:"minute_limit"`
	DailyLimit      int       `json:"daily_limit"`
}

// RemainingMinute returns how many calls are left in the current minute window.
func (q ProviderQuota) RemainingMinute() int {
	if r := q.MinuteLimit - q.CallsThisMinute; r > 0 {
		return r
	}
	return 0
}

// RemainingDay returns how many calls are left in the current day window.
func (q ProviderQuota) RemainingDay() int {
	if r := q.DailyLimit - q.CallsToday; r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether either window has no budget left.
func (q ProviderQuota) Exhausted() bool {
	return q.RemainingMinute() == 0 || q.RemainingDay() == 0
}

// BatchStats summarizes a completed pipeline run for reporting.
type BatchStats struct {
	Collected    int           `json:"collected"`
	Filtered     int           `json:"filtered"`
	Enriched     int           `json:"enriched"`
	DeepAnalyzed int           `json:"deep_analyzed"`
	Degraded     int           `json:"degraded"`
	Dropped      int           `json:"dropped"`
	Duration     time.Duration `json:"duration"`
}
