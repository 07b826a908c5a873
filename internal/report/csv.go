// Package report renders pipeline output: the CSV consumed by the
// revenue treemap site and a plain-text batch summary.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/newspulse/pkg/models"
)

// csvHeader is the column contract with the treemap site. Order matters.
var csvHeader = []string{
	"date", "country", "continent", "title", "summary",
	"url", "source", "category", "sentiment", "confidence", "provider",
}

// CSVWriter writes enriched items to a CSV file.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates a writer targeting path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Write replaces the file with header plus one row per item.
func (w *CSVWriter) Write(items []models.EnrichedItem) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: create directory: %w", err)
		}
	}
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("report: create csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	for _, item := range items {
		if err := cw.Write(row(item)); err != nil {
			return fmt.Errorf("report: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Append merges items into an existing CSV, skipping URLs already
// present. A missing file is treated as empty.
func (w *CSVWriter) Append(items []models.EnrichedItem) error {
	existing, err := w.readURLs()
	if err != nil {
		return err
	}
	fresh := make([]models.EnrichedItem, 0, len(items))
	for _, item := range items {
		if !existing[item.URL] {
			fresh = append(fresh, item)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	if len(existing) == 0 {
		return w.Write(fresh)
	}
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("report: open csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	for _, item := range fresh {
		if err := cw.Write(row(item)); err != nil {
			return fmt.Errorf("report: append row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *CSVWriter) readURLs() (map[string]bool, error) {
	urls := make(map[string]bool)
	f, err := os.Open(w.path)
	if os.IsNotExist(err) {
		return urls, nil
	}
	if err != nil {
		return nil, fmt.Errorf("report: read csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("report: parse csv: %w", err)
	}
	urlCol := 5
	for i, rec := range records {
		if i == 0 || len(rec) <= urlCol {
			continue
		}
		urls[rec[urlCol]] = true
	}
	return urls, nil
}

func row(item models.EnrichedItem) []string {
	return []string{
		item.PublishedAt.Format("2006-01-02"),
		item.MatchedCountry,
		item.Continent,
		item.Title,
		item.Summary,
		item.URL,
		item.SourceFeed,
		item.Category,
		string(item.Sentiment),
		string(item.ConfidenceTier),
		item.ProviderUsed,
	}
}

// Summary renders a human-readable batch report for logs and Slack.
func Summary(stats models.BatchStats, items []models.EnrichedItem) string {
	byProvider := make(map[string]int)
	for _, item := range items {
		if item.ProviderUsed != "" {
			byProvider[item.ProviderUsed]++
		}
	}
	providers := make([]string, 0, len(byProvider))
	for name := range byProvider {
		providers = append(providers, name)
	}
	sort.Strings(providers)

	var sb strings.Builder
	fmt.Fprintf(&sb, "collected %d, filtered %d, enriched %d", stats.Collected, stats.Filtered, stats.Enriched)
	if stats.DeepAnalyzed > 0 {
		fmt.Fprintf(&sb, ", deep %d", stats.DeepAnalyzed)
	}
	if stats.Degraded > 0 {
		fmt.Fprintf(&sb, ", degraded %d", stats.Degraded)
	}
	fmt.Fprintf(&sb, " in %s", stats.Duration.Round(time.Millisecond))
	for _, name := range providers {
		fmt.Fprintf(&sb, "\n  %s: %d", name, byProvider[name])
	}
	return sb.String()
}
