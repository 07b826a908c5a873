// Package notify posts batch digests to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/seenimoa/newspulse/pkg/models"
)

// SlackNotifier sends Block Kit messages to an incoming webhook URL.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier registers the webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient overrides the HTTP client, for tests.
func (n *SlackNotifier) WithHTTPClient(client *http.Client) *SlackNotifier {
	n.client = client
	return n
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// PublishDigest posts the daily report: a header, the batch stats, and
// the top enriched items with links.
func (n *SlackNotifier) PublishDigest(ctx context.Context, stats models.BatchStats, items []models.EnrichedItem) error {
	if n.webhookURL == "" {
		return fmt.Errorf("notify: webhook url not configured")
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{
				Type:  "plain_text",
				Text:  fmt.Sprintf("PUBGM news report - %s", time.Now().Format("2006-01-02")),
				Emoji: true,
			},
		},
		{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Last batch*\ncollected %d | filtered %d | enriched %d | degraded %d",
					stats.Collected, stats.Filtered, stats.Enriched, stats.Degraded),
			},
		},
		{Type: "divider"},
	}

	const maxItems = 10
	for i, item := range items {
		if i >= maxItems {
			break
		}
		line := fmt.Sprintf("<%s|%s>", item.URL, item.Title)
		if item.MatchedCountry != "" {
			line += fmt.Sprintf(" _(%s)_", item.MatchedCountry)
		}
		if item.Summary != "" {
			line += "\n" + item.Summary
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: line},
		})
	}

	payload, err := json.Marshal(slackMessage{Blocks: blocks})
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: slack error: %s", resp.Status)
	}
	return nil
}
