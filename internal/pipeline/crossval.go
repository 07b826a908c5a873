package pipeline

import (
	"github.com/seenimoa/newspulse/pkg/models"
	"github.com/seenimoa/newspulse/pkg/utils"
)

// crossValThreshold is the title similarity above which two items from
// different feeds are treated as independent reports of one story.
const crossValThreshold = 0.7

// CrossValidate grades successful items by corroboration: an item
// confirmed by a near-identical headline from a different source feed
// becomes high confidence, an unconfirmed one stays medium. Degraded
// items are left untouched.
func CrossValidate(items []models.EnrichedItem) {
	for i := range items {
		if items[i].Degraded() {
			continue
		}
		items[i].ConfidenceTier = models.ConfidenceMedium
		for j := range items {
			if i == j || items[i].SourceFeed == items[j].SourceFeed {
				continue
			}
			if utils.JaccardSimilarity(items[i].Title, items[j].Title) > crossValThreshold {
				items[i].ConfidenceTier = models.ConfidenceHigh
				break
			}
		}
	}
}
