// Package policy decides, for a single news item, which providers to
// try and in what order. It is pure: the same inputs always produce
// the same decision, which keeps provider selection testable without
// any network or clock.
package policy

import "github.com/seenimoa/newspulse/pkg/models"

// Provider names in cost order. Free tiers come first so paid vendors
// are only reached when the free ones are exhausted or failing.
var (
	freeOrder = []string{"groq", "gemini"}
	paidOrder = []string{"openai", "anthropic"}
)

// Decision is the plan for enriching one item.
type Decision struct {
	// Chain is the ordered list of providers to attempt. Empty means
	// every eligible provider is exhausted and the item must be
	// finalized degraded.
	Chain []string
	// Deep reports whether the item qualifies for the deep-analysis
	// pass in addition to classification.
	Deep bool
}

// Input carries everything the policy needs to decide.
type Input struct {
	// Rank is the item's zero-based position after sorting by
	// relevance score (ties broken by feed order).
	Rank int
	// DeepCutoff is the number of top-ranked items that qualify for
	// deep analysis.
	DeepCutoff int
	// UsePaid gates the paid vendors. When false, OpenAI and
	// Anthropic are never part of the chain and deep analysis is off.
	UsePaid bool
	// Primary, when set, is tried before the default cost order.
	Primary string
	// Quotas holds the current quota snapshots, keyed by provider.
	// Snapshots are advisory: a provider absent from the map is
	// treated as available.
	Quotas map[string]models.ProviderQuota
	// Available restricts the chain to providers that actually have
	// credentials. Nil means all providers are available.
	Available map[string]bool
	// Dead marks providers that failed authentication this batch and
	// must not be retried.
	Dead map[string]bool
}

// Plan computes the provider chain and deep-analysis eligibility for
// one item.
func Plan(in Input) Decision {
	primary := in.Primary
	if !in.UsePaid && isPaid(primary) {
		// The paid gate beats the primary preference.
		primary = ""
	}

	order := make([]string, 0, 1+len(freeOrder)+len(paidOrder))
	if primary != "" {
		order = append(order, primary)
	}
	for _, name := range freeOrder {
		if name != primary {
			order = append(order, name)
		}
	}
	if in.UsePaid {
		for _, name := range paidOrder {
			if name != primary {
				order = append(order, name)
			}
		}
	}

	chain := make([]string, 0, len(order))
	for _, name := range order {
		if in.Available != nil && !in.Available[name] {
			continue
		}
		if in.Dead[name] {
			continue
		}
		if q, ok := in.Quotas[name]; ok && q.Exhausted() {
			continue
		}
		chain = append(chain, name)
	}

	return Decision{
		Chain: chain,
		Deep:  in.UsePaid && in.DeepCutoff > 0 && in.Rank < in.DeepCutoff,
	}
}

func isPaid(name string) bool {
	for _, p := range paidOrder {
		if p == name {
			return true
		}
	}
	return false
}

// RankItems orders filtered items by relevance score descending,
// breaking ties with the original feed order so ranking is stable run
// to run. It returns a new slice and leaves the input untouched.
func RankItems(items []models.FilterResult) []models.FilterResult {
	ranked := make([]models.FilterResult, len(items))
	copy(ranked, items)
	// Insertion sort keeps the tie-break rule obvious and the input
	// sizes here are small.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0; j-- {
			a, b := ranked[j-1], ranked[j]
			if a.RelevanceScore > b.RelevanceScore {
				break
			}
			if a.RelevanceScore == b.RelevanceScore && a.FeedOrder <= b.FeedOrder {
				break
			}
			ranked[j-1], ranked[j] = b, a
		}
	}
	return ranked
}
