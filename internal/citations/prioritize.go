package citations

import (
	"sort"

	"github.com/sells-group/research-orchestrator/internal/model"
)

// Prioritize ranks the aggregated citations by reference count
// (descending) and truncates to maxCitations. The sort is stable: ties
// keep their first-seen order from aggregation, which reflects
// lowest-question-number-first insertion. Returns the ranked subset
// (Rank is the 1-based position, reused as citation_id downstream) and
// the count of citations that fell below the budget.
//
// Ranking by how many independent questions cited a URL bounds the
// expensive scraping work by a relevance signal instead of processing
// order.
func Prioritize(m *model.CitationMap, maxCitations int) ([]model.PrioritizedCitation, int) {
	urls := m.URLs()
	ranked := make([]string, len(urls))
	copy(ranked, urls)

	sort.SliceStable(ranked, func(i, j int) bool {
		return len(m.Refs(ranked[i])) > len(m.Refs(ranked[j]))
	})

	skipped := 0
	if maxCitations >= 0 && len(ranked) > maxCitations {
		skipped = len(ranked) - maxCitations
		ranked = ranked[:maxCitations]
	}

	out := make([]model.PrioritizedCitation, 0, len(ranked))
	for i, url := range ranked {
		out = append(out, model.PrioritizedCitation{
			Rank: i + 1,
			URL:  url,
			Refs: m.Refs(url),
		})
	}
	return out, skipped
}

// SkippedCitations lists the citations that did not make the prioritized
// cut, ordered by reference count descending (ties in first-seen order),
// for the "skipped" section of the citation index.
func SkippedCitations(m *model.CitationMap, prioritized []model.PrioritizedCitation) []model.PrioritizedCitation {
	kept := make(map[string]bool, len(prioritized))
	for _, c := range prioritized {
		kept[c.URL] = true
	}

	var rest []string
	for _, url := range m.URLs() {
		if !kept[url] {
			rest = append(rest, url)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return len(m.Refs(rest[i])) > len(m.Refs(rest[j]))
	})

	out := make([]model.PrioritizedCitation, 0, len(rest))
	for _, url := range rest {
		out = append(out, model.PrioritizedCitation{URL: url, Refs: m.Refs(url)})
	}
	return out
}
