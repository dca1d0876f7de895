package citations

import (
	"go.uber.org/zap"

	"github.com/sells-group/research-orchestrator/internal/model"
)

// Aggregate merges the citation lists of all question results into a
// URL → back-references map, deduplicating by exact URL string. Failed
// and citation-less results are skipped; empty citation strings are
// logged and dropped. Back-references under each URL preserve the order
// the results were folded in (lowest question number first), and the
// map records first-seen URL order for stable downstream ranking.
// Purely structural; ranking and truncation happen in Prioritize.
func Aggregate(results []model.QuestionResult) *model.CitationMap {
	m := model.NewCitationMap()

	for _, res := range results {
		if !res.Success || len(res.Citations) == 0 {
			continue
		}
		ref := model.QuestionRef{
			QuestionNumber: res.QuestionNumber,
			QuestionText:   res.Question,
		}
		for _, url := range res.Citations {
			if url == "" {
				zap.L().Warn("citations: skipping empty citation",
					zap.Int("question", res.QuestionNumber))
				continue
			}
			m.Add(url, ref)
		}
	}

	return m
}
