package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/research-orchestrator/internal/model"
)

// mapWithCounts builds a citation map where each URL has the given
// number of back-references, inserted in slice order.
func mapWithCounts(urls []string, counts []int) *model.CitationMap {
	m := model.NewCitationMap()
	for i, url := range urls {
		for j := 0; j < counts[i]; j++ {
			m.Add(url, model.QuestionRef{QuestionNumber: j + 1})
		}
	}
	return m
}

func TestPrioritize_RanksByRefCountAndTruncates(t *testing.T) {
	m := mapWithCounts(
		[]string{"https://one.com", "https://five-a.com", "https://three.com", "https://five-b.com"},
		[]int{1, 5, 3, 5},
	)

	got, skipped := Prioritize(m, 2)

	assert.Len(t, got, 2)
	assert.Equal(t, 2, skipped)
	// Counts 5,5 win; the tie keeps first-seen order.
	assert.Equal(t, "https://five-a.com", got[0].URL)
	assert.Equal(t, "https://five-b.com", got[1].URL)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[1].Rank)
	assert.Equal(t, 5, got[0].RefCount())
}

func TestPrioritize_FewerThanMax(t *testing.T) {
	m := mapWithCounts([]string{"https://a.com", "https://b.com"}, []int{2, 1})

	got, skipped := Prioritize(m, 50)
	assert.Len(t, got, 2)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, "https://a.com", got[0].URL)
}

func TestPrioritize_StableTieOrder(t *testing.T) {
	urls := []string{"https://a.com", "https://b.com", "https://c.com", "https://d.com"}
	m := mapWithCounts(urls, []int{1, 1, 1, 1})

	got, skipped := Prioritize(m, 10)
	assert.Equal(t, 0, skipped)
	for i, c := range got {
		assert.Equal(t, urls[i], c.URL)
		assert.Equal(t, i+1, c.Rank)
	}
}

func TestPrioritize_Empty(t *testing.T) {
	got, skipped := Prioritize(model.NewCitationMap(), 10)
	assert.Empty(t, got)
	assert.Equal(t, 0, skipped)
}

func TestPrioritize_DoesNotMutateMap(t *testing.T) {
	m := mapWithCounts([]string{"https://a.com", "https://b.com"}, []int{1, 3})
	_, _ = Prioritize(m, 1)
	// First-seen order in the map survives ranking.
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, m.URLs())
}

func TestSkippedCitations(t *testing.T) {
	m := mapWithCounts(
		[]string{"https://a.com", "https://b.com", "https://c.com"},
		[]int{3, 1, 2},
	)
	prioritized, skipped := Prioritize(m, 1)
	assert.Equal(t, 2, skipped)

	rest := SkippedCitations(m, prioritized)
	assert.Len(t, rest, 2)
	assert.Equal(t, "https://c.com", rest[0].URL)
	assert.Equal(t, "https://b.com", rest[1].URL)
}
