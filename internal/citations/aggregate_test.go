package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-orchestrator/internal/model"
)

func TestAggregate_DeduplicatesAcrossQuestions(t *testing.T) {
	results := []model.QuestionResult{
		{QuestionNumber: 1, Question: "q1", Success: true, Citations: []string{"https://a.com", "https://b.com"}},
		{QuestionNumber: 2, Question: "q2", Success: true, Citations: []string{"https://b.com", "https://c.com"}},
		{QuestionNumber: 3, Question: "q3", Success: true, Citations: []string{"https://a.com"}},
	}

	m := Aggregate(results)

	assert.Equal(t, 3, m.Len())
	assert.Len(t, m.Refs("https://a.com"), 2)
	assert.Len(t, m.Refs("https://b.com"), 2)
	assert.Len(t, m.Refs("https://c.com"), 1)

	// Back-references keep question order.
	refsA := m.Refs("https://a.com")
	assert.Equal(t, 1, refsA[0].QuestionNumber)
	assert.Equal(t, 3, refsA[1].QuestionNumber)

	// First-seen URL order is stable.
	assert.Equal(t, []string{"https://a.com", "https://b.com", "https://c.com"}, m.URLs())
}

func TestAggregate_SkipsFailedQuestions(t *testing.T) {
	results := []model.QuestionResult{
		{QuestionNumber: 1, Success: true, Citations: []string{"https://a.com"}},
		{QuestionNumber: 2, Success: false, Citations: []string{"https://b.com"}},
	}

	m := Aggregate(results)
	assert.Equal(t, 1, m.Len())
	assert.False(t, m.Has("https://b.com"))
}

func TestAggregate_SkipsEmptyCitationStrings(t *testing.T) {
	results := []model.QuestionResult{
		{QuestionNumber: 1, Success: true, Citations: []string{"", "https://a.com", ""}},
	}

	m := Aggregate(results)
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Has("https://a.com"))
}

func TestAggregate_ExactMatchSemantics(t *testing.T) {
	// Trailing slashes make distinct entries; no URL normalization.
	results := []model.QuestionResult{
		{QuestionNumber: 1, Success: true, Citations: []string{"https://a.com", "https://a.com/"}},
	}

	m := Aggregate(results)
	assert.Equal(t, 2, m.Len())
}

func TestAggregate_EmptyInput(t *testing.T) {
	m := Aggregate(nil)
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.URLs())
}
