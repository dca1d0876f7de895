package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-orchestrator/internal/citations"
	"github.com/sells-group/research-orchestrator/internal/model"
	"github.com/sells-group/research-orchestrator/internal/resilience"
	"github.com/sells-group/research-orchestrator/internal/store"
)

type fakeResearcher struct {
	answers   map[int]string
	citations map[int][]string
	errs      map[int]error
}

func (f *fakeResearcher) Research(_ context.Context, q model.Question) (string, []string, error) {
	if err := f.errs[q.Number]; err != nil {
		return "", nil, err
	}
	return f.answers[q.Number], f.citations[q.Number], nil
}

func (f *fakeResearcher) Summarize(_ context.Context, q model.Question, _ string) (string, error) {
	return "summary for question " + q.Text, nil
}

type passScraper struct{}

func (passScraper) Scrape(_ context.Context, url string) (*citations.ScrapedPage, error) {
	body := ""
	for i := 0; i < 20; i++ {
		body += "content from " + url + ". "
	}
	return &citations.ScrapedPage{Markdown: body}, nil
}

type passCleaner struct{}

func (passCleaner) Clean(_ context.Context, _, url string, _ []model.QuestionRef) (string, error) {
	return "# Cleaned\n\nFrom " + url, nil
}

type passPrechecker struct{}

func (passPrechecker) Probe(_ context.Context, _ string, _ time.Duration) citations.PrecheckResult {
	return citations.PrecheckResult{Reachable: true, StatusCode: 200, Message: "URL appears accessible"}
}

func testRun(t *testing.T) *store.Run {
	t.Helper()
	run, err := store.NewRun(t.TempDir(), "test topic")
	require.NoError(t, err)
	return run
}

func testConfig() Config {
	return Config{
		QuestionWorkers: 2,
		CitationWorkers: 4,
		ResearchTimeout: 5 * time.Second,
		CitationTimeout: 5 * time.Second,
		PrecheckTimeout: time.Second,
		MaxCitations:    2,
		Retry:           resilience.RetryConfig{MaxRetries: 0},
	}
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	questions := model.NewQuestions([]string{"first?", "second?", "third?"}, "test topic", "")
	researcher := &fakeResearcher{
		answers: map[int]string{1: "answer one", 2: "answer two", 3: "answer three"},
		citations: map[int][]string{
			1: {"https://a.com", "https://b.com"},
			2: {"https://b.com", "https://c.com"},
			3: {"https://a.com"},
		},
	}
	run := testRun(t)

	p := New(researcher, researcher, passScraper{}, passCleaner{}, passPrechecker{}, run, testConfig())
	batch, err := p.Run(context.Background(), "proj-1", questions)
	require.NoError(t, err)

	// Research phase: one result per question, indexed by number.
	require.Len(t, batch.Results, 3)
	for i, r := range batch.Results {
		assert.Equal(t, i+1, r.QuestionNumber)
		assert.True(t, r.Success)
	}
	assert.Equal(t, 3, batch.SuccessfulQuestions())

	// Aggregation: a and b cited twice, c once; cap of 2 keeps a and b.
	assert.Equal(t, 3, batch.Citations.Len())
	require.Len(t, batch.Prioritized, 2)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, "https://a.com", batch.Prioritized[0].URL)
	assert.Equal(t, "https://b.com", batch.Prioritized[1].URL)
	assert.Equal(t, 2, batch.Prioritized[0].RefCount())

	// Citation phase: one result per prioritized citation, by ID.
	require.Len(t, batch.CitationResults, 2)
	assert.Equal(t, 1, batch.CitationResults[0].CitationID)
	assert.Equal(t, 2, batch.CitationResults[1].CitationID)
	for _, r := range batch.CitationResults {
		assert.True(t, r.Success)
	}

	// Reports and artifacts on disk.
	for _, name := range []string{"master_index.md", "citation_index.md", "research_data.json"} {
		_, err := os.Stat(filepath.Join(run.Dir, name))
		assert.NoError(t, err, name)
	}
	answers, err := filepath.Glob(filepath.Join(run.Dir, "response", "A*.md"))
	require.NoError(t, err)
	assert.Len(t, answers, 3)
	cleaned, err := filepath.Glob(filepath.Join(run.Dir, "markdown", "C*.md"))
	require.NoError(t, err)
	assert.Len(t, cleaned, 2)
}

func TestPipeline_Run_FailedQuestionDoesNotAbort(t *testing.T) {
	questions := model.NewQuestions([]string{"ok?", "broken?"}, "t", "")
	researcher := &fakeResearcher{
		answers:   map[int]string{1: "fine"},
		citations: map[int][]string{1: {"https://a.com"}},
		errs:      map[int]error{2: errors.New("model unavailable")},
	}
	run := testRun(t)

	p := New(researcher, researcher, passScraper{}, passCleaner{}, passPrechecker{}, run, testConfig())
	batch, err := p.Run(context.Background(), "proj-2", questions)
	require.NoError(t, err)

	assert.Equal(t, 1, batch.SuccessfulQuestions())
	assert.False(t, batch.Results[1].Success)
	assert.NotEmpty(t, batch.Results[1].Error)
	// The failed question contributed no citations.
	assert.Equal(t, 1, batch.Citations.Len())
	assert.Len(t, batch.CitationResults, 1)
}

func TestPipeline_Run_AllQuestionsFail_StillReports(t *testing.T) {
	questions := model.NewQuestions([]string{"a?", "b?"}, "t", "")
	researcher := &fakeResearcher{
		errs: map[int]error{1: errors.New("down"), 2: errors.New("down")},
	}
	run := testRun(t)

	p := New(researcher, researcher, passScraper{}, passCleaner{}, passPrechecker{}, run, testConfig())
	batch, err := p.Run(context.Background(), "proj-3", questions)
	require.NoError(t, err)

	assert.Equal(t, 0, batch.SuccessfulQuestions())
	assert.Equal(t, 0, batch.Citations.Len())
	assert.Empty(t, batch.CitationResults)

	// A fully failed run still yields its reports.
	_, statErr := os.Stat(filepath.Join(run.Dir, "master_index.md"))
	assert.NoError(t, statErr)
}

func TestPipeline_Run_ExecutiveSummaries(t *testing.T) {
	questions := model.NewQuestions([]string{"one?"}, "t", "")
	researcher := &fakeResearcher{
		answers:   map[int]string{1: "the answer"},
		citations: map[int][]string{1: {"https://a.com"}},
	}
	run := testRun(t)

	cfg := testConfig()
	cfg.ExecutiveSummaries = true
	p := New(researcher, researcher, passScraper{}, passCleaner{}, passPrechecker{}, run, cfg)
	batch, err := p.Run(context.Background(), "proj-4", questions)
	require.NoError(t, err)

	assert.Contains(t, batch.Results[0].ExecutiveSummary, "summary for question")
	summaries, err := filepath.Glob(filepath.Join(run.Dir, "summaries", "ES*.md"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestPipeline_Run_RetriesTransientResearchErrors(t *testing.T) {
	calls := 0
	researcher := &retryingResearcher{failures: 2, calls: &calls}
	run := testRun(t)

	cfg := testConfig()
	cfg.Retry = resilience.RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	p := New(researcher, nil, passScraper{}, passCleaner{}, passPrechecker{}, run, cfg)

	questions := model.NewQuestions([]string{"flaky?"}, "t", "")
	batch, err := p.Run(context.Background(), "proj-5", questions)
	require.NoError(t, err)

	assert.True(t, batch.Results[0].Success)
	assert.Equal(t, 3, calls)
}

type retryingResearcher struct {
	failures int
	calls    *int
}

func (r *retryingResearcher) Research(_ context.Context, _ model.Question) (string, []string, error) {
	*r.calls++
	if *r.calls <= r.failures {
		return "", nil, resilience.NewTransientError(errors.New("429 too many requests"), 429)
	}
	return "eventual answer", []string{"https://a.com"}, nil
}
