package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-orchestrator/internal/citations"
	"github.com/sells-group/research-orchestrator/internal/model"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello_world"},
		{"What drives demand for widgets?", "what_drives_demand_for_widgets"},
		{"  spaces   everywhere  ", "spaces_everywhere"},
		{"café résumé", "cafe_resume"},
		{"UPPER/lower\\mixed", "upper_lower_mixed"},
		{"", "untitled"},
		{"???", "untitled"},
		{"a", "a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestSlugify_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 40)
	out := Slugify(long)
	assert.LessOrEqual(t, len(out), 50)
	assert.False(t, strings.HasSuffix(out, "_"))
}

func TestNewRun_CreatesLayout(t *testing.T) {
	base := t.TempDir()
	run, err := NewRun(base, "Widget Market")
	require.NoError(t, err)

	assert.Contains(t, filepath.Base(run.Dir), "research_widget_market_")
	for _, sub := range []string{"response", "markdown", "summaries"} {
		info, err := os.Stat(filepath.Join(run.Dir, sub))
		require.NoError(t, err, sub)
		assert.True(t, info.IsDir())
	}
}

func TestRun_SaveAnswer(t *testing.T) {
	run, err := NewRun(t.TempDir(), "t")
	require.NoError(t, err)

	q := model.Question{Number: 3, Text: "What is a widget?"}
	path, err := run.SaveAnswer(q, "A widget is a thing.")
	require.NoError(t, err)

	assert.Equal(t, "A03_what_is_a_widget.md", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Question 3")
	assert.Contains(t, string(data), "A widget is a thing.")
}

func TestRun_SaveExecutiveSummary(t *testing.T) {
	run, err := NewRun(t.TempDir(), "t")
	require.NoError(t, err)

	q := model.Question{Number: 1, Text: "Why?"}
	path, err := run.SaveExecutiveSummary(q, "Because.")
	require.NoError(t, err)

	assert.Equal(t, "ES1_why.md", filepath.Base(path))
	assert.Equal(t, "summaries", filepath.Base(filepath.Dir(path)))
}

func TestRun_CitationArtifacts(t *testing.T) {
	run, err := NewRun(t.TempDir(), "t")
	require.NoError(t, err)

	url := "https://www.example.com/reports/2026"
	require.NoError(t, run.SaveCitationRaw(7, url, "raw content"))
	require.NoError(t, run.SaveCitationFormatted(7, url, "formatted content"))

	meta := citations.CitationMetadata{
		CitationID:    7,
		URL:           url,
		Timestamp:     time.Now().UTC(),
		ContentLength: 11,
		Questions:     []model.QuestionRef{{QuestionNumber: 2, QuestionText: "q"}},
	}
	require.NoError(t, run.SaveCitationMetadata(meta))

	raws, _ := filepath.Glob(filepath.Join(run.Dir, "response", "C007_*.md"))
	require.Len(t, raws, 1)
	assert.Contains(t, filepath.Base(raws[0]), "example_com")

	formatted, _ := filepath.Glob(filepath.Join(run.Dir, "markdown", "C007_*.md"))
	require.Len(t, formatted, 1)

	metas, _ := filepath.Glob(filepath.Join(run.Dir, "markdown", "C007_*.json"))
	require.Len(t, metas, 1)
	data, err := os.ReadFile(metas[0])
	require.NoError(t, err)
	var got citations.CitationMetadata
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 7, got.CitationID)
	assert.Equal(t, url, got.URL)
}

func TestRun_SaveBatchResult(t *testing.T) {
	run, err := NewRun(t.TempDir(), "t")
	require.NoError(t, err)

	batch := &model.BatchResult{ProjectID: "p1", Topic: "t"}
	require.NoError(t, run.SaveBatchResult(batch))

	data, err := os.ReadFile(filepath.Join(run.Dir, "research_data.json"))
	require.NoError(t, err)
	var got model.BatchResult
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "p1", got.ProjectID)
}

func TestOpenRun(t *testing.T) {
	run, err := NewRun(t.TempDir(), "t")
	require.NoError(t, err)

	reopened, err := OpenRun(run.Dir)
	require.NoError(t, err)
	assert.Equal(t, run.Dir, reopened.Dir)

	_, err = OpenRun(filepath.Join(run.Dir, "does-not-exist"))
	assert.Error(t, err)
}
