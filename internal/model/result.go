package model

import "time"

// ErrorKind classifies a failure at the collaborator boundary so the core
// never has to parse prose to decide what went wrong.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindTransient         ErrorKind = "transient"
	KindRateLimited       ErrorKind = "rate_limited"
	KindTimeout           ErrorKind = "timeout"
	KindNotFound          ErrorKind = "not_found"
	KindForbidden         ErrorKind = "forbidden"
	KindValidation        ErrorKind = "validation"
	KindContentExtraction ErrorKind = "content_extraction"
	KindOther             ErrorKind = "other"
)

// CitationResult is the immutable outcome of processing one prioritized
// citation. Exactly one is created per citation, by exactly one worker.
type CitationResult struct {
	// CitationID is the citation's 1-based rank position from prioritization.
	CitationID int    `json:"citation_id"`
	URL        string `json:"url"`
	RefCount   int    `json:"ref_count"`
	Success    bool   `json:"success"`
	// RawContent is the scraped markdown, when scraping succeeded.
	RawContent string `json:"raw_content,omitempty"`
	// FormattedContent is the cleaned-up markdown, when cleanup succeeded.
	FormattedContent string    `json:"formatted_content,omitempty"`
	Error            string    `json:"error,omitempty"`
	Kind             ErrorKind `json:"kind,omitempty"`
	StatusCode       int       `json:"status_code,omitempty"`
	ContentType      string    `json:"content_type,omitempty"`
	TimedOut         bool      `json:"timed_out,omitempty"`
	// Warnings records non-fatal issues (short content, difficult domain).
	Warnings []string      `json:"warnings,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns,omitempty"`
}

// ProgressSnapshot is a point-in-time view of pool progress. Completed is
// always Succeeded+Failed; TimedOut counts a subset of Failed.
type ProgressSnapshot struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	TimedOut  int `json:"timed_out"`
}

// Completed returns the number of finished tasks.
func (p ProgressSnapshot) Completed() int {
	return p.Succeeded + p.Failed
}

// BatchResult is the full outcome of a research run, sufficient for a
// caller to render any report format without re-deriving ranking or
// failure classification.
type BatchResult struct {
	ProjectID   string    `json:"project_id"`
	Topic       string    `json:"topic,omitempty"`
	Perspective string    `json:"perspective,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	Questions []Question       `json:"questions"`
	Results   []QuestionResult `json:"results"` // indexed by question order

	// Citations is the full deduplicated map; Prioritized is the ranked
	// subset that was actually processed; Skipped counts the remainder.
	Citations       *CitationMap          `json:"-"`
	Prioritized     []PrioritizedCitation `json:"prioritized"`
	Skipped         int                   `json:"skipped"`
	CitationResults []CitationResult      `json:"citation_results"` // sorted by CitationID
}

// SuccessfulQuestions counts question results that completed successfully.
func (b *BatchResult) SuccessfulQuestions() int {
	n := 0
	for _, r := range b.Results {
		if r.Success {
			n++
		}
	}
	return n
}
