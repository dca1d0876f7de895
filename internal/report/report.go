// Package report renders the human-readable indexes for a finished run:
// a master index linking every artifact, and a citation index that
// groups failures by what went wrong so a reader can triage without
// grepping logs.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/research-orchestrator/internal/model"
)

// MasterIndex renders the top-level run report.
func MasterIndex(b *model.BatchResult) string {
	var sb strings.Builder

	sb.WriteString("# Research Master Index\n\n")
	if b.Topic != "" {
		fmt.Fprintf(&sb, "**Topic:** %s\n\n", b.Topic)
	}
	if b.Perspective != "" {
		fmt.Fprintf(&sb, "**Perspective:** %s\n\n", b.Perspective)
	}
	fmt.Fprintf(&sb, "**Run:** %s\n\n", b.ProjectID)
	fmt.Fprintf(&sb, "**Started:** %s  \n", b.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "**Finished:** %s\n\n", b.FinishedAt.Format(time.RFC3339))

	fmt.Fprintf(&sb, "## Summary\n\n")
	fmt.Fprintf(&sb, "- Questions: %d/%d answered\n", b.SuccessfulQuestions(), len(b.Questions))
	if b.Citations != nil {
		fmt.Fprintf(&sb, "- Unique citations found: %d\n", b.Citations.Len())
	}
	fmt.Fprintf(&sb, "- Citations processed: %d (skipped %d lowest-ranked)\n\n", len(b.Prioritized), b.Skipped)

	sb.WriteString("## Questions\n\n")
	for _, r := range b.Results {
		status := "answered"
		if !r.Success {
			status = "FAILED"
		}
		fmt.Fprintf(&sb, "%d. %s [%s]\n", r.QuestionNumber, r.Question, status)
		if r.Success {
			fmt.Fprintf(&sb, "   - citations: %d\n", len(r.Citations))
		} else if r.Error != "" {
			fmt.Fprintf(&sb, "   - error: %s\n", firstLine(r.Error))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## Layout\n\n")
	sb.WriteString("- `response/` raw research answers (A##) and raw scraped citations (C###)\n")
	sb.WriteString("- `markdown/` cleaned citation content and per-citation metadata\n")
	sb.WriteString("- `summaries/` executive summaries (ES#)\n")
	sb.WriteString("- `citation_index.md` per-citation outcomes and failure triage\n")
	sb.WriteString("- `research_data.json` full machine-readable run record\n")

	return sb.String()
}

// CitationIndex renders the per-citation report, with failed citations
// bucketed by failure category and a remediation note per bucket.
func CitationIndex(b *model.BatchResult) string {
	var sb strings.Builder

	sb.WriteString("# Citation Index\n\n")

	succeeded := 0
	for _, r := range b.CitationResults {
		if r.Success {
			succeeded++
		}
	}
	fmt.Fprintf(&sb, "%d of %d citations processed successfully.\n\n", succeeded, len(b.CitationResults))

	sb.WriteString("## Processed Citations\n\n")
	sb.WriteString("| # | URL | Referenced by | Status |\n")
	sb.WriteString("|---|-----|---------------|--------|\n")
	for _, r := range b.CitationResults {
		fmt.Fprintf(&sb, "| %d | %s | %d question(s) | %s |\n",
			r.CitationID, r.URL, r.RefCount, statusCell(r))
	}
	sb.WriteString("\n")

	if failed := failedByCategory(b.CitationResults); len(failed) > 0 {
		sb.WriteString("## Failed Citations\n\n")
		for _, cat := range categoryOrder {
			results, ok := failed[cat]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "### %s\n\n", cat)
			for _, r := range results {
				fmt.Fprintf(&sb, "- **%d.** %s\n", r.CitationID, r.URL)
				if r.Error != "" {
					fmt.Fprintf(&sb, "  - %s\n", firstLine(r.Error))
				}
			}
			fmt.Fprintf(&sb, "\n%s\n\n", remediation[cat])
		}
	}

	if b.Skipped > 0 {
		fmt.Fprintf(&sb, "## Skipped Citations\n\n%d citation(s) ranked below the processing cap were not fetched. They remain listed in `research_data.json` with their referencing questions.\n", b.Skipped)
	}

	return sb.String()
}

// FailureCategory buckets citation failures for the report.
type FailureCategory string

const (
	CategoryTimeout  FailureCategory = "Timeouts"
	CategoryHTTP     FailureCategory = "HTTP Errors"
	CategoryScraping FailureCategory = "Scraping Failures"
	CategoryOther    FailureCategory = "Other Failures"
)

var categoryOrder = []FailureCategory{CategoryTimeout, CategoryHTTP, CategoryScraping, CategoryOther}

var remediation = map[FailureCategory]string{
	CategoryTimeout:  "These pages exceeded the per-citation time budget. Slow or JavaScript-heavy sites often succeed on a rerun with a longer `research.citation_timeout`.",
	CategoryHTTP:     "The origin refused the request. 403s usually mean bot protection and need manual retrieval; 404s mean the cited page has moved or been removed.",
	CategoryScraping: "The page was reachable but no usable content could be extracted. PDFs and binary formats need manual handling.",
	CategoryOther:    "Unclassified failures. Check the error text and the run log for details.",
}

// Categorize maps a failed result onto its report bucket.
func Categorize(r model.CitationResult) FailureCategory {
	switch {
	case r.TimedOut || r.Kind == model.KindTimeout:
		return CategoryTimeout
	case r.Kind == model.KindNotFound, r.Kind == model.KindForbidden,
		r.Kind == model.KindRateLimited, r.StatusCode >= 400:
		return CategoryHTTP
	case r.Kind == model.KindContentExtraction:
		return CategoryScraping
	default:
		return CategoryOther
	}
}

func failedByCategory(results []model.CitationResult) map[FailureCategory][]model.CitationResult {
	out := make(map[FailureCategory][]model.CitationResult)
	for _, r := range results {
		if r.Success {
			continue
		}
		cat := Categorize(r)
		out[cat] = append(out[cat], r)
	}
	for _, rs := range out {
		sort.Slice(rs, func(i, j int) bool { return rs[i].CitationID < rs[j].CitationID })
	}
	return out
}

func statusCell(r model.CitationResult) string {
	switch {
	case r.Success && len(r.Warnings) > 0:
		return "ok (warnings)"
	case r.Success:
		return "ok"
	case r.TimedOut:
		return "timeout"
	case r.StatusCode >= 400:
		return fmt.Sprintf("failed (HTTP %d)", r.StatusCode)
	default:
		return "failed"
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
