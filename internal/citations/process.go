package citations

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-orchestrator/internal/model"
	"github.com/sells-group/research-orchestrator/internal/resilience"
)

// minUsefulContent is the scraped-content length below which a page is
// probably a bot wall or an empty shell. Short content is a warning, not
// a failure: whatever exists still flows through cleanup.
const minUsefulContent = 100

// ScrapedPage is the content a scrape collaborator extracted from a URL.
type ScrapedPage struct {
	Markdown string
	HTML     string
}

// Scraper extracts page content. Implementations live at the collaborator
// boundary and classify their failures via resilience.Error.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (*ScrapedPage, error)
}

// Cleaner reformats raw scraped content into research-ready markdown,
// given the questions the citation backs for context.
type Cleaner interface {
	Clean(ctx context.Context, content, sourceURL string, refs []model.QuestionRef) (string, error)
}

// CitationMetadata is the record persisted alongside a processed citation.
type CitationMetadata struct {
	CitationID      int                 `json:"citation_id"`
	URL             string              `json:"url"`
	Timestamp       time.Time           `json:"timestamp"`
	StatusCode      int                 `json:"status_code,omitempty"`
	ContentType     string              `json:"content_type,omitempty"`
	ContentLength   int                 `json:"content_length"`
	FormattedLength int                 `json:"formatted_length"`
	Questions       []model.QuestionRef `json:"questions"`
}

// Sink is the write-only persistence collaborator for citation artifacts.
type Sink interface {
	SaveCitationRaw(citationID int, url, content string) error
	SaveCitationFormatted(citationID int, url, content string) error
	SaveCitationMetadata(meta CitationMetadata) error
}

// taskOutput is the intermediate result a worker builds before the pool
// folds it into a CitationResult.
type taskOutput struct {
	raw         string
	formatted   string
	warnings    []string
	statusCode  int
	contentType string
}

// processOne walks a single citation through precheck → scrape → clean →
// persist. Any returned error is terminal for the task; warnings
// accumulate on the output either way.
func (p *Pool) processOne(ctx context.Context, c model.PrioritizedCitation) (taskOutput, error) {
	var out taskOutput
	log := zap.L().With(zap.Int("citation", c.Rank), zap.String("url", c.URL))

	// Gate 1: reachability probe. Hard-fail only on a definitive HTTP
	// error status; anything softer proceeds with a warning, since the
	// scraper is more capable than a bare HEAD request.
	probe := p.prechecker.Probe(ctx, c.URL, p.cfg.PrecheckTimeout)
	out.statusCode = probe.StatusCode
	out.contentType = probe.ContentType
	switch {
	case probe.StatusCode >= 400:
		return out, resilience.NewError(probe.Kind,
			eris.Errorf("citations: precheck failed: %s", probe.Message), probe.StatusCode)
	case !probe.Reachable:
		out.warnings = append(out.warnings, "precheck: "+probe.Message)
		log.Debug("precheck inconclusive, proceeding", zap.String("message", probe.Message))
	case probe.Warning:
		out.warnings = append(out.warnings, "precheck: "+probe.Message)
	}

	// Gate 2: scrape. Failure here is terminal.
	page, err := p.scraper.Scrape(ctx, c.URL)
	if err != nil {
		return out, eris.Wrap(err, "citations: scrape")
	}
	if page == nil || page.Markdown == "" {
		return out, resilience.NewError(model.KindContentExtraction,
			eris.New("citations: no content extracted"), 0)
	}
	out.raw = page.Markdown
	if len(page.Markdown) < minUsefulContent {
		out.warnings = append(out.warnings, "scraped content is very short")
		log.Warn("short scraped content", zap.Int("chars", len(page.Markdown)))
	}

	// Gate 3: cleanup through the retrying caller; upstream rate limits
	// are transient here. Failure is terminal but the raw content
	// survives on the result.
	retryCfg := p.cfg.Retry
	retryCfg.OnRetry = resilience.RetryLogger("cleaner", "clean_citation", retryCfg.MaxRetries)
	formatted, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		return p.cleaner.Clean(ctx, page.Markdown, c.URL, c.Refs)
	})
	if err != nil {
		return out, eris.Wrap(err, "citations: clean content")
	}
	if formatted == "" {
		return out, resilience.NewError(model.KindContentExtraction,
			eris.New("citations: cleaner returned empty content"), 0)
	}
	out.formatted = formatted

	// Gate 4: persist raw + formatted + metadata.
	if err := p.sink.SaveCitationRaw(c.Rank, c.URL, out.raw); err != nil {
		return out, eris.Wrap(err, "citations: save raw content")
	}
	if err := p.sink.SaveCitationFormatted(c.Rank, c.URL, out.formatted); err != nil {
		return out, eris.Wrap(err, "citations: save formatted content")
	}
	meta := CitationMetadata{
		CitationID:      c.Rank,
		URL:             c.URL,
		Timestamp:       time.Now().UTC(),
		StatusCode:      out.statusCode,
		ContentType:     out.contentType,
		ContentLength:   len(out.raw),
		FormattedLength: len(out.formatted),
		Questions:       c.Refs,
	}
	if err := p.sink.SaveCitationMetadata(meta); err != nil {
		return out, eris.Wrap(err, "citations: save metadata")
	}

	return out, nil
}
