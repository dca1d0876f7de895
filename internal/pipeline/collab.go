package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-orchestrator/internal/citations"
	"github.com/sells-group/research-orchestrator/internal/model"
	"github.com/sells-group/research-orchestrator/internal/resilience"
	"github.com/sells-group/research-orchestrator/pkg/anthropic"
	"github.com/sells-group/research-orchestrator/pkg/firecrawl"
	"github.com/sells-group/research-orchestrator/pkg/perplexity"
)

// Researcher answers a single question with citations.
type Researcher interface {
	Research(ctx context.Context, q model.Question) (answer string, cites []string, err error)
}

// Summarizer condenses a research answer into an executive summary.
type Summarizer interface {
	Summarize(ctx context.Context, q model.Question, answer string) (string, error)
}

const researchSystemPrompt = `You are a meticulous research analyst. Answer thoroughly with specific facts, figures, and dates, and cite your sources.`

const summaryPrompt = `Write a concise executive summary of the following research answer. Lead with the direct answer, then the three to five most decision-relevant findings as bullets. Do not introduce information that is not in the text.

Question: %s

Research:
%s`

const cleanupPrompt = `Reformat the following scraped web content into clean, well-structured markdown. Preserve all substantive information, numbers, and tables. Remove navigation menus, cookie banners, advertising, and boilerplate. Do not summarize or editorialize.

The content was cited while researching:
%s

Source URL: %s

Content:
%s`

// PerplexityResearcher backs the research, summary, and question
// generation stages with the Perplexity API.
type PerplexityResearcher struct {
	client        perplexity.Client
	researchModel string
	summaryModel  string
}

// NewPerplexityResearcher wires a Perplexity client into the pipeline.
// Empty model names fall back to deep research for answers and the fast
// model for summaries.
func NewPerplexityResearcher(client perplexity.Client, researchModel, summaryModel string) *PerplexityResearcher {
	if researchModel == "" {
		researchModel = perplexity.ModelDeepResearch
	}
	if summaryModel == "" {
		summaryModel = perplexity.ModelPro
	}
	return &PerplexityResearcher{client: client, researchModel: researchModel, summaryModel: summaryModel}
}

func (r *PerplexityResearcher) Research(ctx context.Context, q model.Question) (string, []string, error) {
	resp, err := r.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: r.researchModel,
		Messages: []perplexity.Message{
			{Role: "system", Content: researchSystemPrompt},
			{Role: "user", Content: q.Text},
		},
	})
	if err != nil {
		return "", nil, classifyPerplexityError(err)
	}
	answer := StripThinking(resp.Content())
	if answer == "" {
		return "", nil, resilience.NewError(model.KindContentExtraction,
			eris.New("pipeline: empty research answer"), 0)
	}
	return answer, resp.Citations, nil
}

func (r *PerplexityResearcher) Summarize(ctx context.Context, q model.Question, answer string) (string, error) {
	resp, err := r.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: r.summaryModel,
		Messages: []perplexity.Message{
			{Role: "user", Content: fmt.Sprintf(summaryPrompt, q.Text, answer)},
		},
	})
	if err != nil {
		return "", classifyPerplexityError(err)
	}
	return StripThinking(resp.Content()), nil
}

func (r *PerplexityResearcher) GenerateQuestions(ctx context.Context, prompt string) (string, error) {
	resp, err := r.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: r.summaryModel,
		Messages: []perplexity.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", classifyPerplexityError(err)
	}
	return resp.Content(), nil
}

// PerplexityCleaner reformats scraped citation content via Perplexity.
type PerplexityCleaner struct {
	client perplexity.Client
	model  string
}

// NewPerplexityCleaner wires Perplexity as the cleanup provider.
func NewPerplexityCleaner(client perplexity.Client, modelName string) *PerplexityCleaner {
	if modelName == "" {
		modelName = perplexity.ModelPro
	}
	return &PerplexityCleaner{client: client, model: modelName}
}

func (c *PerplexityCleaner) Clean(ctx context.Context, content, sourceURL string, refs []model.QuestionRef) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: c.model,
		Messages: []perplexity.Message{
			{Role: "user", Content: fmt.Sprintf(cleanupPrompt, refQuestions(refs), sourceURL, content)},
		},
	})
	if err != nil {
		return "", classifyPerplexityError(err)
	}
	return StripThinking(resp.Content()), nil
}

// AnthropicCleaner is the alternative cleanup provider.
type AnthropicCleaner struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCleaner wires the Anthropic API as the cleanup provider.
func NewAnthropicCleaner(client anthropic.Client, modelName string) *AnthropicCleaner {
	if modelName == "" {
		modelName = anthropic.DefaultModel
	}
	return &AnthropicCleaner{client: client, model: modelName}
}

func (c *AnthropicCleaner) Clean(ctx context.Context, content, sourceURL string, refs []model.QuestionRef) (string, error) {
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: 8192,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(cleanupPrompt, refQuestions(refs), sourceURL, content)},
		},
	})
	if err != nil {
		// The SDK already retries transient statuses internally; whatever
		// escapes is terminal for this attempt.
		return "", eris.Wrap(err, "pipeline: anthropic cleanup")
	}
	return resp.Text(), nil
}

// FirecrawlScraper extracts page content via Firecrawl. Empty extractions
// get one more attempt with a render delay for JavaScript-heavy pages.
type FirecrawlScraper struct {
	client firecrawl.Client
}

// NewFirecrawlScraper wires a Firecrawl client into the citation pool.
func NewFirecrawlScraper(client firecrawl.Client) *FirecrawlScraper {
	return &FirecrawlScraper{client: client}
}

const renderWaitMillis = 5000

func (s *FirecrawlScraper) Scrape(ctx context.Context, rawURL string) (*citations.ScrapedPage, error) {
	resp, err := s.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     rawURL,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return nil, classifyFirecrawlError(err)
	}
	if resp.Data.Markdown == "" {
		zap.L().Debug("empty extraction, retrying with render wait", zap.String("url", rawURL))
		resp, err = s.client.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:     rawURL,
			Formats: []string{"markdown"},
			WaitFor: renderWaitMillis,
		})
		if err != nil {
			return nil, classifyFirecrawlError(err)
		}
	}
	return &citations.ScrapedPage{Markdown: resp.Data.Markdown, HTML: resp.Data.HTML}, nil
}

func refQuestions(refs []model.QuestionRef) string {
	if len(refs) == 0 {
		return "(no specific question)"
	}
	texts := make([]string, 0, len(refs))
	for _, r := range refs {
		texts = append(texts, fmt.Sprintf("%d. %s", r.QuestionNumber, r.QuestionText))
	}
	return strings.Join(texts, "\n")
}

func classifyPerplexityError(err error) error {
	var apiErr *perplexity.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}
	return err
}

func classifyFirecrawlError(err error) error {
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}
	return err
}

func classifyStatus(status int, err error) error {
	switch {
	case resilience.IsTransientHTTPStatus(status):
		return resilience.NewTransientError(err, status)
	case status == 404:
		return resilience.NewError(model.KindNotFound, err, status)
	case status == 401, status == 403:
		return resilience.NewError(model.KindForbidden, err, status)
	default:
		return resilience.NewError(model.KindOther, err, status)
	}
}
