// Package store persists research run artifacts to a self-describing
// folder on disk. Each run gets its own timestamped directory with raw
// responses, cleaned markdown, and executive summaries kept apart, so a
// run can be zipped and handed to a reader with no tooling.
package store

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/research-orchestrator/internal/citations"
	"github.com/sells-group/research-orchestrator/internal/model"
)

const (
	responseDirName  = "response"
	markdownDirName  = "markdown"
	summariesDirName = "summaries"

	maxSlugLen = 50
)

// Run is a single research run's artifact directory. All writes are
// whole-file; the run directory is the unit of cleanup.
type Run struct {
	// Dir is the run's root directory.
	Dir string

	responseDir  string
	markdownDir  string
	summariesDir string
}

// Sink compile-time check: Run persists citation artifacts for the pool.
var _ citations.Sink = (*Run)(nil)

// NewRun creates the directory tree for a fresh run under baseDir. The
// directory name embeds a topic slug and a timestamp so concurrent runs
// never collide.
func NewRun(baseDir, topic string) (*Run, error) {
	stamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("research_%s_%s", Slugify(topic), stamp)
	dir := filepath.Join(baseDir, name)

	r := &Run{
		Dir:          dir,
		responseDir:  filepath.Join(dir, responseDirName),
		markdownDir:  filepath.Join(dir, markdownDirName),
		summariesDir: filepath.Join(dir, summariesDirName),
	}
	for _, d := range []string{r.responseDir, r.markdownDir, r.summariesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, eris.Wrap(err, "store: create run directory")
		}
	}
	zap.L().Info("created run directory", zap.String("dir", dir))
	return r, nil
}

// OpenRun wraps an existing run directory without creating anything.
func OpenRun(dir string) (*Run, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, eris.Wrap(err, "store: open run directory")
	}
	if !info.IsDir() {
		return nil, eris.Errorf("store: %s is not a directory", dir)
	}
	return &Run{
		Dir:          dir,
		responseDir:  filepath.Join(dir, responseDirName),
		markdownDir:  filepath.Join(dir, markdownDirName),
		summariesDir: filepath.Join(dir, summariesDirName),
	}, nil
}

// SaveAnswer writes a question's raw research answer under response/.
func (r *Run) SaveAnswer(q model.Question, answer string) (string, error) {
	name := fmt.Sprintf("A%02d_%s.md", q.Number, Slugify(q.Text))
	path := filepath.Join(r.responseDir, name)
	header := fmt.Sprintf("# Question %d\n\n%s\n\n---\n\n", q.Number, q.Text)
	if err := os.WriteFile(path, []byte(header+answer+"\n"), 0o644); err != nil {
		return "", eris.Wrap(err, "store: save answer")
	}
	return path, nil
}

// SaveExecutiveSummary writes a question's executive summary under summaries/.
func (r *Run) SaveExecutiveSummary(q model.Question, summary string) (string, error) {
	name := fmt.Sprintf("ES%d_%s.md", q.Number, Slugify(q.Text))
	path := filepath.Join(r.summariesDir, name)
	header := fmt.Sprintf("# Executive Summary: Question %d\n\n%s\n\n---\n\n", q.Number, q.Text)
	if err := os.WriteFile(path, []byte(header+summary+"\n"), 0o644); err != nil {
		return "", eris.Wrap(err, "store: save executive summary")
	}
	return path, nil
}

// SaveCitationRaw writes scraped citation content under response/.
func (r *Run) SaveCitationRaw(citationID int, rawURL, content string) error {
	name := fmt.Sprintf("C%03d_%s.md", citationID, urlSlug(rawURL))
	path := filepath.Join(r.responseDir, name)
	header := fmt.Sprintf("# Citation %d (raw)\n\nSource: %s\n\n---\n\n", citationID, rawURL)
	if err := os.WriteFile(path, []byte(header+content+"\n"), 0o644); err != nil {
		return eris.Wrap(err, "store: save raw citation")
	}
	return nil
}

// SaveCitationFormatted writes cleaned citation content under markdown/.
func (r *Run) SaveCitationFormatted(citationID int, rawURL, content string) error {
	name := fmt.Sprintf("C%03d_%s.md", citationID, urlSlug(rawURL))
	path := filepath.Join(r.markdownDir, name)
	header := fmt.Sprintf("# Citation %d\n\nSource: %s\n\n---\n\n", citationID, rawURL)
	if err := os.WriteFile(path, []byte(header+content+"\n"), 0o644); err != nil {
		return eris.Wrap(err, "store: save formatted citation")
	}
	return nil
}

// SaveCitationMetadata writes the citation's metadata record under markdown/.
func (r *Run) SaveCitationMetadata(meta citations.CitationMetadata) error {
	name := fmt.Sprintf("C%03d_%s.json", meta.CitationID, urlSlug(meta.URL))
	path := filepath.Join(r.markdownDir, name)
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return eris.Wrap(err, "store: marshal citation metadata")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "store: save citation metadata")
	}
	return nil
}

// SaveReport writes a top-level markdown report (master index, citation
// index) at the run root.
func (r *Run) SaveReport(name, content string) (string, error) {
	path := filepath.Join(r.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", eris.Wrap(err, "store: save report")
	}
	return path, nil
}

// SaveBatchResult writes the machine-readable run record at the run root.
func (r *Run) SaveBatchResult(b *model.BatchResult) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return eris.Wrap(err, "store: marshal batch result")
	}
	path := filepath.Join(r.Dir, "research_data.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "store: save batch result")
	}
	return nil
}

// stripMarks removes combining marks after NFD decomposition, folding
// accented characters to their ASCII base.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify turns arbitrary text into a short, filesystem-safe, lowercase
// token. Accents fold to ASCII; everything outside [a-z0-9] collapses to
// single underscores.
func Slugify(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > maxSlugLen {
		out = strings.Trim(out[:maxSlugLen], "_")
	}
	if out == "" {
		out = "untitled"
	}
	return out
}

// urlSlug derives a filename token from a URL's host and path.
func urlSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Slugify(rawURL)
	}
	host := strings.TrimPrefix(u.Host, "www.")
	return Slugify(host + "_" + strings.Trim(u.Path, "/"))
}
