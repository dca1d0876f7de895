// Package citations implements the citation half of the research
// pipeline: deduplication across questions, reference-count ranking,
// reachability prechecks, and the bounded worker pool that scrapes,
// cleans, and persists the ranked subset.
package citations

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-orchestrator/internal/model"
	"github.com/sells-group/research-orchestrator/internal/resilience"
)

// invalidURLPatterns are substrings that mark a citation URL as junk the
// research API occasionally emits: non-web protocols, serialized
// JavaScript artifacts, and loopback addresses. Matched case-insensitively.
var invalidURLPatterns = []string{
	"javascript:", "mailto:", "tel:", "file:", "data:",
	"undefined", "null", "[object", "127.0.0.1", "localhost",
}

// ValidateURL rejects citation URLs before any worker is spawned or any
// network call made. Returns a validation-classified error, or nil.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return resilience.NewError(model.KindValidation,
			eris.New("citations: empty citation URL"), 0)
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return resilience.NewError(model.KindValidation,
			eris.Errorf("citations: invalid URL format: %s", rawURL), 0)
	}
	lower := strings.ToLower(rawURL)
	for _, pattern := range invalidURLPatterns {
		if strings.Contains(lower, pattern) {
			return resilience.NewError(model.KindValidation,
				eris.Errorf("citations: invalid URL content: contains %q", pattern), 0)
		}
	}
	return nil
}
