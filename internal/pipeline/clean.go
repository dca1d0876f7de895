package pipeline

import (
	"regexp"
	"strings"
)

// thinkingSection matches inline reasoning blocks some research models
// emit before their answer. They are model scratch work, not content.
var thinkingSection = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinking removes reasoning sections and trims the remainder. An
// unterminated <think> block drops everything from the opening tag on.
func StripThinking(s string) string {
	s = thinkingSection.ReplaceAllString(s, "")
	if i := strings.Index(s, "<think>"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
