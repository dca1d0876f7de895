package model

// Question is a single research question in a batch. Numbers are 1-based
// and stable for the lifetime of the run; downstream indexing keys on
// Number, never on slice position.
type Question struct {
	Number      int    `json:"number"`
	Text        string `json:"text"`
	Topic       string `json:"topic,omitempty"`
	Perspective string `json:"perspective,omitempty"`
}

// NewQuestions assigns 1-based numbers to raw question texts, carrying the
// optional topic/perspective context onto each.
func NewQuestions(texts []string, topic, perspective string) []Question {
	out := make([]Question, 0, len(texts))
	for i, t := range texts {
		out = append(out, Question{
			Number:      i + 1,
			Text:        t,
			Topic:       topic,
			Perspective: perspective,
		})
	}
	return out
}

// QuestionRef is a back-reference from a citation to a question that cited it.
type QuestionRef struct {
	QuestionNumber int    `json:"question_number"`
	QuestionText   string `json:"question"`
}

// QuestionResult is the immutable outcome of one question's research phase.
// Created exactly once when the question's processing attempt completes.
type QuestionResult struct {
	QuestionNumber int    `json:"question_number"`
	Question       string `json:"question"`
	Success        bool   `json:"success"`
	// Answer is the cleaned research text (thinking sections stripped).
	Answer string `json:"answer,omitempty"`
	// ExecutiveSummary is the optional condensed summary of Answer.
	ExecutiveSummary string `json:"executive_summary,omitempty"`
	// Citations preserves the order the research API returned the URLs in.
	Citations []string `json:"citations"`
	Error     string   `json:"error,omitempty"`
}
