package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-orchestrator/internal/model"
)

// bracketedQuestion extracts questions the generation prompt asks the
// model to wrap in triple brackets, keeping extraction robust against
// surrounding prose.
var bracketedQuestion = regexp.MustCompile(`\[\[\[(.+?)\]\]\]`)

const questionGenPrompt = `You are a research planner. Generate exactly %d specific, independently researchable questions about the topic below%s.

Topic: %s

Rules:
- Each question must stand alone without referring to other questions.
- Wrap every question in triple square brackets, like [[[What is X?]]].
- Output nothing except the bracketed questions.`

// QuestionGenerator produces a question set from a topic description.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, prompt string) (string, error)
}

// GenerateQuestions asks the generator for count questions about topic,
// optionally from a given perspective, and parses the bracketed output.
func GenerateQuestions(ctx context.Context, gen QuestionGenerator, topic, perspective string, count int) ([]model.Question, error) {
	if count < 1 {
		return nil, eris.New("pipeline: question count must be positive")
	}

	var persp string
	if perspective != "" {
		persp = fmt.Sprintf(", from the perspective of %s", perspective)
	}
	prompt := fmt.Sprintf(questionGenPrompt, count, persp, topic)

	raw, err := gen.GenerateQuestions(ctx, prompt)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: generate questions")
	}
	raw = StripThinking(raw)

	matches := bracketedQuestion.FindAllStringSubmatch(raw, -1)
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		q := strings.TrimSpace(m[1])
		if q != "" {
			texts = append(texts, q)
		}
	}
	if len(texts) == 0 {
		return nil, eris.New("pipeline: no questions found in generator output")
	}
	if len(texts) > count {
		texts = texts[:count]
	}
	if len(texts) < count {
		zap.L().Warn("generator produced fewer questions than requested",
			zap.Int("requested", count), zap.Int("got", len(texts)))
	}

	return model.NewQuestions(texts, topic, perspective), nil
}
