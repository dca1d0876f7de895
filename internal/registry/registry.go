// Package registry loads research question sets from files. Plain text
// (one question per line) covers quick runs; YAML carries a topic and
// perspective alongside the questions.
package registry

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/research-orchestrator/internal/model"
)

// QuestionSet is a loaded batch of questions plus optional context.
type QuestionSet struct {
	Topic       string   `yaml:"topic"`
	Perspective string   `yaml:"perspective"`
	Questions   []string `yaml:"questions"`
}

// Load reads a question set from path, dispatching on extension.
// .yaml/.yml parse as a QuestionSet document; everything else parses as
// plain text with one question per line, blank lines and #-comments
// skipped.
func Load(path string) (*QuestionSet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadText(path)
	}
}

// Models numbers the set's questions in file order.
func (s *QuestionSet) Models() []model.Question {
	return model.NewQuestions(s.Questions, s.Topic, s.Perspective)
}

func loadYAML(path string) (*QuestionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read question file")
	}
	var set QuestionSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, eris.Wrap(err, "registry: parse question file")
	}
	set.trim()
	if len(set.Questions) == 0 {
		return nil, eris.Errorf("registry: no questions in %s", path)
	}
	return &set, nil
}

func loadText(path string) (*QuestionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: open question file")
	}
	defer f.Close()

	var set QuestionSet
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set.Questions = append(set.Questions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "registry: read question file")
	}
	if len(set.Questions) == 0 {
		return nil, eris.Errorf("registry: no questions in %s", path)
	}
	return &set, nil
}

func (s *QuestionSet) trim() {
	out := s.Questions[:0]
	for _, q := range s.Questions {
		q = strings.TrimSpace(q)
		if q != "" {
			out = append(out, q)
		}
	}
	s.Questions = out
}
