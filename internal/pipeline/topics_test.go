package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	output string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateQuestions(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.output, f.err
}

func TestGenerateQuestions(t *testing.T) {
	gen := &fakeGenerator{output: `Here are your questions:
[[[What drives demand for widgets?]]]
Some commentary the model added.
[[[Who are the major widget producers?]]]
[[[How are widgets regulated in the EU?]]]`}

	qs, err := GenerateQuestions(context.Background(), gen, "the widget market", "an investor", 3)
	require.NoError(t, err)
	require.Len(t, qs, 3)

	assert.Equal(t, 1, qs[0].Number)
	assert.Equal(t, "What drives demand for widgets?", qs[0].Text)
	assert.Equal(t, 3, qs[2].Number)
	assert.Equal(t, "the widget market", qs[0].Topic)
	assert.Equal(t, "an investor", qs[0].Perspective)

	assert.True(t, strings.Contains(gen.prompt, "exactly 3"))
	assert.True(t, strings.Contains(gen.prompt, "the widget market"))
	assert.True(t, strings.Contains(gen.prompt, "an investor"))
}

func TestGenerateQuestions_StripsThinking(t *testing.T) {
	gen := &fakeGenerator{output: "<think>[[[draft that must not leak]]]</think>[[[Real question?]]]"}

	qs, err := GenerateQuestions(context.Background(), gen, "t", "", 1)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "Real question?", qs[0].Text)
}

func TestGenerateQuestions_TruncatesExcess(t *testing.T) {
	gen := &fakeGenerator{output: "[[[one]]] [[[two]]] [[[three]]] [[[four]]]"}

	qs, err := GenerateQuestions(context.Background(), gen, "t", "", 2)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
}

func TestGenerateQuestions_NoBrackets(t *testing.T) {
	gen := &fakeGenerator{output: "I could not think of any questions."}
	_, err := GenerateQuestions(context.Background(), gen, "t", "", 5)
	assert.Error(t, err)
}

func TestGenerateQuestions_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("api down")}
	_, err := GenerateQuestions(context.Background(), gen, "t", "", 5)
	assert.Error(t, err)
}

func TestGenerateQuestions_InvalidCount(t *testing.T) {
	_, err := GenerateQuestions(context.Background(), &fakeGenerator{}, "t", "", 0)
	assert.Error(t, err)
}
