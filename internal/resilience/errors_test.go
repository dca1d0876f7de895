package resilience

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/research-orchestrator/internal/model"
)

func TestNewTransientError_RateLimitKind(t *testing.T) {
	err := NewTransientError(errors.New("too many requests"), 429)
	assert.Equal(t, model.KindRateLimited, err.Kind)

	err = NewTransientError(errors.New("bad gateway"), 502)
	assert.Equal(t, model.KindTransient, err.Kind)
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ErrorKind
	}{
		{"nil", nil, model.KindNone},
		{"tagged_validation", NewError(model.KindValidation, errors.New("bad url"), 0), model.KindValidation},
		{"tagged_not_found", NewError(model.KindNotFound, errors.New("gone"), 404), model.KindNotFound},
		{"untagged_rate_limit_phrase", errors.New("API said: rate limit exceeded"), model.KindTransient},
		{"untagged_other", errors.New("something odd"), model.KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestKind_WrappedError(t *testing.T) {
	inner := NewError(model.KindForbidden, errors.New("blocked"), 403)
	wrapped := errors.Join(errors.New("outer"), inner)
	assert.Equal(t, model.KindForbidden, Kind(wrapped))
	assert.Equal(t, 403, StatusCode(wrapped))
}

func TestStatusCode_Untagged(t *testing.T) {
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestIsTransient_TaggedBeatsPhrases(t *testing.T) {
	// A tagged non-transient error must not retry even if its message
	// happens to contain a rate-limit phrase.
	err := NewError(model.KindValidation, errors.New("url contains 429 in path"), 0)
	assert.False(t, IsTransient(err))

	tagged := NewError(model.KindRateLimited, errors.New("slow down"), 429)
	assert.True(t, IsTransient(tagged))
}

func TestIsTransient_Phrases(t *testing.T) {
	for _, msg := range []string{
		"rate limit exceeded",
		"Too Many Requests",
		"request was throttled",
		"quota exceeded for model",
		"requests too frequent",
		"context deadline exceeded (timeout)",
	} {
		assert.True(t, IsTransient(errors.New(msg)), msg)
	}
	assert.False(t, IsTransient(errors.New("invalid api key")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 418} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
