package platform

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryableKinds(t *testing.T) {
	retryable := map[ErrorKind]bool{
		KindConfig:      false,
		KindAuth:        false,
		KindTransient:   true,
		KindRateLimit:   true,
		KindRejected:    false,
		KindUnsupported: false,
		KindNotFound:    false,
	}

	for kind, want := range retryable {
		err := newError("twitter", "publish", kind, "boom")
		assert.Equal(t, want, err.Retryable(), string(kind))
		assert.Equal(t, want, IsRetryable(err), string(kind))
	}
}

func TestIsRetryableSeesWrappedErrors(t *testing.T) {
	inner := newError("youtube", "upload", KindTransient, "timeout")
	wrapped := fmt.Errorf("publishing post 42: %w", inner)

	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, KindTransient, KindOf(wrapped))
}

func TestIsRetryablePlainError(t *testing.T) {
	assert.False(t, IsRetryable(errors.New("some io error")))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("nope")))
}

func TestStatusErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{429, KindRateLimit},
		{500, KindTransient},
		{503, KindTransient},
		{401, KindAuth},
		{403, KindAuth},
		{404, KindNotFound},
		{400, KindRejected},
		{422, KindRejected},
	}

	for _, tt := range tests {
		err := statusError("linkedin", "publish", tt.status, "body")
		assert.Equal(t, tt.kind, err.Kind, tt.status)
		assert.Equal(t, fmt.Sprintf("http_%d", tt.status), err.Code)
	}
}

func TestStatusErrorTruncatesBody(t *testing.T) {
	err := statusError("facebook", "publish", 400, strings.Repeat("x", 2000))
	assert.Len(t, err.Message, 500)
}

func TestErrorStringIncludesCode(t *testing.T) {
	err := &Error{Platform: "twitter", Op: "publish", Kind: KindRejected, Code: "187", Message: "duplicate"}
	assert.Equal(t, "twitter: publish: [187] duplicate", err.Error())

	err.Code = ""
	assert.Equal(t, "twitter: publish: duplicate", err.Error())
}

func TestRegistryUnknownPlatform(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("twitter")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.False(t, IsRetryable(err))
	assert.False(t, r.Has("twitter"))
	assert.Empty(t, r.Platforms())
}
