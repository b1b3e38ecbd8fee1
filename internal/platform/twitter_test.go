package platform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitThreadParagraphs(t *testing.T) {
	parts := splitThread("first tweet\n\nsecond tweet\n\n\n\nthird")
	assert.Equal(t, []string{"first tweet", "second tweet", "third"}, parts)
}

func TestSplitThreadLongParagraph(t *testing.T) {
	words := strings.Repeat("word ", 120) // ~600 chars
	parts := splitThread(strings.TrimSpace(words))

	require.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), twitterTextLimit)
		assert.NotEmpty(t, p)
	}
	assert.Equal(t, strings.Fields(words), strings.Fields(strings.Join(parts, " ")))
}

func TestSplitThreadUnbreakableRun(t *testing.T) {
	blob := strings.Repeat("a", 700)
	parts := splitThread(blob)

	require.Len(t, parts, 3)
	assert.Equal(t, 280, len(parts[0]))
	assert.Equal(t, 280, len(parts[1]))
	assert.Equal(t, 140, len(parts[2]))
}

func TestSplitThreadShortTextIsSinglePart(t *testing.T) {
	parts := splitThread("just one tweet")
	assert.Equal(t, []string{"just one tweet"}, parts)
}
