package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, ChunkText("", 900, 120))
}

func TestChunkTextShorterThanWindow(t *testing.T) {
	chunks := ChunkText("short text", 900, 120)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestChunkTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	chunks := ChunkText(text, 60, 20)

	require.GreaterOrEqual(t, len(chunks), 2)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 60)
	}
	// Consecutive chunks share the overlap region.
	first := chunks[0]
	second := chunks[1]
	assert.Equal(t, first[len(first)-20:], second[:20])
}

func TestChunkTextCoversWholeInput(t *testing.T) {
	text := strings.Repeat("0123456789", 30)
	chunks := ChunkText(text, 70, 10)

	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))

	// Every byte of the input appears in at least one chunk.
	total := 0
	step := 70 - 10
	for i := range chunks {
		if i == len(chunks)-1 {
			total += len(chunks[i])
		} else {
			total += step
		}
	}
	assert.GreaterOrEqual(t, total, len(text))
}

func TestChunkTextMultibyteRuneBoundaries(t *testing.T) {
	// CJK documents are the common import case; windows must land on rune
	// boundaries, never inside a multibyte encoding.
	text := strings.Repeat("文", 20)
	chunks := ChunkText(text, 10, 2)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d is invalid UTF-8: %q", i, chunk)
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}
	assert.Equal(t, strings.Repeat("文", 10), chunks[0])
}

func TestChunkTextMixedWidthOverlap(t *testing.T) {
	text := "abc早上好def晚上好ghi你好jkl"
	chunks := ChunkText(text, 8, 3)

	require.GreaterOrEqual(t, len(chunks), 2)
	for _, chunk := range chunks {
		require.True(t, utf8.ValidString(chunk))
	}
	// Consecutive chunks share the overlap region, counted in runes.
	first := []rune(chunks[0])
	second := []rune(chunks[1])
	assert.Equal(t, string(first[len(first)-3:]), string(second[:3]))
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}

func TestChunkTextDegenerateSettings(t *testing.T) {
	// Overlap >= size must not loop forever.
	chunks := ChunkText(strings.Repeat("x", 100), 10, 10)
	assert.NotEmpty(t, chunks)

	chunks = ChunkText(strings.Repeat("x", 100), 0, 0)
	assert.NotEmpty(t, chunks)
}
