package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	chunks := SplitText("Revenue grew 10% in Q1.", 1)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Revenue grew 10% in Q1.", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 0, chunks[0].StartIndex)
}

func TestSplitText_Empty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, SplitText("", 1))
}

func TestSplitText_WindowsAndOffsets(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("abcdefghij", 250) // 2500 chars
	chunks := SplitText(text, 3)

	// Steps of 800: spans start at 0, 800 and 1600; the last one reaches
	// the end of the page.
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i*(ChunkSize-ChunkOverlap), chunk.StartIndex)
		assert.Equal(t, 3, chunk.Page)
		assert.LessOrEqual(t, len(chunk.Text), ChunkSize)
	}
	assert.Len(t, chunks[0].Text, ChunkSize)
	assert.Len(t, chunks[2].Text, 900)

	// Consecutive spans overlap by exactly ChunkOverlap characters.
	head := chunks[0].Text[len(chunks[0].Text)-ChunkOverlap:]
	assert.Equal(t, head, chunks[1].Text[:ChunkOverlap])
}

func TestSplitText_Deterministic(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 60)

	first := SplitText(text, 2)
	second := SplitText(text, 2)

	require.Equal(t, first, second)
}

func TestSplitText_ReassemblesOriginal(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("0123456789", 180) // 1800 chars
	chunks := SplitText(text, 1)

	var rebuilt strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			rebuilt.WriteString(chunk.Text)
			continue
		}
		rebuilt.WriteString(chunk.Text[ChunkOverlap:])
	}
	assert.Equal(t, text, rebuilt.String())
}
