package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTag_StampsEveryChunk(t *testing.T) {
	t.Parallel()

	chunks := []RawChunk{
		{Text: "first", Page: 1, StartIndex: 0},
		{Text: "second", Page: 1, StartIndex: 800},
		{Text: "third", Page: 2, StartIndex: 0},
	}

	docID, tagged := Tag(chunks, "user-a")

	_, err := uuid.Parse(docID)
	require.NoError(t, err)

	require.Len(t, tagged, len(chunks))
	for i, chunk := range tagged {
		assert.Equal(t, "user-a", chunk.UserID)
		assert.Equal(t, docID, chunk.DocID)
		assert.Equal(t, chunks[i].Text, chunk.Text)
		assert.Equal(t, chunks[i].Page, chunk.Page)
		assert.Equal(t, chunks[i].StartIndex, chunk.StartIndex)
	}
}

func TestTag_MintsUniqueDocIDs(t *testing.T) {
	t.Parallel()

	chunks := []RawChunk{{Text: "same input", Page: 1}}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		docID, _ := Tag(chunks, "user-a")
		assert.False(t, seen[docID], "doc_id %s minted twice", docID)
		seen[docID] = true
	}
}

func TestTag_EmptyInput(t *testing.T) {
	t.Parallel()

	docID, tagged := Tag(nil, "user-a")
	assert.NotEmpty(t, docID)
	assert.Empty(t, tagged)
}
