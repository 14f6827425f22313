package core

import (
	"github.com/google/uuid"

	"github.com/emmanuel1-byte/chatpdf/internal/vector"
)

// Tag mints a fresh document id and stamps {user_id, doc_id} on every chunk.
// This is the sole point where chunks gain their tenant tags; nothing reaches
// the vector store untagged.
func Tag(chunks []RawChunk, userID string) (string, []vector.Chunk) {
	docID := uuid.NewString()

	tagged := make([]vector.Chunk, len(chunks))
	for i, chunk := range chunks {
		tagged[i] = vector.Chunk{
			Text:       chunk.Text,
			Page:       chunk.Page,
			StartIndex: chunk.StartIndex,
			UserID:     userID,
			DocID:      docID,
		}
	}
	return docID, tagged
}
