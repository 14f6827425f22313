package core

const (
	// Target span length and overlap between consecutive spans, in runes.
	ChunkSize    = 1000
	ChunkOverlap = 200
)

// RawChunk is one bounded span of extracted page text, not yet tagged with an
// owner. StartIndex is the rune offset of the span within its source page.
type RawChunk struct {
	Text       string
	Page       int
	StartIndex int
}

// SplitText splits one page of text into overlapping spans. The walk is
// deterministic: identical input always yields the identical ordered spans.
func SplitText(text string, page int) []RawChunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := ChunkSize - ChunkOverlap
	var chunks []RawChunk
	for start := 0; start < len(runes); start += step {
		end := start + ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, RawChunk{
			Text:       string(runes[start:end]),
			Page:       page,
			StartIndex: start,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
