package ingestion

const (
	// DefaultChunkSize and DefaultChunkOverlap shape the sliding window used
	// to split documents before embedding.
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 120
)

// ChunkText splits text into overlapping windows of at most size runes.
// Consecutive chunks share overlap runes so sentences cut at a boundary stay
// searchable in at least one chunk. The window counts runes, not bytes, so
// multibyte characters are never torn in half at a chunk edge.
func ChunkText(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	step := size - overlap
	if step < 1 {
		step = 1
	}

	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/step+1)
	for i := 0; i < len(runes); i += step {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
