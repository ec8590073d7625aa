// Package knowledge manages knowledge bases: document ingestion, chunking,
// and keyword retrieval over the chunk store.
package knowledge

import "strings"

// Chunking defaults applied when a knowledge base does not configure its own
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Split cuts text into chunks of at most chunkSize runes with the given
// overlap between consecutive chunks. Cuts prefer the last whitespace inside
// the window so words are not bisected. Overlap is clamped to half the chunk
// size: the whitespace back-off never shrinks a window below half, so the
// cursor always moves forward.
func Split(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > chunkSize/2 {
		overlap = chunkSize / 2
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= chunkSize {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Back up to the nearest whitespace so the cut lands between words.
			// Give up after half a window and cut hard.
			cut := end
			for cut > start+chunkSize/2 && !isSpace(runes[cut-1]) {
				cut--
			}
			if cut > start+chunkSize/2 {
				end = cut
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
