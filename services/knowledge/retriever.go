package knowledge

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/WriterGao/CoreMind/models"
)

// ScoredChunk is a retrieval hit with its relevance score
type ScoredChunk struct {
	Chunk *models.DocumentChunk
	Score float64
}

// Retriever finds chunks relevant to a query. The keyword implementation
// below is the default; a vector store can satisfy the same interface.
type Retriever interface {
	Retrieve(ctx context.Context, kbIDs []uuid.UUID, query string, topK int) ([]ScoredChunk, error)
}

// ChunkStore is the slice of the knowledge repository the retriever needs
type ChunkStore interface {
	GetChunksByKnowledgeBases(ctx context.Context, kbIDs []uuid.UUID) ([]*models.DocumentChunk, error)
}

// KeywordRetriever ranks chunks by term frequency of the query terms
type KeywordRetriever struct {
	store ChunkStore
}

// NewKeywordRetriever creates a retriever over the given chunk store
func NewKeywordRetriever(store ChunkStore) *KeywordRetriever {
	return &KeywordRetriever{store: store}
}

// Retrieve scores every chunk in the given knowledge bases against the query
// terms and returns the topK chunks with a positive score
func (r *KeywordRetriever) Retrieve(ctx context.Context, kbIDs []uuid.UUID, query string, topK int) ([]ScoredChunk, error) {
	if len(kbIDs) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	chunks, err := r.store.GetChunksByKnowledgeBases(ctx, kbIDs)
	if err != nil {
		return nil, err
	}

	var hits []ScoredChunk
	for _, chunk := range chunks {
		content := strings.ToLower(chunk.Content)
		score := 0.0
		for _, term := range terms {
			score += float64(strings.Count(content, term))
		}
		if score > 0 {
			hits = append(hits, ScoredChunk{Chunk: chunk, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
