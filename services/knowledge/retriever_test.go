package knowledge

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/WriterGao/CoreMind/models"
)

type mockChunkStore struct {
	mock.Mock
}

func (m *mockChunkStore) GetChunksByKnowledgeBases(ctx context.Context, kbIDs []uuid.UUID) ([]*models.DocumentChunk, error) {
	args := m.Called(ctx, kbIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DocumentChunk), args.Error(1)
}

func chunk(content string) *models.DocumentChunk {
	return &models.DocumentChunk{ID: uuid.New(), Content: content}
}

func TestKeywordRetriever_Retrieve(t *testing.T) {
	kbIDs := []uuid.UUID{uuid.New()}

	t.Run("ranks by term frequency", func(t *testing.T) {
		store := new(mockChunkStore)
		store.On("GetChunksByKnowledgeBases", mock.Anything, kbIDs).Return([]*models.DocumentChunk{
			chunk("the billing cycle starts monthly"),
			chunk("billing billing billing questions go to billing support"),
			chunk("unrelated content about weather"),
		}, nil)

		r := NewKeywordRetriever(store)
		hits, err := r.Retrieve(context.Background(), kbIDs, "billing", 10)
		require.NoError(t, err)

		require.Len(t, hits, 2)
		assert.Contains(t, hits[0].Chunk.Content, "billing support")
		assert.Greater(t, hits[0].Score, hits[1].Score)
	})

	t.Run("case insensitive", func(t *testing.T) {
		store := new(mockChunkStore)
		store.On("GetChunksByKnowledgeBases", mock.Anything, kbIDs).Return([]*models.DocumentChunk{
			chunk("Billing FAQ"),
		}, nil)

		r := NewKeywordRetriever(store)
		hits, err := r.Retrieve(context.Background(), kbIDs, "BILLING", 5)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("respects topK", func(t *testing.T) {
		store := new(mockChunkStore)
		store.On("GetChunksByKnowledgeBases", mock.Anything, kbIDs).Return([]*models.DocumentChunk{
			chunk("topic a"), chunk("topic b"), chunk("topic c"), chunk("topic d"),
		}, nil)

		r := NewKeywordRetriever(store)
		hits, err := r.Retrieve(context.Background(), kbIDs, "topic", 2)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("no knowledge bases short-circuits", func(t *testing.T) {
		store := new(mockChunkStore)
		r := NewKeywordRetriever(store)

		hits, err := r.Retrieve(context.Background(), nil, "anything", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
		store.AssertNotCalled(t, "GetChunksByKnowledgeBases")
	})

	t.Run("blank query short-circuits", func(t *testing.T) {
		store := new(mockChunkStore)
		r := NewKeywordRetriever(store)

		hits, err := r.Retrieve(context.Background(), kbIDs, "   ", 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
		store.AssertNotCalled(t, "GetChunksByKnowledgeBases")
	})
}
