package knowledge

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/config"
	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/services"
)

type mockKnowledgeRepo struct {
	mock.Mock
}

func (m *mockKnowledgeRepo) CreateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error {
	return m.Called(ctx, kb).Error(0)
}

func (m *mockKnowledgeRepo) GetKnowledgeBase(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.KnowledgeBase), args.Error(1)
}

func (m *mockKnowledgeRepo) GetKnowledgeBasesByUserID(ctx context.Context, userID uuid.UUID) ([]*models.KnowledgeBase, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.KnowledgeBase), args.Error(1)
}

func (m *mockKnowledgeRepo) UpdateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error {
	return m.Called(ctx, kb).Error(0)
}

func (m *mockKnowledgeRepo) DeleteKnowledgeBase(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockKnowledgeRepo) CreateDocument(ctx context.Context, doc *models.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockKnowledgeRepo) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *mockKnowledgeRepo) GetDocumentsByKnowledgeBase(ctx context.Context, kbID uuid.UUID, limit, offset int) ([]*models.Document, error) {
	args := m.Called(ctx, kbID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Document), args.Error(1)
}

func (m *mockKnowledgeRepo) UpdateDocument(ctx context.Context, doc *models.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockKnowledgeRepo) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockKnowledgeRepo) CreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	return m.Called(ctx, chunks).Error(0)
}

func (m *mockKnowledgeRepo) GetChunksByKnowledgeBases(ctx context.Context, kbIDs []uuid.UUID) ([]*models.DocumentChunk, error) {
	args := m.Called(ctx, kbIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DocumentChunk), args.Error(1)
}

func (m *mockKnowledgeRepo) DeleteChunksByDocument(ctx context.Context, documentID uuid.UUID) error {
	return m.Called(ctx, documentID).Error(0)
}

func (m *mockKnowledgeRepo) WithTx(tx repositories.Transaction) repositories.KnowledgeRepository {
	return m
}

type fakeTx struct {
	ctx        context.Context
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error            { t.committed = true; return nil }
func (t *fakeTx) Rollback() error          { t.rolledBack = true; return nil }
func (t *fakeTx) Context() context.Context { return t.ctx }

type fakeTxManager struct {
	last *fakeTx
}

func (m *fakeTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	m.last = &fakeTx{ctx: ctx}
	return m.last, nil
}

func (m *fakeTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx.Context(), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newTestService(repo *mockKnowledgeRepo, txm *fakeTxManager, maxBytes int64) *Service {
	return NewService(repo, txm, config.UploadConfig{MaxFileSize: maxBytes}, zap.NewNop())
}

func TestService_AddDocument(t *testing.T) {
	userID := uuid.New()

	newBase := func() *models.KnowledgeBase {
		return models.NewKnowledgeBase(userID, "handbook")
	}

	t.Run("oversized content rejected before any write", func(t *testing.T) {
		repo := new(mockKnowledgeRepo)
		svc := newTestService(repo, &fakeTxManager{}, 64)

		_, err := svc.AddDocument(context.Background(), userID, uuid.New(), AddDocumentInput{
			Title:   "too big",
			Content: strings.Repeat("x", 65),
		})
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
		repo.AssertNotCalled(t, "CreateDocument", mock.Anything, mock.Anything)
	})

	t.Run("content at the limit is accepted", func(t *testing.T) {
		repo := new(mockKnowledgeRepo)
		kb := newBase()
		txm := &fakeTxManager{}

		repo.On("GetKnowledgeBase", mock.Anything, kb.ID).Return(kb, nil)
		repo.On("CreateDocument", mock.Anything, mock.AnythingOfType("*models.Document")).Return(nil)
		repo.On("CreateChunks", mock.Anything, mock.Anything).Return(nil)
		repo.On("UpdateKnowledgeBase", mock.Anything, kb).Return(nil)

		svc := newTestService(repo, txm, 64)
		doc, err := svc.AddDocument(context.Background(), userID, kb.ID, AddDocumentInput{
			Title:   "fits",
			Content: strings.Repeat("y", 64),
		})
		require.NoError(t, err)
		assert.True(t, doc.IsProcessed)
		require.NotNil(t, txm.last)
		assert.True(t, txm.last.committed)
	})

	t.Run("no limit configured accepts any size", func(t *testing.T) {
		repo := new(mockKnowledgeRepo)
		kb := newBase()

		repo.On("GetKnowledgeBase", mock.Anything, kb.ID).Return(kb, nil)
		repo.On("CreateDocument", mock.Anything, mock.Anything).Return(nil)
		repo.On("CreateChunks", mock.Anything, mock.Anything).Return(nil)
		repo.On("UpdateKnowledgeBase", mock.Anything, kb).Return(nil)

		svc := newTestService(repo, &fakeTxManager{}, 0)
		_, err := svc.AddDocument(context.Background(), userID, kb.ID, AddDocumentInput{
			Title:   "large",
			Content: strings.Repeat("paragraph ", 500),
		})
		assert.NoError(t, err)
	})
}

func TestService_CreateKnowledgeBase(t *testing.T) {
	userID := uuid.New()

	t.Run("overlap must stay below chunk size", func(t *testing.T) {
		svc := newTestService(new(mockKnowledgeRepo), &fakeTxManager{}, 0)
		_, err := svc.CreateKnowledgeBase(context.Background(), userID, CreateKnowledgeBaseInput{
			Name:         "bad",
			ChunkSize:    500,
			ChunkOverlap: 500,
		})
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("custom chunking settings applied", func(t *testing.T) {
		repo := new(mockKnowledgeRepo)
		repo.On("CreateKnowledgeBase", mock.Anything, mock.AnythingOfType("*models.KnowledgeBase")).Return(nil)

		svc := newTestService(repo, &fakeTxManager{}, 0)
		kb, err := svc.CreateKnowledgeBase(context.Background(), userID, CreateKnowledgeBaseInput{
			Name:         "manuals",
			ChunkSize:    800,
			ChunkOverlap: 120,
		})
		require.NoError(t, err)
		assert.Equal(t, 800, kb.ChunkSize)
		assert.Equal(t, 120, kb.ChunkOverlap)
	})
}
