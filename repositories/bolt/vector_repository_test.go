package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/retrieval-gateway/models"
	"go.uber.org/zap"
)

func newTestRepo(t *testing.T) *VectorRepository {
	t.Helper()
	repo, err := NewVectorRepository(filepath.Join(t.TempDir(), "vectors.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testRecord(docID uuid.UUID, ordinal int, text string) models.VectorRecord {
	return models.VectorRecord{
		Chunk: models.Chunk{
			ID:         uuid.New(),
			DocumentID: docID,
			Ordinal:    ordinal,
			Text:       text,
			CharCount:  len(text),
			Title:      "title",
			CreatedAt:  time.Now().UTC().Truncate(time.Second),
		},
		Vector:    []float32{0.1, 0.2, 0.3},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSaveBatchAndLoadAll_PreservesInsertionOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	docID := uuid.New()
	first := testRecord(docID, 0, "first")
	second := testRecord(docID, 1, "second")
	third := testRecord(docID, 2, "third")

	require.NoError(t, repo.SaveBatch(ctx, []models.VectorRecord{first, second}))
	require.NoError(t, repo.SaveBatch(ctx, []models.VectorRecord{third}))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, first.Chunk.ID, loaded[0].Chunk.ID)
	assert.Equal(t, second.Chunk.ID, loaded[1].Chunk.ID)
	assert.Equal(t, third.Chunk.ID, loaded[2].Chunk.ID)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, loaded[0].Vector)
	assert.Equal(t, "first", loaded[0].Chunk.Text)
}

func TestSaveBatch_UpsertKeepsPosition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	docID := uuid.New()
	first := testRecord(docID, 0, "first")
	second := testRecord(docID, 1, "second")
	require.NoError(t, repo.SaveBatch(ctx, []models.VectorRecord{first, second}))

	updated := first
	updated.Chunk.Text = "first updated"
	updated.Vector = []float32{9, 9, 9}
	require.NoError(t, repo.SaveBatch(ctx, []models.VectorRecord{updated}))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, first.Chunk.ID, loaded[0].Chunk.ID)
	assert.Equal(t, "first updated", loaded[0].Chunk.Text)
	assert.Equal(t, []float32{9, 9, 9}, loaded[0].Vector)
}

func TestSaveBatch_EmptyBatchIsNoOp(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.SaveBatch(context.Background(), nil))

	loaded, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestDeleteDocument(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	keep := uuid.New()
	drop := uuid.New()
	kept := testRecord(keep, 0, "kept")
	require.NoError(t, repo.SaveBatch(ctx, []models.VectorRecord{
		kept,
		testRecord(drop, 0, "doomed a"),
		testRecord(drop, 1, "doomed b"),
	}))

	require.NoError(t, repo.DeleteDocument(ctx, drop))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, kept.Chunk.ID, loaded[0].Chunk.ID)

	// deleting an absent document is not an error at this layer
	require.NoError(t, repo.DeleteDocument(ctx, drop))
}

func TestDeleteAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveBatch(ctx, []models.VectorRecord{testRecord(uuid.New(), 0, "x")}))
	require.NoError(t, repo.DeleteAll(ctx))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// repository remains usable after a full clear
	require.NoError(t, repo.SaveBatch(ctx, []models.VectorRecord{testRecord(uuid.New(), 0, "y")}))
	loaded, err = repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestReopen_PersistsAcrossHandles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.db")
	ctx := context.Background()

	repo, err := NewVectorRepository(path, zap.NewNop())
	require.NoError(t, err)

	rec := testRecord(uuid.New(), 0, "durable")
	require.NoError(t, repo.SaveBatch(ctx, []models.VectorRecord{rec}))
	require.NoError(t, repo.Close())

	reopened, err := NewVectorRepository(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, rec.Chunk.ID, loaded[0].Chunk.ID)
	assert.Equal(t, "durable", loaded[0].Chunk.Text)
}
