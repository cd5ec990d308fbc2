package chunks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pdfchat/internal/api"
	"pdfchat/internal/api/apitest"
	"pdfchat/internal/cache"
	"pdfchat/internal/chunks"
	"pdfchat/internal/model"
)

func newInspector(t *testing.T) (*chunks.Inspector, *apitest.Backend) {
	t.Helper()
	backend := apitest.New(t)
	apiClient, _ := backend.Client(t)
	return chunks.NewInspector(apiClient, cache.NewChunkCache(time.Minute), zap.NewNop()), backend
}

func TestFetchReturnsChunksInOrder(t *testing.T) {
	inspector, backend := newInspector(t)
	doc := backend.AddDocument("report.pdf", model.StatusDone)
	backend.SetChunks(doc.ID, "first segment", "second segment", "third segment")

	got, err := inspector.Fetch(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first segment", got[0].Text)
	assert.Equal(t, "third segment", got[2].Text)
	assert.Equal(t, 0, got[0].Order)
	assert.Equal(t, 2, got[2].Order)
}

func TestFetchEmptySequenceIsNotAnError(t *testing.T) {
	inspector, backend := newInspector(t)
	doc := backend.AddDocument("blank.pdf", model.StatusDone)

	got, err := inspector.Fetch(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchServesRepeatCallsFromCache(t *testing.T) {
	inspector, backend := newInspector(t)
	doc := backend.AddDocument("report.pdf", model.StatusDone)
	backend.SetChunks(doc.ID, "original text")

	first, err := inspector.Fetch(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The server regenerates chunks, but without an invalidation the
	// client keeps serving the cached sequence.
	backend.SetChunks(doc.ID, "regenerated text")

	second, err := inspector.Fetch(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "original text", second[0].Text)
}

func TestInvalidateForcesFreshFetch(t *testing.T) {
	inspector, backend := newInspector(t)
	doc := backend.AddDocument("report.pdf", model.StatusDone)
	backend.SetChunks(doc.ID, "original text")

	_, err := inspector.Fetch(context.Background(), doc.ID)
	require.NoError(t, err)

	backend.SetChunks(doc.ID, "regenerated text")
	inspector.Invalidate(doc.ID)

	got, err := inspector.Fetch(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "regenerated text", got[0].Text)
}

func TestFetchPropagatesUnauthorized(t *testing.T) {
	inspector, backend := newInspector(t)
	doc := backend.AddDocument("report.pdf", model.StatusDone)
	backend.Revoke()

	_, err := inspector.Fetch(context.Background(), doc.ID)
	require.ErrorIs(t, err, api.ErrUnauthorized)
}
