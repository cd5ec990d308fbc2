package registry_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/api"
	"pdfchat/internal/api/apitest"
	"pdfchat/internal/model"
	"pdfchat/internal/registry"
)

func newClient(t *testing.T) (*registry.Client, *apitest.Backend) {
	t.Helper()
	backend := apitest.New(t)
	apiClient, _ := backend.Client(t)
	return registry.NewClient(apiClient), backend
}

func TestListReturnsDocumentsWithStatus(t *testing.T) {
	client, backend := newClient(t)
	backend.AddDocument("report.pdf", model.StatusDone)
	failed := backend.AddDocument("notes.pdf", model.StatusFailed)
	backend.SetProcessingError(failed.ID, "embedding service unavailable")

	docs, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "report.pdf", docs[0].Title)
	assert.Equal(t, model.StatusDone, docs[0].ProcessingStatus)
	assert.Equal(t, model.StatusFailed, docs[1].ProcessingStatus)
	assert.Equal(t, "embedding service unavailable", docs[1].ProcessingError)
}

func TestFind(t *testing.T) {
	snapshot := []model.Document{
		{ID: 1, Title: "a.pdf"},
		{ID: 2, Title: "b.pdf"},
	}

	doc, ok := registry.Find(2, snapshot)
	require.True(t, ok)
	assert.Equal(t, "b.pdf", doc.Title)

	_, ok = registry.Find(9, snapshot)
	assert.False(t, ok)
}

func TestUploadRegistersPendingDocument(t *testing.T) {
	client, _ := newClient(t)

	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o600))

	result, err := client.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "PDF uploaded. Processing started", result.Message)
	assert.NotZero(t, result.PDFID)
	assert.NotEmpty(t, result.FileURL)

	docs, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, result.PDFID, docs[0].ID)
	assert.Equal(t, model.StatusPending, docs[0].ProcessingStatus)
}

func TestUploadRejectsNonPDFBeforeAnyRequest(t *testing.T) {
	client, backend := newClient(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	_, err := client.Upload(context.Background(), path)
	assert.ErrorIs(t, err, registry.ErrNotPDF)
	assert.Zero(t, backend.ListCalls())
}

func TestUploadMissingFile(t *testing.T) {
	client, _ := newClient(t)

	_, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "ghost.pdf"))
	assert.Error(t, err)
}

func TestReprocessReturnsServerMessage(t *testing.T) {
	client, backend := newClient(t)
	doc := backend.AddDocument("report.pdf", model.StatusFailed)

	message, err := client.Reprocess(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "PDF processed successfully", message)

	docs, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, docs[0].ProcessingStatus)
	assert.Empty(t, docs[0].ProcessingError)
}

func TestReprocessFailureCarriesStatusMessage(t *testing.T) {
	client, backend := newClient(t)
	doc := backend.AddDocument("report.pdf", model.StatusFailed)
	backend.FailReprocess(apitest.FailSpec{
		Status: 500,
		Body:   []byte(`{"error": "text extraction failed"}`),
	})

	_, err := client.Reprocess(context.Background(), doc.ID)
	var statusErr *api.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "text extraction failed (500)", statusErr.Error())
}

func TestPingWorksWithoutAuth(t *testing.T) {
	client, _ := newClient(t)

	message, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "API working!", message)
}
