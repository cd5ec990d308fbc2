package chunks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pdfchat/internal/api"
	"pdfchat/internal/cache"
	"pdfchat/internal/model"
)

// Inspector fetches the derived text segments of a processed document.
// Valid only once the document reports done; an empty sequence is a
// normal outcome, not an error.
type Inspector struct {
	api    *api.Client
	cache  *cache.ChunkCache
	logger *zap.Logger
}

func NewInspector(apiClient *api.Client, chunkCache *cache.ChunkCache, logger *zap.Logger) *Inspector {
	return &Inspector{
		api:    apiClient,
		cache:  chunkCache,
		logger: logger,
	}
}

func (i *Inspector) Fetch(ctx context.Context, documentID int64) ([]model.Chunk, error) {
	if cached, ok := i.cache.Get(documentID); ok {
		return cached, nil
	}

	var chunks []model.Chunk
	if err := i.api.GetJSON(ctx, fmt.Sprintf("/api/pdf_chunks/%d/", documentID), &chunks); err != nil {
		return nil, err
	}

	i.cache.Set(documentID, chunks)
	i.logger.Debug("chunks fetched",
		zap.Int64("document_id", documentID),
		zap.Int("count", len(chunks)),
	)
	return chunks, nil
}

// Invalidate discards the cached sequence so the next fetch reflects
// regenerated chunks. Called after a reprocess trigger succeeds.
func (i *Inspector) Invalidate(documentID int64) {
	i.cache.Invalidate(documentID)
	i.logger.Debug("chunk cache invalidated", zap.Int64("document_id", documentID))
}
