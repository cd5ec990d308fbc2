package cache

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"pdfchat/internal/model"
)

// ChunkCache keeps fetched chunk sequences per document. Entries are
// dropped on TTL expiry or explicitly when a reprocess regenerates the
// chunks server-side.
type ChunkCache struct {
	store *gocache.Cache
}

func NewChunkCache(ttl time.Duration) *ChunkCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ChunkCache{
		store: gocache.New(ttl, 2*ttl),
	}
}

func (c *ChunkCache) Get(documentID int64) ([]model.Chunk, bool) {
	raw, ok := c.store.Get(key(documentID))
	if !ok {
		return nil, false
	}
	chunks, ok := raw.([]model.Chunk)
	return chunks, ok
}

func (c *ChunkCache) Set(documentID int64, chunks []model.Chunk) {
	c.store.SetDefault(key(documentID), chunks)
}

func (c *ChunkCache) Invalidate(documentID int64) {
	c.store.Delete(key(documentID))
}

func key(documentID int64) string {
	return strconv.FormatInt(documentID, 10)
}
