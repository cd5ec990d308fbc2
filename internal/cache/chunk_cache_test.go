package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/model"
)

func TestSetGetInvalidate(t *testing.T) {
	c := NewChunkCache(time.Minute)

	_, ok := c.Get(7)
	assert.False(t, ok)

	chunks := []model.Chunk{{ID: 1, Text: "segment"}}
	c.Set(7, chunks)

	got, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, chunks, got)

	c.Invalidate(7)
	_, ok = c.Get(7)
	assert.False(t, ok)
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	c := NewChunkCache(10 * time.Millisecond)
	c.Set(7, []model.Chunk{{ID: 1, Text: "segment"}})

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(7)
	assert.False(t, ok)
}

func TestDocumentsAreCachedIndependently(t *testing.T) {
	c := NewChunkCache(time.Minute)
	c.Set(1, []model.Chunk{{ID: 1, Text: "first"}})
	c.Set(2, []model.Chunk{{ID: 2, Text: "second"}})

	c.Invalidate(1)

	_, ok := c.Get(1)
	assert.False(t, ok)
	got, ok := c.Get(2)
	require.True(t, ok)
	assert.Equal(t, "second", got[0].Text)
}
