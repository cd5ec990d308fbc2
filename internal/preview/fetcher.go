package preview

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"pdfchat/internal/api"
)

// Handle is a materialized preview: the document bytes written to a
// temp file for handoff to an external viewer. Release removes the
// file; it is safe to call more than once.
type Handle struct {
	mu       sync.Mutex
	path     string
	size     int
	released bool
	logger   *zap.Logger
}

func (h *Handle) Path() string {
	return h.path
}

func (h *Handle) Size() int {
	return h.size
}

func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		h.logger.Warn("remove preview file failed", zap.String("path", h.path), zap.Error(err))
	}
}

// Fetcher retrieves document content through the authenticated channel.
// It keeps at most one live handle: every successful fetch releases the
// previous one so temp files never pile up across selections.
type Fetcher struct {
	api    *api.Client
	logger *zap.Logger

	mu      sync.Mutex
	current *Handle
}

func NewFetcher(apiClient *api.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		api:    apiClient,
		logger: logger,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, fileURL string) (*Handle, error) {
	raw, _, err := f.api.GetBytes(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "pdfchat-preview-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create preview file failed: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write preview file failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close preview file failed: %w", err)
	}

	handle := &Handle{
		path:   tmp.Name(),
		size:   len(raw),
		logger: f.logger,
	}

	f.mu.Lock()
	previous := f.current
	f.current = handle
	f.mu.Unlock()

	if previous != nil {
		previous.Release()
	}
	return handle, nil
}

// Current returns the live handle, if any.
func (f *Fetcher) Current() *Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Close releases the outstanding handle. Called on deselection and at
// shutdown.
func (f *Fetcher) Close() {
	f.mu.Lock()
	current := f.current
	f.current = nil
	f.mu.Unlock()

	if current != nil {
		current.Release()
	}
}
