package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"pdfchat/internal/api"
	"pdfchat/internal/chat"
	"pdfchat/internal/chunks"
	"pdfchat/internal/model"
	"pdfchat/internal/poller"
	"pdfchat/internal/preview"
	"pdfchat/internal/registry"
)

var (
	ErrNoSelection      = errors.New("no document selected")
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentNotReady = errors.New("document is not processed yet")
)

// PollBudgets carries the two observed attempt budgets: the passive
// status-follow after selection and the shorter follow after an
// explicit reprocess trigger.
type PollBudgets struct {
	Passive   int
	Reprocess int
}

// DocumentService coordinates the per-document workflow: selection,
// status following, preview, chunk inspection, reprocessing, and the
// chat session bound to the current selection.
type DocumentService struct {
	api       *api.Client
	registry  *registry.Client
	engine    *poller.Engine
	inspector *chunks.Inspector
	fetcher   *preview.Fetcher
	budgets   PollBudgets
	logger    *zap.Logger

	mu       sync.Mutex
	selected *model.Document
	session  *chat.Session
}

func NewDocumentService(
	apiClient *api.Client,
	reg *registry.Client,
	engine *poller.Engine,
	inspector *chunks.Inspector,
	fetcher *preview.Fetcher,
	budgets PollBudgets,
	logger *zap.Logger,
) *DocumentService {
	if budgets.Passive <= 0 {
		budgets.Passive = 30
	}
	if budgets.Reprocess <= 0 {
		budgets.Reprocess = 12
	}
	return &DocumentService{
		api:       apiClient,
		registry:  reg,
		engine:    engine,
		inspector: inspector,
		fetcher:   fetcher,
		budgets:   budgets,
		logger:    logger,
	}
}

// List refreshes the registry snapshot. Any holder of the service may
// call it, e.g. right after an upload.
func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.registry.List(ctx)
}

func (s *DocumentService) Upload(ctx context.Context, filePath string) (*registry.UploadResult, error) {
	return s.registry.Upload(ctx, filePath)
}

func (s *DocumentService) Ping(ctx context.Context) (string, error) {
	return s.registry.Ping(ctx)
}

// Select makes the document the current one, tearing the previous
// selection down first: its poll run is cancelled, its preview handle
// released, and its transcript discarded. A fresh status-follow run
// with the passive budget starts immediately; for already-terminal
// documents it emits the single terminal update without polling.
func (s *DocumentService) Select(ctx context.Context, id int64) (model.Document, <-chan poller.Update, error) {
	snapshot, err := s.registry.List(ctx)
	if err != nil {
		return model.Document{}, nil, err
	}
	doc, found := registry.Find(id, snapshot)
	if !found {
		return model.Document{}, nil, ErrDocumentNotFound
	}

	s.Deselect()

	s.mu.Lock()
	selected := doc
	s.selected = &selected
	s.session = chat.NewSession(s.api, doc.ID)
	s.mu.Unlock()

	s.logger.Info("document selected",
		zap.Int64("document_id", doc.ID),
		zap.String("status", string(doc.ProcessingStatus)),
	)
	updates := s.engine.Start(ctx, doc, s.budgets.Passive)
	return doc, updates, nil
}

// Deselect cancels the active poll run, releases the preview handle,
// and drops the chat session.
func (s *DocumentService) Deselect() {
	s.mu.Lock()
	previous := s.selected
	s.selected = nil
	s.session = nil
	s.mu.Unlock()

	if previous != nil {
		s.engine.Cancel(previous.ID)
		s.fetcher.Close()
	}
}

func (s *DocumentService) Selected() (model.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return model.Document{}, false
	}
	return *s.selected, true
}

// Session returns the chat session bound to the current selection.
func (s *DocumentService) Session() (*chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, false
	}
	return s.session, true
}

// ApplyUpdate folds a poll transition back into the tracked selection.
// Updates for anything but the current document are ignored; a
// superseded run cannot overwrite newer state.
func (s *DocumentService) ApplyUpdate(u poller.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil || s.selected.ID != u.DocumentID || u.Exhausted {
		return
	}
	s.selected.ProcessingStatus = u.Status
	s.selected.ProcessingError = u.ProcessingError
}

// Reprocess triggers reprocessing of the current selection. On success
// the cached chunks are discarded and a new status-follow run starts,
// seeded at processing with the reduced budget. There is no automatic
// retry on failure.
func (s *DocumentService) Reprocess(ctx context.Context) (string, <-chan poller.Update, error) {
	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return "", nil, ErrNoSelection
	}
	doc := *s.selected
	s.mu.Unlock()

	message, err := s.registry.Reprocess(ctx, doc.ID)
	if err != nil {
		return "", nil, err
	}

	s.inspector.Invalidate(doc.ID)

	s.mu.Lock()
	if s.selected != nil && s.selected.ID == doc.ID {
		s.selected.ProcessingStatus = model.StatusProcessing
		s.selected.ProcessingError = ""
	}
	s.mu.Unlock()

	doc.ProcessingStatus = model.StatusProcessing
	doc.ProcessingError = ""
	s.logger.Info("reprocess triggered", zap.Int64("document_id", doc.ID))
	updates := s.engine.Start(ctx, doc, s.budgets.Reprocess)
	return message, updates, nil
}

// Preview fetches the current selection's content. The fetcher releases
// the previously held handle as part of the swap.
func (s *DocumentService) Preview(ctx context.Context) (*preview.Handle, error) {
	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return nil, ErrNoSelection
	}
	fileURL := s.selected.FileURL
	s.mu.Unlock()

	return s.fetcher.Fetch(ctx, fileURL)
}

// Chunks returns the chunk sequence of the current selection. Only
// valid for a document that reports done.
func (s *DocumentService) Chunks(ctx context.Context) ([]model.Chunk, error) {
	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return nil, ErrNoSelection
	}
	doc := *s.selected
	s.mu.Unlock()

	if doc.ProcessingStatus != model.StatusDone {
		return nil, ErrDocumentNotReady
	}
	return s.inspector.Fetch(ctx, doc.ID)
}

// Close tears down the current selection and its resources.
func (s *DocumentService) Close() {
	s.Deselect()
}
