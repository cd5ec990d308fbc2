package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"pdfchat/internal/model"
	"pdfchat/internal/registry"
)

// Registry is the slice of the document registry the engine needs:
// each attempt re-fetches the full list and looks the document up in
// the snapshot.
type Registry interface {
	List(ctx context.Context) ([]model.Document, error)
}

// Update is one observed transition of a tracked document.
//
// Terminal marks done/failed; Exhausted marks a run that used its whole
// attempt budget while the document was still in progress, which is not
// an error: the caller may start a new run later.
type Update struct {
	DocumentID      int64
	Status          model.ProcessingStatus
	ProcessingError string
	Attempt         int
	Terminal        bool
	Exhausted       bool
}

// Engine follows server-side processing of documents until they reach a
// terminal status or a poll budget runs out. At most one run is active
// per document: starting a new run supersedes and silences any prior
// one for the same id.
type Engine struct {
	registry Registry
	interval time.Duration
	logger   *zap.Logger

	mu         sync.Mutex
	generation uint64
	runs       map[int64]*pollRun
}

type pollRun struct {
	generation uint64
	cancel     context.CancelFunc
}

func NewEngine(reg Registry, interval time.Duration, logger *zap.Logger) *Engine {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Engine{
		registry: reg,
		interval: interval,
		logger:   logger,
		runs:     make(map[int64]*pollRun),
	}
}

// Start begins following the document. If its status is already
// terminal the engine emits exactly one terminal update without any
// network call. Otherwise it polls every interval, up to budget
// attempts. The returned channel is closed when the run ends for any
// reason.
func (e *Engine) Start(ctx context.Context, doc model.Document, budget int) <-chan Update {
	updates := make(chan Update, budget+1)

	if doc.ProcessingStatus.Terminal() {
		updates <- Update{
			DocumentID:      doc.ID,
			Status:          doc.ProcessingStatus,
			ProcessingError: doc.ProcessingError,
			Terminal:        true,
		}
		close(updates)
		return updates
	}

	runCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	e.generation++
	gen := e.generation
	if prev, ok := e.runs[doc.ID]; ok {
		prev.cancel()
	}
	e.runs[doc.ID] = &pollRun{generation: gen, cancel: cancel}
	e.mu.Unlock()

	go e.poll(runCtx, doc, gen, budget, updates)
	return updates
}

// Cancel stops the active run for the document, if any. No further
// updates are emitted for that run, even if a poll request is already
// in flight.
func (e *Engine) Cancel(documentID int64) {
	e.mu.Lock()
	run, ok := e.runs[documentID]
	if ok {
		delete(e.runs, documentID)
	}
	e.mu.Unlock()

	if ok {
		run.cancel()
	}
}

func (e *Engine) poll(ctx context.Context, doc model.Document, gen uint64, budget int, updates chan<- Update) {
	defer close(updates)
	defer e.finish(doc.ID, gen)

	lastStatus := doc.ProcessingStatus
	timer := time.NewTimer(e.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= budget; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if !e.owns(doc.ID, gen) {
			return
		}

		snapshot, err := e.registry.List(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			// A failed poll request consumes an attempt, same as a
			// "still processing" answer.
			e.logger.Warn("status poll failed",
				zap.Int64("document_id", doc.ID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			timer.Reset(e.interval)
			continue
		}

		if ctx.Err() != nil || !e.owns(doc.ID, gen) {
			return
		}

		current, found := registry.Find(doc.ID, snapshot)
		if !found {
			e.logger.Warn("document missing from registry snapshot",
				zap.Int64("document_id", doc.ID),
				zap.Int("attempt", attempt),
			)
			timer.Reset(e.interval)
			continue
		}

		lastStatus = current.ProcessingStatus
		update := Update{
			DocumentID:      doc.ID,
			Status:          current.ProcessingStatus,
			ProcessingError: current.ProcessingError,
			Attempt:         attempt,
			Terminal:        current.ProcessingStatus.Terminal(),
		}
		updates <- update

		if update.Terminal {
			e.logger.Info("poll reached terminal status",
				zap.Int64("document_id", doc.ID),
				zap.String("status", string(update.Status)),
				zap.Int("attempt", attempt),
			)
			return
		}
		timer.Reset(e.interval)
	}

	if ctx.Err() != nil || !e.owns(doc.ID, gen) {
		return
	}
	e.logger.Info("poll budget exhausted",
		zap.Int64("document_id", doc.ID),
		zap.String("status", string(lastStatus)),
		zap.Int("budget", budget),
	)
	updates <- Update{
		DocumentID: doc.ID,
		Status:     lastStatus,
		Attempt:    budget,
		Exhausted:  true,
	}
}

// owns reports whether gen is still the live run for the document. A
// superseded run goes silent on its next tick.
func (e *Engine) owns(documentID int64, gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	run, ok := e.runs[documentID]
	return ok && run.generation == gen
}

func (e *Engine) finish(documentID int64, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if run, ok := e.runs[documentID]; ok && run.generation == gen {
		delete(e.runs, documentID)
	}
}
