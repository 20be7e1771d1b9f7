package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/session"
)

// AutosaveWorker periodically flushes a dirty progress snapshot upstream so
// an interrupted session loses at most one interval of work. Failed saves
// leave dirty set; the next tick retries.
type AutosaveWorker struct {
	store       *session.Store
	coordinator *session.Coordinator
	interval    time.Duration
	log         zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(store *session.Store, coordinator *session.Coordinator, interval time.Duration, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		store:       store,
		coordinator: coordinator,
		interval:    interval,
		log:         log.With().Str("component", "autosave_worker").Logger(),
	}
}

// Start begins the ticker loop. Call in a goroutine. On shutdown it makes
// one final flush attempt so a clean exit leaves nothing unsaved.
func (w *AutosaveWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info().Msg("Autosave disabled")
		return
	}

	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.flush(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// flush saves once if there is anything worth saving. Skips quietly when
// the session is clean, mid-save, or has no active attempt.
func (w *AutosaveWorker) flush(ctx context.Context) {
	dirty, terminal, submitting := w.store.GuardState()
	if !dirty || terminal || submitting {
		return
	}

	if err := w.coordinator.Save(ctx); err != nil {
		if errors.Is(err, session.ErrSaveInFlight) || errors.Is(err, session.ErrNotActive) || errors.Is(err, session.ErrNoSession) {
			return
		}
		w.log.Warn().Err(err).Msg("Autosave failed, will retry next tick")
		return
	}

	w.log.Debug().Msg("Autosaved")
}
