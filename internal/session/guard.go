package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/model"
)

// Guard intercepts transitions away from the active session while unsaved
// changes exist. One predicate backs both exit paths: the in-app three-way
// dialog and the platform-level binary prompt.
type Guard struct {
	store       *Store
	coordinator *Coordinator
	log         zerolog.Logger
}

// NewGuard creates a Guard over the shared store.
func NewGuard(store *Store, coordinator *Coordinator, log zerolog.Logger) *Guard {
	return &Guard{
		store:       store,
		coordinator: coordinator,
		log:         log.With().Str("component", "guard").Logger(),
	}
}

// ShouldIntercept reports whether leaving now would lose unsaved work:
// dirty, not terminal, and no submission in flight.
func (g *Guard) ShouldIntercept() bool {
	dirty, terminal, submitting := g.store.GuardState()
	return dirty && !terminal && !submitting
}

// Resolve applies one of the three exit resolutions:
//
//   - save: persist progress, then proceed; a failed save keeps the
//     session blocked with dirty still set.
//   - discard: drop in-memory state and proceed without saving.
//   - cancel: stay put, no state change.
//
// A leave that needs no interception proceeds directly, tearing the
// session down.
func (g *Guard) Resolve(ctx context.Context, resolution model.LeaveResolution) (model.LeaveResult, error) {
	if resolution == model.LeaveCancel {
		return model.LeaveResult{Proceed: false}, nil
	}

	if !g.ShouldIntercept() {
		g.store.Reset()
		return model.LeaveResult{Proceed: true}, nil
	}

	switch resolution {
	case model.LeaveSave:
		if err := g.coordinator.Save(ctx); err != nil {
			g.log.Warn().Err(err).Msg("Save-and-leave blocked by failed save")
			return model.LeaveResult{Proceed: false}, err
		}
		g.store.Reset()
		return model.LeaveResult{Proceed: true, Saved: true}, nil
	case model.LeaveDiscard:
		g.store.Reset()
		return model.LeaveResult{Proceed: true}, nil
	default:
		return model.LeaveResult{Proceed: false}, fmt.Errorf("unknown leave resolution %q", resolution)
	}
}
