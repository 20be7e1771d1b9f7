package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/examapi"
	"github.com/hoosierprep/sessiond/internal/model"
)

func guardFixture(t *testing.T, api *fakeAPI) (*Store, *Guard) {
	t.Helper()
	store, coord := openActive(t, api, model.ModeExam)
	return store, NewGuard(store, coord, zerolog.Nop())
}

func TestGuardInterceptsOnlyDirtySessions(t *testing.T) {
	store, guard := guardFixture(t, &fakeAPI{})

	if guard.ShouldIntercept() {
		t.Fatal("clean session must not intercept")
	}
	store.SetAnswer(101, model.TextAnswer("A"))
	if !guard.ShouldIntercept() {
		t.Fatal("dirty session must intercept")
	}

	epoch := store.Epoch()
	if _, err := store.BeginSubmit(epoch); err != nil {
		t.Fatalf("begin submit: %v", err)
	}
	if guard.ShouldIntercept() {
		t.Fatal("submission in flight must not intercept")
	}
	store.FinishSubmit(epoch)
	if guard.ShouldIntercept() {
		t.Fatal("terminal session must not intercept")
	}
}

func TestGuardCancelKeepsSession(t *testing.T) {
	store, guard := guardFixture(t, &fakeAPI{})
	store.SetAnswer(101, model.TextAnswer("A"))

	res, err := guard.Resolve(context.Background(), model.LeaveCancel)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Proceed {
		t.Fatal("cancel must not proceed")
	}
	state := store.Snapshot()
	if state.Phase != model.PhaseActive || state.Answers[101].Text != "A" {
		t.Fatalf("cancel must not touch state: %+v", state)
	}
}

func TestGuardSaveThenLeave(t *testing.T) {
	var saves int32
	api := &fakeAPI{
		saveProgress: func(ctx context.Context, attemptID int64, snap examapi.SaveProgressRequest) error {
			atomic.AddInt32(&saves, 1)
			return nil
		},
	}
	store, guard := guardFixture(t, api)
	store.SetAnswer(101, model.TextAnswer("A"))

	res, err := guard.Resolve(context.Background(), model.LeaveSave)
	if err != nil {
		t.Fatalf("save-and-leave: %v", err)
	}
	if !res.Proceed || !res.Saved {
		t.Fatalf("result = %+v", res)
	}
	if atomic.LoadInt32(&saves) != 1 {
		t.Fatalf("saved %d times, want 1", saves)
	}
	if store.Snapshot().Phase != model.PhaseNoAttempt {
		t.Fatal("leave must tear the session down")
	}
}

func TestGuardFailedSaveBlocksLeave(t *testing.T) {
	api := &fakeAPI{
		saveProgress: func(ctx context.Context, attemptID int64, snap examapi.SaveProgressRequest) error {
			return errors.New("write timeout")
		},
	}
	store, guard := guardFixture(t, api)
	store.SetAnswer(101, model.TextAnswer("A"))

	res, err := guard.Resolve(context.Background(), model.LeaveSave)
	if !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("expected ErrSaveFailed, got %v", err)
	}
	if res.Proceed {
		t.Fatal("failed save must block the leave")
	}
	if dirty, _, _ := store.GuardState(); !dirty {
		t.Fatal("session must stay dirty so the user can retry")
	}
	if store.Snapshot().Phase != model.PhaseActive {
		t.Fatal("blocked leave must keep the session alive")
	}
}

func TestGuardDiscardSkipsSave(t *testing.T) {
	api := &fakeAPI{
		saveProgress: func(ctx context.Context, attemptID int64, snap examapi.SaveProgressRequest) error {
			t.Fatal("discard must never write upstream")
			return nil
		},
	}
	store, guard := guardFixture(t, api)
	store.SetAnswer(101, model.TextAnswer("A"))

	res, err := guard.Resolve(context.Background(), model.LeaveDiscard)
	if err != nil {
		t.Fatalf("discard: %v", err)
	}
	if !res.Proceed || res.Saved {
		t.Fatalf("result = %+v", res)
	}
	if store.Snapshot().Phase != model.PhaseNoAttempt {
		t.Fatal("discard must tear the session down")
	}
}

func TestGuardCleanLeaveProceedsDirectly(t *testing.T) {
	store, guard := guardFixture(t, &fakeAPI{})

	res, err := guard.Resolve(context.Background(), model.LeaveDiscard)
	if err != nil {
		t.Fatalf("clean leave: %v", err)
	}
	if !res.Proceed {
		t.Fatal("clean session must leave without friction")
	}
	if store.Snapshot().Phase != model.PhaseNoAttempt {
		t.Fatal("leave must tear the session down")
	}
}
