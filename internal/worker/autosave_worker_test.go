package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/examapi"
	"github.com/hoosierprep/sessiond/internal/model"
	"github.com/hoosierprep/sessiond/internal/session"
)

// stubAPI satisfies session.UpstreamAPI with a counting SaveProgress.
type stubAPI struct {
	saves   int32
	saveErr error
}

func (s *stubAPI) GetExam(ctx context.Context, examID int64) (*examapi.Exam, error) {
	return &examapi.Exam{ExamID: examID, Questions: []model.Question{
		{ID: 101, Stem: "Q1", Type: model.QuestionTypeShortText},
	}}, nil
}

func (s *stubAPI) StartAttempt(ctx context.Context, examID int64) (int64, error) {
	return 55, nil
}

func (s *stubAPI) GetInProgressAttempt(ctx context.Context, examID int64) (*examapi.InProgressAttempt, error) {
	return &examapi.InProgressAttempt{}, nil
}

func (s *stubAPI) GetProgress(ctx context.Context, attemptID int64) (*examapi.Progress, error) {
	return &examapi.Progress{}, nil
}

func (s *stubAPI) SaveProgress(ctx context.Context, attemptID int64, snap examapi.SaveProgressRequest) error {
	atomic.AddInt32(&s.saves, 1)
	return s.saveErr
}

func (s *stubAPI) GradeExam(ctx context.Context, examID int64, req examapi.GradeRequest) (*examapi.GradeReport, error) {
	return &examapi.GradeReport{AttemptID: 55}, nil
}

func (s *stubAPI) PreviewExamAnswers(ctx context.Context, examID int64) (map[int64]model.AnswerValue, error) {
	return nil, errors.New("not configured")
}

func fixture(t *testing.T, api *stubAPI) (*session.Store, *session.Coordinator) {
	t.Helper()
	store := session.NewStore()
	coord := session.NewCoordinator(store, api, zerolog.Nop())
	if _, err := coord.Open(context.Background(), 7, model.ModeExam, false); err != nil {
		t.Fatalf("open: %v", err)
	}
	return store, coord
}

func TestFlushSkipsCleanSession(t *testing.T) {
	api := &stubAPI{}
	store, coord := fixture(t, api)

	w := NewAutosaveWorker(store, coord, time.Minute, zerolog.Nop())
	w.flush(context.Background())

	if atomic.LoadInt32(&api.saves) != 0 {
		t.Fatal("clean session must not be saved")
	}
}

func TestFlushSavesDirtySession(t *testing.T) {
	api := &stubAPI{}
	store, coord := fixture(t, api)
	store.SetAnswer(101, model.TextAnswer("paris"))

	w := NewAutosaveWorker(store, coord, time.Minute, zerolog.Nop())
	w.flush(context.Background())

	if atomic.LoadInt32(&api.saves) != 1 {
		t.Fatalf("saved %d times, want 1", api.saves)
	}
	if dirty, _, _ := store.GuardState(); dirty {
		t.Fatal("flush must clear dirty")
	}

	// Nothing new to save; the next tick is a no-op.
	w.flush(context.Background())
	if atomic.LoadInt32(&api.saves) != 1 {
		t.Fatal("clean session must not be re-saved")
	}
}

func TestFlushRetriesAfterFailure(t *testing.T) {
	api := &stubAPI{saveErr: errors.New("write timeout")}
	store, coord := fixture(t, api)
	store.SetAnswer(101, model.TextAnswer("paris"))

	w := NewAutosaveWorker(store, coord, time.Minute, zerolog.Nop())
	w.flush(context.Background())

	if dirty, _, _ := store.GuardState(); !dirty {
		t.Fatal("failed flush must leave dirty set")
	}

	api.saveErr = nil
	w.flush(context.Background())
	if dirty, _, _ := store.GuardState(); dirty {
		t.Fatal("retry must clear dirty")
	}
	if atomic.LoadInt32(&api.saves) != 2 {
		t.Fatalf("saved %d times, want 2", api.saves)
	}
}

func TestStartFinalFlushOnShutdown(t *testing.T) {
	api := &stubAPI{}
	store, coord := fixture(t, api)
	store.SetAnswer(101, model.TextAnswer("paris"))

	w := NewAutosaveWorker(store, coord, time.Hour, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	if atomic.LoadInt32(&api.saves) != 1 {
		t.Fatalf("shutdown flush saved %d times, want 1", api.saves)
	}
}
