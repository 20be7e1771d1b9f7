package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/examapi"
	"github.com/hoosierprep/sessiond/internal/grading"
	"github.com/hoosierprep/sessiond/internal/model"
)

// UpstreamAPI is the slice of the exam service contract the session engine
// consumes. *examapi.Client satisfies it.
type UpstreamAPI interface {
	GetExam(ctx context.Context, examID int64) (*examapi.Exam, error)
	StartAttempt(ctx context.Context, examID int64) (int64, error)
	GetInProgressAttempt(ctx context.Context, examID int64) (*examapi.InProgressAttempt, error)
	GetProgress(ctx context.Context, attemptID int64) (*examapi.Progress, error)
	SaveProgress(ctx context.Context, attemptID int64, snap examapi.SaveProgressRequest) error
	GradeExam(ctx context.Context, examID int64, req examapi.GradeRequest) (*examapi.GradeReport, error)
	PreviewExamAnswers(ctx context.Context, examID int64) (map[int64]model.AnswerValue, error)
}

// Coordinator orchestrates attempt creation, resumption, and save
// operations against the upstream service. It owns the dirty lifecycle:
// only its save path moves the baseline forward.
type Coordinator struct {
	store *Store
	api   UpstreamAPI
	log   zerolog.Logger
}

// NewCoordinator creates a Coordinator over the shared store.
func NewCoordinator(store *Store, api UpstreamAPI, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		store: store,
		api:   api,
		log:   log.With().Str("component", "coordinator").Logger(),
	}
}

// Open loads the question set for an exam and establishes an attempt.
//
// If an unfinished attempt with saved progress exists and autoResume was
// not requested, the session parks in RESUME_PENDING awaiting the user's
// decision. An existing empty attempt is adopted silently; otherwise a
// fresh attempt is started.
func (c *Coordinator) Open(ctx context.Context, examID int64, mode model.Mode, autoResume bool) (model.AttemptState, error) {
	exam, err := c.api.GetExam(ctx, examID)
	if err != nil {
		// Session stays empty; the caller may retry the whole open.
		c.store.Reset()
		return model.AttemptState{}, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	epoch := c.store.Load(examID, mode, exam.Questions)

	c.log.Info().
		Int64("exam_id", examID).
		Str("mode", string(mode)).
		Int("questions", len(exam.Questions)).
		Msg("Session loaded")

	inProgress, err := c.api.GetInProgressAttempt(ctx, examID)
	if err != nil {
		// Detection failure is not fatal: fall back to a fresh attempt,
		// same as a resume failure.
		c.log.Warn().Err(err).Int64("exam_id", examID).Msg("In-progress lookup failed, starting fresh")
		inProgress = &examapi.InProgressAttempt{}
	}

	switch {
	case inProgress.Exists && hasSavedProgress(inProgress):
		if autoResume {
			if err := c.resume(ctx, epoch, inProgress.AttemptID); err != nil {
				return model.AttemptState{}, err
			}
		} else {
			if err := c.store.SetResumePending(epoch, inProgress.AttemptID); err != nil {
				return model.AttemptState{}, err
			}
		}
	case inProgress.Exists:
		// Empty attempt: adopt it silently, nothing to restore.
		if err := c.store.AdoptAttempt(epoch, inProgress.AttemptID); err != nil {
			return model.AttemptState{}, err
		}
	default:
		if err := c.startAttempt(ctx, epoch); err != nil {
			return model.AttemptState{}, err
		}
	}

	if mode == model.ModePractice {
		c.loadAnswerKey(ctx, epoch, examID)
	}

	return c.store.Snapshot(), nil
}

// StartAttempt requests a fresh attempt id for the loaded exam. On failure
// the session returns to NO_ATTEMPT and the user may retry; there are no
// automatic retries.
func (c *Coordinator) StartAttempt(ctx context.Context) error {
	return c.startAttempt(ctx, c.store.Epoch())
}

func (c *Coordinator) startAttempt(ctx context.Context, epoch uint64) error {
	if err := c.store.BeginStart(epoch); err != nil {
		return err
	}

	snap := c.store.Snapshot()
	attemptID, err := c.api.StartAttempt(ctx, snap.ExamID)
	if err != nil {
		c.store.FailStart(epoch)
		return fmt.Errorf("%w: %v", ErrAttemptStartFailed, err)
	}

	if err := c.store.AdoptAttempt(epoch, attemptID); err != nil {
		return err
	}

	c.log.Info().
		Int64("exam_id", snap.ExamID).
		Int64("attempt_id", attemptID).
		Msg("Attempt started")
	return nil
}

// ResolveResume answers a RESUME_PENDING prompt: resume the saved attempt,
// or abandon it and start fresh.
func (c *Coordinator) ResolveResume(ctx context.Context, resume bool) (model.AttemptState, error) {
	epoch := c.store.Epoch()
	attemptID, err := c.store.TakePendingAttempt(epoch)
	if err != nil {
		return model.AttemptState{}, err
	}

	if resume {
		if err := c.resume(ctx, epoch, attemptID); err != nil {
			return model.AttemptState{}, err
		}
	} else {
		if err := c.startAttempt(ctx, epoch); err != nil {
			return model.AttemptState{}, err
		}
	}
	return c.store.Snapshot(), nil
}

// resume hydrates a prior attempt from its persisted snapshot. A fetch
// failure falls back to starting a new attempt — a failed resume must
// never strand the user.
func (c *Coordinator) resume(ctx context.Context, epoch uint64, attemptID int64) error {
	progress, err := c.api.GetProgress(ctx, attemptID)
	if err != nil {
		c.log.Warn().Err(err).
			Int64("attempt_id", attemptID).
			Msg("Resume failed, starting a new attempt")
		return c.startAttempt(ctx, epoch)
	}

	// Adopting the original attempt id recomputes the identical display
	// order; nothing about ordering is read from the snapshot.
	if err := c.store.AdoptAttempt(epoch, attemptID); err != nil {
		return err
	}

	ps := progress.ProgressState
	if err := c.store.RestoreProgress(epoch, progress.SavedAnswers, ps.Bookmarks, ps.CurrentQuestionIndex, ps.CompletedQuestions); err != nil {
		return err
	}

	c.log.Info().
		Int64("attempt_id", attemptID).
		Int("answers", len(progress.SavedAnswers)).
		Msg("Attempt resumed")
	return nil
}

// Save serializes the current progress and persists it upstream. On
// success the dirty flag clears; on failure it stays set and the caller
// retries manually.
func (c *Coordinator) Save(ctx context.Context) error {
	snap, err := c.store.BeginSave()
	if err != nil {
		return err
	}

	req := examapi.SaveProgressRequest{
		Answers:              snap.Answers,
		Bookmarks:            snap.Bookmarks,
		CurrentQuestionIndex: snap.Cursor,
		QuestionOrder:        snap.Order,
		TimerState:           examapi.TimerState{ElapsedSeconds: int64(snap.Elapsed.Seconds())},
		ExamType:             snap.Mode,
	}
	if snap.Mode == model.ModePractice {
		req.CompletedQuestions = snap.Completed
	}

	saveErr := c.api.SaveProgress(ctx, snap.AttemptID, req)
	c.store.EndSave(snap.Epoch, snap.Serialized, saveErr == nil)

	if saveErr != nil {
		c.log.Error().Err(saveErr).Int64("attempt_id", snap.AttemptID).Msg("Save failed")
		return fmt.Errorf("%w: %v", ErrSaveFailed, saveErr)
	}

	c.log.Debug().
		Int64("attempt_id", snap.AttemptID).
		Int("answers", len(snap.Answers)).
		Msg("Progress saved")
	return nil
}

// PracticeFeedback checks a question in practice mode: marks it completed
// and grades it locally against the preview answer key. Exam mode never
// reaches the grader.
func (c *Coordinator) PracticeFeedback(ctx context.Context, questionID int64) (model.CompleteResult, error) {
	snap := c.store.Snapshot()
	if snap.ExamID == 0 {
		return model.CompleteResult{}, ErrNoSession
	}
	if snap.Mode != model.ModePractice {
		return model.CompleteResult{}, ErrNotPractice
	}

	// The key may be missing if the preview fetch failed at open; retry
	// lazily so one transient failure doesn't disable feedback for the
	// whole session.
	if !c.store.HasAnswerKey() {
		c.loadAnswerKey(ctx, c.store.Epoch(), snap.ExamID)
	}

	allDone, err := c.store.MarkCompleted(questionID)
	if err != nil {
		return model.CompleteResult{}, err
	}

	question, _ := c.store.Question(questionID)
	userAnswer, _ := c.store.Answer(questionID)

	result := model.CompleteResult{QuestionID: questionID, AllDone: allDone}
	if want, ok := c.store.AnswerKeyEntry(questionID); ok {
		result.Correct = grading.Grade(question.Type, userAnswer, want)
		result.CorrectAnswer = &want
	}
	return result, nil
}

// loadAnswerKey fetches the practice answer key. Failure degrades to
// feedback-less completion tracking; it is retried on the next check.
func (c *Coordinator) loadAnswerKey(ctx context.Context, epoch uint64, examID int64) {
	key, err := c.api.PreviewExamAnswers(ctx, examID)
	if err != nil {
		c.log.Warn().Err(err).Int64("exam_id", examID).Msg("Answer key fetch failed")
		return
	}
	if err := c.store.SetAnswerKey(epoch, key); err != nil {
		c.log.Debug().Msg("Answer key arrived for a stale session, discarded")
	}
}

func hasSavedProgress(in *examapi.InProgressAttempt) bool {
	if len(in.SavedAnswers) > 0 {
		return true
	}
	return in.ProgressState != nil && len(in.ProgressState.Bookmarks) > 0
}
