package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/examapi"
	"github.com/hoosierprep/sessiond/internal/model"
)

// Submitter assembles the final answer payload, invokes authoritative
// grading exactly once, and transitions the session to its terminal state.
type Submitter struct {
	store *Store
	api   UpstreamAPI
	grace time.Duration
	log   zerolog.Logger
}

// NewSubmitter creates a Submitter. grace is the practice-mode delay before
// an automatic final submission fires.
func NewSubmitter(store *Store, api UpstreamAPI, grace time.Duration, log zerolog.Logger) *Submitter {
	return &Submitter{
		store: store,
		api:   api,
		grace: grace,
		log:   log.With().Str("component", "submitter").Logger(),
	}
}

// Submit finalizes the attempt. A call while a submission is already
// outstanding returns ErrSubmissionInFlight without touching the upstream —
// duplicate clicks and duplicate auto-submit triggers collapse to one
// grading call.
//
// The payload carries one entry per question in display order, with
// explicit nulls for unanswered questions so the upstream scores omissions
// as incorrect.
func (s *Submitter) Submit(ctx context.Context, apiKey string) (model.SubmitResult, error) {
	return s.submit(ctx, apiKey, s.store.Epoch())
}

// submit finalizes the attempt identified by epoch. BeginSubmit re-checks
// the epoch under the store lock, so a session swapped in after the caller
// decided to submit is rejected rather than submitted blank.
func (s *Submitter) submit(ctx context.Context, apiKey string, epoch uint64) (model.SubmitResult, error) {
	snap, err := s.store.BeginSubmit(epoch)
	if err != nil {
		return model.SubmitResult{}, err
	}

	answers := make([]examapi.GradeAnswer, 0, len(snap.DisplayOrder))
	for _, qid := range snap.DisplayOrder {
		entry := examapi.GradeAnswer{QuestionID: qid}
		if v, ok := snap.Answers[qid]; ok && !v.IsEmpty() {
			value := v
			entry.Response = &value
		}
		answers = append(answers, entry)
	}

	report, err := s.api.GradeExam(ctx, snap.ExamID, examapi.GradeRequest{
		Answers:         answers,
		APIKey:          apiKey,
		DurationSeconds: int64(time.Since(snap.StartedAt).Seconds()),
		Mode:            snap.Mode,
	})
	if err != nil {
		s.store.AbortSubmit(epoch)
		s.log.Error().Err(err).Int64("exam_id", snap.ExamID).Msg("Submission failed")
		return model.SubmitResult{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	s.store.FinishSubmit(epoch)

	s.log.Info().
		Int64("exam_id", snap.ExamID).
		Int64("attempt_id", report.AttemptID).
		Float64("score_pct", report.ScorePct).
		Msg("Attempt submitted")

	return model.SubmitResult{AttemptID: report.AttemptID, ScorePct: report.ScorePct}, nil
}

// ScheduleAutoSubmit arms the practice-mode auto-submission: once every
// question has been checked, the final submission fires after a short grace
// period so the last per-question verdict can render. The preconditions are
// re-checked when the timer fires — the user may have submitted manually,
// left, or switched exams in the meantime.
func (s *Submitter) ScheduleAutoSubmit(epoch uint64) {
	time.AfterFunc(s.grace, func() {
		if !s.store.ReadyForAutoSubmit(epoch) {
			return
		}
		if _, err := s.submit(context.Background(), "", epoch); err != nil {
			// ErrSubmissionInFlight here just means a manual submit won
			// the race, which is exactly what the guard is for.
			s.log.Warn().Err(err).Msg("Auto-submit did not complete")
		}
	})
}
