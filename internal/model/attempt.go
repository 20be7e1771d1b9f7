package model

import "time"

// Mode selects the feedback behavior for an attempt. Immutable for the
// attempt's lifetime.
type Mode string

const (
	// ModeExam defers all correctness feedback to the authoritative
	// upstream grading call.
	ModeExam Mode = "exam"
	// ModePractice offers per-question instant local feedback before the
	// final submission.
	ModePractice Mode = "practice"
)

// Phase enumerates the attempt lifecycle states.
type Phase string

const (
	PhaseNoAttempt     Phase = "NO_ATTEMPT"
	PhaseStarting      Phase = "STARTING"
	PhaseResumePending Phase = "RESUME_PENDING"
	PhaseActive        Phase = "ACTIVE"
	PhaseSaving        Phase = "SAVING"
	PhaseSubmitting    Phase = "SUBMITTING"
	PhaseFinished      Phase = "FINISHED"
)

// AttemptState is the authoritative in-memory state of the active attempt.
// The session store owns the single live instance; everything else reads
// copies or requests mutations through the store.
type AttemptState struct {
	AttemptID    int64                 `json:"attempt_id"`
	ExamID       int64                 `json:"exam_id"`
	Mode         Mode                  `json:"mode"`
	Phase        Phase                 `json:"phase"`
	Questions    []Question            `json:"questions"`
	DisplayOrder []int64               `json:"display_order"`
	OptionOrders map[int64][]string    `json:"option_orders,omitempty"`
	Answers      map[int64]AnswerValue `json:"answers"`
	Bookmarks    []int64               `json:"bookmarks"`
	Cursor       int                   `json:"cursor"`
	Completed    []int64               `json:"completed,omitempty"`
	Dirty        bool                  `json:"dirty"`
	Terminal     bool                  `json:"terminal"`
	StartedAt    time.Time             `json:"started_at"`
}

// ─── Session API payloads (rendering layer → sessiond) ──────────────

// OpenSessionRequest starts or resumes a session for an exam.
type OpenSessionRequest struct {
	ExamID     int64  `json:"exam_id" binding:"required"`
	Mode       string `json:"mode" binding:"required,oneof=exam practice"`
	AutoResume bool   `json:"auto_resume"`
}

// ResumeDecisionRequest resolves a RESUME_PENDING session: resume the saved
// attempt or discard it and start fresh.
type ResumeDecisionRequest struct {
	Resume *bool `json:"resume" binding:"required"`
}

// AnswerRequest records an answer for one question. Value accepts every
// legacy wire shape; it is normalized on bind.
type AnswerRequest struct {
	QuestionID int64       `json:"question_id" binding:"required"`
	Value      AnswerValue `json:"value"`
}

// BookmarkRequest toggles the bookmark for one question.
type BookmarkRequest struct {
	QuestionID int64 `json:"question_id" binding:"required"`
}

// CursorRequest moves the cursor to an index in the display order. A
// pointer keeps index 0 distinguishable from a missing field.
type CursorRequest struct {
	Index *int `json:"index" binding:"required"`
}

// CompleteRequest checks one question in practice mode.
type CompleteRequest struct {
	QuestionID int64 `json:"question_id" binding:"required"`
}

// LeaveResolution is one of the three ways a guarded exit resolves.
type LeaveResolution string

const (
	LeaveSave    LeaveResolution = "save"
	LeaveDiscard LeaveResolution = "discard"
	LeaveCancel  LeaveResolution = "cancel"
)

// LeaveRequest resolves a guarded navigation away from the session.
type LeaveRequest struct {
	Resolution LeaveResolution `json:"resolution" binding:"required,oneof=save discard cancel"`
}

// SubmitRequest finalizes the attempt. The optional API key is forwarded to
// upstream grading for answer explanations.
type SubmitRequest struct {
	APIKey string `json:"api_key"`
}

// CompleteResult is the practice-mode instant feedback for one question.
type CompleteResult struct {
	QuestionID    int64        `json:"question_id"`
	Correct       bool         `json:"correct"`
	CorrectAnswer *AnswerValue `json:"correct_answer,omitempty"`
	AllDone       bool         `json:"all_done"`
}

// SubmitResult reports the authoritative grading outcome.
type SubmitResult struct {
	AttemptID int64   `json:"attempt_id"`
	ScorePct  float64 `json:"score_pct"`
}

// LeaveResult reports how a guarded exit was resolved.
type LeaveResult struct {
	Proceed bool `json:"proceed"`
	Saved   bool `json:"saved"`
}
