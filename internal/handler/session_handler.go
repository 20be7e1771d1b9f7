package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hoosierprep/sessiond/internal/model"
	"github.com/hoosierprep/sessiond/internal/response"
	"github.com/hoosierprep/sessiond/internal/session"
	"github.com/hoosierprep/sessiond/internal/validator"
)

// SessionHandler exposes the single local session over REST.
type SessionHandler struct {
	store       *session.Store
	coordinator *session.Coordinator
	submitter   *session.Submitter
	guard       *session.Guard
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	store *session.Store,
	coordinator *session.Coordinator,
	submitter *session.Submitter,
	guard *session.Guard,
) *SessionHandler {
	return &SessionHandler{
		store:       store,
		coordinator: coordinator,
		submitter:   submitter,
		guard:       guard,
	}
}

// Open godoc
// POST /api/v1/session/open
// Loads an exam from the upstream backend and starts or resumes an attempt.
// Any previously open session is discarded first.
func (h *SessionHandler) Open(c *gin.Context) {
	var req model.OpenSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.coordinator.Open(c.Request.Context(), req.ExamID, model.Mode(req.Mode), req.AutoResume)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": state})
}

// Get godoc
// GET /api/v1/session
// Returns a snapshot of the current session.
func (h *SessionHandler) Get(c *gin.Context) {
	state := h.store.Snapshot()
	if state.Phase == model.PhaseNoAttempt {
		response.Fail(c, http.StatusNotFound, response.ErrNoSession)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": state})
}

// ResolveResume godoc
// POST /api/v1/session/resume
// Answers the resume prompt: continue the saved attempt or start fresh.
func (h *SessionHandler) ResolveResume(c *gin.Context) {
	var req model.ResumeDecisionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.coordinator.ResolveResume(c.Request.Context(), *req.Resume)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": state})
}

// Answer godoc
// POST /api/v1/session/answer
// Records or clears an answer. Clearing happens when the value is empty.
func (h *SessionHandler) Answer(c *gin.Context) {
	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.store.SetAnswer(req.QuestionID, req.Value); err != nil {
		failFromError(c, err)
		return
	}

	dirty, _, _ := h.store.GuardState()
	response.Success(c, http.StatusOK, gin.H{"dirty": dirty})
}

// Bookmark godoc
// POST /api/v1/session/bookmark
// Toggles the bookmark flag on a question.
func (h *SessionHandler) Bookmark(c *gin.Context) {
	var req model.BookmarkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	bookmarked, err := h.store.ToggleBookmark(req.QuestionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	dirty, _, _ := h.store.GuardState()
	response.Success(c, http.StatusOK, gin.H{"bookmarked": bookmarked, "dirty": dirty})
}

// Cursor godoc
// POST /api/v1/session/cursor
// Moves the current-question cursor within the display order.
func (h *SessionHandler) Cursor(c *gin.Context) {
	var req model.CursorRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.store.MoveCursor(*req.Index); err != nil {
		failFromError(c, err)
		return
	}

	dirty, _, _ := h.store.GuardState()
	response.Success(c, http.StatusOK, gin.H{"dirty": dirty})
}

// Complete godoc
// POST /api/v1/session/complete
// Practice mode only: checks the recorded answer against the answer key
// and marks the question completed. When every question is done the
// session auto-submits after a short grace period.
func (h *SessionHandler) Complete(c *gin.Context) {
	var req model.CompleteRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.coordinator.PracticeFeedback(c.Request.Context(), req.QuestionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	if result.AllDone {
		h.submitter.ScheduleAutoSubmit(h.store.Epoch())
	}

	response.Success(c, http.StatusOK, gin.H{"feedback": result})
}

// Save godoc
// POST /api/v1/session/save
// Persists the current progress to the upstream backend.
func (h *SessionHandler) Save(c *gin.Context) {
	if err := h.coordinator.Save(c.Request.Context()); err != nil {
		failFromError(c, err)
		return
	}

	dirty, _, _ := h.store.GuardState()
	response.Success(c, http.StatusOK, gin.H{"saved": true, "dirty": dirty})
}

// Submit godoc
// POST /api/v1/session/submit
// Grades the attempt upstream and finishes the session. Idempotent:
// a submission already in flight is rejected, a finished session too.
func (h *SessionHandler) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	result, err := h.submitter.Submit(c.Request.Context(), req.APIKey)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Leave godoc
// POST /api/v1/session/leave
// Resolves a guarded exit: save, discard, or cancel.
func (h *SessionHandler) Leave(c *gin.Context) {
	var req model.LeaveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.guard.Resolve(c.Request.Context(), req.Resolution)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Close godoc
// DELETE /api/v1/session
// Tears down the session unconditionally. In-flight async completions
// become stale and are discarded when they land.
func (h *SessionHandler) Close(c *gin.Context) {
	h.store.Reset()
	response.Success(c, http.StatusOK, gin.H{"reset": true})
}

// failFromError maps session errors to HTTP status and error codes.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNoSession):
		response.Fail(c, http.StatusNotFound, response.ErrNoSession)
	case errors.Is(err, session.ErrNotActive):
		response.Fail(c, http.StatusConflict, response.ErrNoActiveAttempt)
	case errors.Is(err, session.ErrTerminal):
		response.Fail(c, http.StatusConflict, response.ErrAttemptFinished)
	case errors.Is(err, session.ErrResumeNotPending):
		response.Fail(c, http.StatusConflict, response.ErrResumeNotPending)
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownQuestion)
	case errors.Is(err, session.ErrInvalidCursor):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidCursor)
	case errors.Is(err, session.ErrNotPractice):
		response.Fail(c, http.StatusBadRequest, response.ErrPracticeOnly)
	case errors.Is(err, session.ErrSaveInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSaveInFlight)
	case errors.Is(err, session.ErrSubmissionInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	case errors.Is(err, session.ErrLoadFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrExamLoadFailed)
	case errors.Is(err, session.ErrAttemptStartFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrAttemptStartFailed)
	case errors.Is(err, session.ErrSaveFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrSaveFailed)
	case errors.Is(err, session.ErrSubmitFailed):
		response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
