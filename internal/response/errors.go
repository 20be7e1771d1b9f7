package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrNoSession        ErrCode = "NO_SESSION"
	ErrNoActiveAttempt  ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAttemptFinished  ErrCode = "ATTEMPT_FINISHED"
	ErrResumeNotPending ErrCode = "RESUME_NOT_PENDING"
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrInvalidCursor    ErrCode = "INVALID_CURSOR"
	ErrPracticeOnly     ErrCode = "PRACTICE_ONLY"

	// ─── Upstream failures ─────────────────────────────────────────────
	ErrExamLoadFailed     ErrCode = "EXAM_LOAD_FAILED"
	ErrAttemptStartFailed ErrCode = "ATTEMPT_START_FAILED"
	ErrSaveFailed         ErrCode = "SAVE_FAILED"
	ErrSubmitFailed       ErrCode = "SUBMIT_FAILED"

	// ─── Concurrency guards ────────────────────────────────────────────
	ErrSaveInFlight   ErrCode = "SAVE_IN_FLIGHT"
	ErrSubmitInFlight ErrCode = "SUBMIT_IN_FLIGHT"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Session lifecycle ─────────────────────────────────────────────
	case ErrNoSession:
		return "No exam session is loaded."
	case ErrNoActiveAttempt:
		return "There is no active attempt for this session."
	case ErrAttemptFinished:
		return "This attempt has already been submitted."
	case ErrResumeNotPending:
		return "No resume decision is pending."
	case ErrUnknownQuestion:
		return "That question is not part of the active exam."
	case ErrInvalidCursor:
		return "The requested question index is out of range."
	case ErrPracticeOnly:
		return "This action is only available in practice mode."

	// ─── Upstream failures ─────────────────────────────────────────────
	case ErrExamLoadFailed:
		return "The exam could not be loaded."
	case ErrAttemptStartFailed:
		return "A new attempt could not be started. You may retry."
	case ErrSaveFailed:
		return "Your progress could not be saved. You may retry."
	case ErrSubmitFailed:
		return "Your submission could not be graded. You may retry."

	// ─── Concurrency guards ────────────────────────────────────────────
	case ErrSaveInFlight:
		return "A save is already in progress."
	case ErrSubmitInFlight:
		return "A submission is already in progress."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal error occurred."
	default:
		return "An unexpected error occurred."
	}
}
