package session

import "errors"

// Domain errors. Handlers map these to API error codes; nothing here is
// allowed to crash the session — every failure degrades to a recoverable
// state or an explicit user-visible message.
var (
	ErrNoSession          = errors.New("no session loaded")
	ErrNotActive          = errors.New("no active attempt")
	ErrTerminal           = errors.New("attempt already finished")
	ErrUnknownQuestion    = errors.New("question not in the active set")
	ErrInvalidCursor      = errors.New("cursor index out of range")
	ErrNotPractice        = errors.New("operation is practice-mode only")
	ErrSaveInFlight       = errors.New("save already in flight")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrResumeNotPending   = errors.New("no resume decision pending")
	ErrStaleSession       = errors.New("session changed while the request was in flight")

	// Failure taxonomy for upstream calls.
	ErrLoadFailed         = errors.New("exam fetch failed")
	ErrAttemptStartFailed = errors.New("could not start attempt")
	ErrSaveFailed         = errors.New("progress save failed")
	ErrSubmitFailed       = errors.New("submission failed")
)
