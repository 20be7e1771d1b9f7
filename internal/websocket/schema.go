package websocket

import "github.com/hoosierprep/sessiond/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSave   Action = "save"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is the single client message shape; unused fields stay
// empty for actions that do not need them.
type RequestPayload struct {
	Action     Action            `json:"action"`
	QuestionID int64             `json:"question_id,omitempty"`
	Value      model.AnswerValue `json:"value"`
	APIKey     string            `json:"api_key,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventAck    Event = "ack"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// AckResponse confirms an applied mutation and reports the dirty flag so
// the rendering layer can show the unsaved-changes badge without polling.
type AckResponse struct {
	Event Event `json:"event"`
	Dirty bool  `json:"dirty"`
}

// SavedResponse confirms a persisted snapshot.
type SavedResponse struct {
	Event Event `json:"event"`
	Dirty bool  `json:"dirty"`
}

// GradedResponse carries the authoritative grading outcome.
type GradedResponse struct {
	Event     Event   `json:"event"`
	AttemptID int64   `json:"attempt_id"`
	ScorePct  float64 `json:"score_pct"`
}

// ErrorResponse reports a failed action.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

// PongResponse answers a ping.
type PongResponse struct {
	Event Event `json:"event"`
}
