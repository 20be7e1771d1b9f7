package examapi

import "github.com/hoosierprep/sessiond/internal/model"

// Wire contracts of the upstream exam service. Field names follow its
// camelCase JSON convention; the schemas are owned by that service and only
// consumed here.

// Exam is the question set for one exam id.
type Exam struct {
	ExamID    int64            `json:"examId"`
	Questions []model.Question `json:"questions"`
}

// ProgressState carries the non-answer parts of a saved snapshot.
type ProgressState struct {
	Bookmarks            []int64 `json:"bookmarks,omitempty"`
	CurrentQuestionIndex *int    `json:"currentQuestionIndex,omitempty"`
	CompletedQuestions   []int64 `json:"completedQuestions,omitempty"`
}

// InProgressAttempt describes whether an unfinished attempt exists for an
// exam, and if so what it had saved.
type InProgressAttempt struct {
	Exists        bool                        `json:"exists"`
	AttemptID     int64                       `json:"attemptId,omitempty"`
	SavedAnswers  map[int64]model.AnswerValue `json:"savedAnswers,omitempty"`
	ProgressState *ProgressState              `json:"progressState,omitempty"`
}

// Progress is the persisted snapshot for a known attempt id.
type Progress struct {
	SavedAnswers  map[int64]model.AnswerValue `json:"savedAnswers"`
	ProgressState ProgressState               `json:"progressState"`
}

// TimerState mirrors the elapsed wall-clock time of the attempt.
type TimerState struct {
	ElapsedSeconds int64 `json:"elapsedSeconds"`
}

// SaveProgressRequest is one full progress snapshot.
type SaveProgressRequest struct {
	Answers              map[int64]model.AnswerValue `json:"answers"`
	Bookmarks            []int64                     `json:"bookmarks"`
	CurrentQuestionIndex int                         `json:"currentQuestionIndex"`
	QuestionOrder        []int64                     `json:"questionOrder,omitempty"`
	CompletedQuestions   []int64                     `json:"completedQuestions,omitempty"`
	TimerState           TimerState                  `json:"timerState"`
	ExamType             model.Mode                  `json:"examType"`
}

// GradeAnswer is one entry of the final grading payload. A nil Response is
// serialized as null so the upstream scores the omission as incorrect.
type GradeAnswer struct {
	QuestionID int64              `json:"questionId"`
	Response   *model.AnswerValue `json:"response"`
}

// GradeRequest finalizes an attempt.
type GradeRequest struct {
	Answers         []GradeAnswer
	APIKey          string
	DurationSeconds int64
	Mode            model.Mode
}

// GradeItem is the per-question verdict of the authoritative grading.
type GradeItem struct {
	QuestionID    int64             `json:"questionId"`
	Correct       bool              `json:"correct"`
	CorrectAnswer model.AnswerValue `json:"correctAnswer"`
	UserAnswer    model.AnswerValue `json:"userAnswer"`
}

// GradeReport is the authoritative grading result.
type GradeReport struct {
	AttemptID   int64       `json:"attemptId"`
	ScorePct    float64     `json:"scorePct"`
	PerQuestion []GradeItem `json:"perQuestion"`
}

type startAttemptResponse struct {
	AttemptID int64 `json:"attemptId"`
}

type previewAnswer struct {
	QuestionID    int64             `json:"questionId"`
	CorrectAnswer model.AnswerValue `json:"correctAnswer"`
}

type previewResponse struct {
	Answers []previewAnswer `json:"answers"`
}
