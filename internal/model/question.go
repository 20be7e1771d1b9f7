package model

// QuestionType enumerates supported question formats. The string values
// match the upstream exam service wire format.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "mcq"
	QuestionTypeMultiSelect  QuestionType = "multi"
	QuestionTypeShortText    QuestionType = "short"
	QuestionTypeBoolean      QuestionType = "truefalse"
	QuestionTypeCloze        QuestionType = "cloze"
)

// Question is a single exam question. Immutable once fetched from the
// upstream service.
type Question struct {
	ID      int64        `json:"id"`
	Stem    string       `json:"stem"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
}

// HasOptions reports whether the question carries a fixed option list that
// the rendering layer may shuffle.
func (q Question) HasOptions() bool {
	return len(q.Options) > 0 &&
		(q.Type == QuestionTypeSingleChoice || q.Type == QuestionTypeMultiSelect)
}
