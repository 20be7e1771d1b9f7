// Package grading evaluates per-question correctness locally. It exists
// only for instant feedback in practice mode; exam mode trusts nothing but
// the upstream grading call.
package grading

import (
	"strings"

	"github.com/hoosierprep/sessiond/internal/model"
)

// Grade reports whether the user's answer matches the correct answer under
// the rules for the question type. An unanswered input is always incorrect.
//
// Free-text types use exact (case/whitespace-insensitive) equality. That is
// intentionally stricter than the upstream's final grading path; the local
// verdict is a hint, not the authority.
func Grade(qType model.QuestionType, user, correct model.AnswerValue) bool {
	if user.IsEmpty() {
		return false
	}

	switch qType {
	case model.QuestionTypeMultiSelect:
		return setsEqual(user.Items, correct.Items)
	case model.QuestionTypeCloze:
		if user.Kind == model.AnswerKindList || correct.Kind == model.AnswerKindList {
			return blanksEqual(blanksOf(user), blanksOf(correct))
		}
		return normalize(user.Text) == normalize(correct.Text)
	default:
		// single-choice, short-text, boolean
		return normalize(user.Text) == normalize(correct.Text)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// setsEqual treats both sides as sets of normalized strings. Duplicates
// collapse before comparison, so selecting "a" twice is the same as
// selecting it once.
func setsEqual(user, correct []string) bool {
	got := normalizedSet(user)
	want := normalizedSet(correct)
	if len(got) != len(want) {
		return false
	}
	for u := range got {
		if _, ok := want[u]; !ok {
			return false
		}
	}
	return true
}

func normalizedSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[normalize(it)] = struct{}{}
	}
	return set
}

// blanksEqual compares cloze blanks in order, one per blank.
func blanksEqual(user, correct []string) bool {
	if len(user) != len(correct) {
		return false
	}
	for i := range user {
		if normalize(user[i]) != normalize(correct[i]) {
			return false
		}
	}
	return true
}

// blanksOf views any answer as an ordered blank list; a scalar is a single
// blank.
func blanksOf(a model.AnswerValue) []string {
	if a.Kind == model.AnswerKindList {
		return a.Items
	}
	return []string{a.Text}
}
