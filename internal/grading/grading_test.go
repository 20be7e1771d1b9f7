package grading

import (
	"testing"

	"github.com/hoosierprep/sessiond/internal/model"
)

func TestGradeMultiSelect(t *testing.T) {
	cases := []struct {
		name    string
		user    model.AnswerValue
		correct model.AnswerValue
		want    bool
	}{
		{"case-insensitive set equality", model.ListAnswer("A", "b"), model.ListAnswer("B", "a"), true},
		{"missing element", model.ListAnswer("A"), model.ListAnswer("A", "B"), false},
		{"extra element", model.ListAnswer("A", "B", "C"), model.ListAnswer("A", "B"), false},
		{"empty user", model.ListAnswer(), model.ListAnswer("x"), false},
		{"whitespace trimmed", model.ListAnswer(" x ", "y"), model.ListAnswer("y", "x"), true},
		{"duplicate selections collapse", model.ListAnswer("a", "A"), model.ListAnswer("a"), true},
		{"duplicates do not pad a short set", model.ListAnswer("a", "A"), model.ListAnswer("a", "b"), false},
		{"duplicate correct entries collapse", model.ListAnswer("a"), model.ListAnswer("A", "a"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade(model.QuestionTypeMultiSelect, tc.user, tc.correct)
			if got != tc.want {
				t.Fatalf("Grade(multi, %v, %v) = %v, want %v", tc.user, tc.correct, got, tc.want)
			}
		})
	}
}

func TestGradeScalars(t *testing.T) {
	if Grade(model.QuestionTypeBoolean, model.TextAnswer("True"), model.TextAnswer("false")) {
		t.Fatal(`boolean "True" vs "false" graded correct`)
	}
	if !Grade(model.QuestionTypeBoolean, model.TextAnswer("TRUE"), model.TextAnswer("true")) {
		t.Fatal(`boolean "TRUE" vs "true" graded incorrect`)
	}
	if !Grade(model.QuestionTypeShortText, model.TextAnswer("  Paris "), model.TextAnswer("paris")) {
		t.Fatal(`short-text "  Paris " vs "paris" graded incorrect`)
	}
	if !Grade(model.QuestionTypeSingleChoice, model.TextAnswer("b"), model.TextAnswer("B")) {
		t.Fatal("single-choice case mismatch graded incorrect")
	}
}

func TestGradeCloze(t *testing.T) {
	if !Grade(model.QuestionTypeCloze, model.TextAnswer("mitochondria"), model.TextAnswer(" Mitochondria ")) {
		t.Fatal("single-blank cloze graded incorrect")
	}
	if !Grade(model.QuestionTypeCloze, model.ListAnswer("a", "B"), model.ListAnswer("A", "b")) {
		t.Fatal("ordered blanks graded incorrect")
	}
	if Grade(model.QuestionTypeCloze, model.ListAnswer("b", "a"), model.ListAnswer("a", "b")) {
		t.Fatal("cloze blanks are ordered; swapped blanks graded correct")
	}
	if Grade(model.QuestionTypeCloze, model.ListAnswer("a"), model.ListAnswer("a", "b")) {
		t.Fatal("missing blank graded correct")
	}
}

func TestGradeUnanswered(t *testing.T) {
	types := []model.QuestionType{
		model.QuestionTypeSingleChoice,
		model.QuestionTypeMultiSelect,
		model.QuestionTypeShortText,
		model.QuestionTypeBoolean,
		model.QuestionTypeCloze,
	}

	for _, qt := range types {
		if Grade(qt, model.AnswerValue{}, model.TextAnswer("x")) {
			t.Fatalf("%s: absent answer graded correct", qt)
		}
		if Grade(qt, model.TextAnswer(""), model.TextAnswer("x")) {
			t.Fatalf("%s: empty answer graded correct", qt)
		}
	}
}
