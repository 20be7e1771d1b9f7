package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// AnswerKind discriminates the normalized answer forms.
type AnswerKind string

const (
	// AnswerKindNone marks an absent answer (wire null).
	AnswerKindNone AnswerKind = "none"
	// AnswerKindText is a scalar answer: single-choice, short-text, boolean
	// and single-blank cloze.
	AnswerKindText AnswerKind = "text"
	// AnswerKindList is an ordered sequence: multi-select selections or
	// cloze blanks. Whether order matters is decided by the question type.
	AnswerKindList AnswerKind = "list"
)

// AnswerValue is the single normalized answer representation. Legacy wire
// shapes (plain string, array, or an object keyed by blank index) are all
// folded into this union on read, so nothing downstream ever branches on
// raw JSON shape.
type AnswerValue struct {
	Kind  AnswerKind
	Text  string
	Items []string
}

// TextAnswer builds a scalar answer.
func TextAnswer(s string) AnswerValue {
	return AnswerValue{Kind: AnswerKindText, Text: s}
}

// ListAnswer builds a sequence answer.
func ListAnswer(items ...string) AnswerValue {
	return AnswerValue{Kind: AnswerKindList, Items: items}
}

// IsEmpty reports whether the value counts as unanswered: absent, an empty
// string, or an empty collection.
func (a AnswerValue) IsEmpty() bool {
	switch a.Kind {
	case AnswerKindText:
		return a.Text == ""
	case AnswerKindList:
		return len(a.Items) == 0
	default:
		return true
	}
}

// MarshalJSON emits the upstream wire form: null for absent answers, a bare
// string for scalars, and a string array for sequences.
func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerKindText:
		return json.Marshal(a.Text)
	case AnswerKindList:
		items := a.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON normalizes every answer shape the upstream service has ever
// produced: null, scalar string, string array, and the legacy object form
// keyed by blank index ({"0": "a", "1": "b"}).
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := NormalizeAnswer(raw)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// NormalizeAnswer converts a decoded JSON value into the tagged union form.
// Numbers and booleans inside scalars or sequences are stringified, matching
// the tolerant reads of the upstream service.
func NormalizeAnswer(raw interface{}) (AnswerValue, error) {
	switch v := raw.(type) {
	case nil:
		return AnswerValue{Kind: AnswerKindNone}, nil
	case string:
		return TextAnswer(v), nil
	case bool:
		return TextAnswer(strconv.FormatBool(v)), nil
	case float64:
		return TextAnswer(formatNumber(v)), nil
	case json.Number:
		return TextAnswer(v.String()), nil
	case []interface{}:
		items := make([]string, len(v))
		for i, el := range v {
			s, err := stringifyScalar(el)
			if err != nil {
				return AnswerValue{}, fmt.Errorf("answer element %d: %w", i, err)
			}
			items[i] = s
		}
		return AnswerValue{Kind: AnswerKindList, Items: items}, nil
	case map[string]interface{}:
		return normalizeIndexedObject(v)
	default:
		return AnswerValue{}, fmt.Errorf("unsupported answer shape %T", raw)
	}
}

// normalizeIndexedObject migrates the legacy keyed-by-index object shape to
// an ordered sequence. Keys must all parse as integers; order follows the
// numeric key, not insertion.
func normalizeIndexedObject(obj map[string]interface{}) (AnswerValue, error) {
	type entry struct {
		idx int
		val string
	}
	entries := make([]entry, 0, len(obj))
	for k, el := range obj {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return AnswerValue{}, fmt.Errorf("legacy answer key %q is not an index", k)
		}
		s, err := stringifyScalar(el)
		if err != nil {
			return AnswerValue{}, fmt.Errorf("legacy answer key %q: %w", k, err)
		}
		entries = append(entries, entry{idx: idx, val: s})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })

	items := make([]string, len(entries))
	for i, e := range entries {
		items[i] = e.val
	}
	return AnswerValue{Kind: AnswerKindList, Items: items}, nil
}

func stringifyScalar(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return formatNumber(v), nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported scalar shape %T", raw)
	}
}

// formatNumber renders a JSON number without a trailing ".0" for integers.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// EncodeAnswers produces the canonical serialization of an answer map, used
// as the dirty-tracking baseline. encoding/json sorts map keys, so the
// output is stable for a given logical state.
func EncodeAnswers(answers map[int64]AnswerValue) string {
	if len(answers) == 0 {
		return "{}"
	}
	data, err := json.Marshal(answers)
	if err != nil {
		// Answers only contain strings and slices; marshal cannot fail.
		return "{}"
	}
	return string(data)
}
