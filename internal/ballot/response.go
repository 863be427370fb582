package ballot

import (
	"strconv"
	"strings"
)

// RawSelection is what the voting UI reports for one question.
type RawSelection struct {
	// Index is the selected option index; nil when Value is used instead.
	Index *int `json:"index,omitempty"`
	// Value is "write-in", an option ID, or an option's display text.
	Value string `json:"value,omitempty"`
	// WriteInText is the free text for a write-in answer.
	WriteInText string `json:"writeInText,omitempty"`
}

// ResolveResponse maps a raw selection onto a Response for question q.
// ok is false when the selection matches nothing in q.
func ResolveResponse(q Question, raw RawSelection) (Response, bool) {
	if raw.Index != nil {
		return responseAt(q, *raw.Index)
	}

	value := strings.TrimSpace(raw.Value)
	if strings.EqualFold(value, "write-in") || (value == "" && raw.WriteInText != "") {
		text := strings.TrimSpace(raw.WriteInText)
		if text == "" {
			text = WriteInText
		}
		return Response{SelectedIndex: WriteInIndex, Text: text}, true
	}
	if value == "" {
		return Response{}, false
	}

	for i, opt := range q.Options {
		if opt.ID == value {
			return responseAt(q, i)
		}
	}
	for i, opt := range q.Options {
		if opt.Text == value {
			return responseAt(q, i)
		}
	}
	if i, err := strconv.Atoi(value); err == nil {
		return responseAt(q, i)
	}
	return Response{}, false
}

func responseAt(q Question, i int) (Response, bool) {
	if i < 0 || i >= len(q.Options) {
		return Response{}, false
	}
	opt := q.Options[i]
	return Response{SelectedIndex: i, Text: opt.Text, Party: opt.Party}, true
}
