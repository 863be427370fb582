package ballot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// placeholderCount is the number of options synthesized for a question with
// no parseable options.
const placeholderCount = 2

// Normalize repairs a decoded ballot document (the result of json.Unmarshal
// into any) into a Record. It never fails: unusable input yields a record
// with an empty question list. The input is never modified and the result
// shares no memory with it.
func Normalize(raw any) Record {
	doc, _ := raw.(map[string]any)
	rec := Record{
		ID:          firstString(doc, "id", "_id"),
		Title:       firstString(doc, "title", "name"),
		Description: firstString(doc, "description"),
		Status:      firstString(doc, "status"),
		QuickBallot: firstBool(doc, "quickBallot", "quick_ballot"),
		Slug:        firstString(doc, "slug"),
		Questions:   []Question{},
	}

	questions, _ := doc["questions"].([]any)
	for i, q := range questions {
		rec.Questions = append(rec.Questions, normalizeQuestion(i, q))
	}
	return rec
}

// NormalizeJSON decodes data and normalizes it. Undecodable input yields an
// empty record, matching Normalize's totality.
func NormalizeJSON(data []byte) Record {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Normalize(nil)
	}
	return Normalize(raw)
}

func normalizeQuestion(index int, raw any) Question {
	doc, ok := raw.(map[string]any)
	if !ok {
		// A bare string question is its own title.
		return Question{
			ID:      strconv.Itoa(index),
			Title:   scalarString(raw),
			Options: placeholders(),
		}
	}

	q := Question{
		ID:          firstString(doc, "id", "_id"),
		Title:       firstString(doc, "title", "text", "question"),
		Description: firstString(doc, "description"),
	}
	if q.ID == "" {
		q.ID = strconv.Itoa(index)
	}

	if opts, ok := doc["options"].([]any); ok && len(opts) > 0 {
		for i, o := range opts {
			q.Options = append(q.Options, normalizeOption(i, o))
		}
	} else if choices, ok := doc["choices"].([]any); ok && len(choices) > 0 {
		for i, c := range choices {
			q.Options = append(q.Options, legacyChoice(i, c))
		}
	}

	if len(q.Options) == 0 {
		q.Options = placeholders()
	}
	return q
}

func normalizeOption(index int, raw any) Option {
	opt := Option{ID: strconv.Itoa(index)}
	doc, ok := raw.(map[string]any)
	if !ok {
		opt.Text = scalarString(raw)
		if opt.Text == "" {
			opt.Text = fmt.Sprintf("Option %d", index+1)
		}
		return opt
	}

	if id := firstString(doc, "id", "_id"); id != "" {
		opt.ID = id
	}
	opt.Text = firstString(doc, "text", "option", "name", "label")
	if opt.Text == "" {
		opt.Text = fmt.Sprintf("Option %d", index+1)
	}
	opt.Party = firstString(doc, "party", "party_name")
	opt.ImageURL = firstString(doc, "imageUrl", "image_url")
	if data, ok := doc["imageData"]; ok && data != nil {
		opt.ImageData = deepCopy(data)
	}
	return opt
}

// legacyChoice maps an entry of the old "choices" schema.
func legacyChoice(index int, raw any) Option {
	opt := normalizeOption(index, raw)
	if doc, ok := raw.(map[string]any); ok && firstString(doc, "text", "option", "name", "label") == "" {
		opt.Text = "Option"
	}
	return opt
}

func placeholders() []Option {
	out := make([]Option, placeholderCount)
	for i := range out {
		out[i] = Option{ID: strconv.Itoa(i), Text: fmt.Sprintf("Option %d", i+1)}
	}
	return out
}

// firstString returns the first key whose value renders as a non-empty
// string. Numeric IDs are rendered without exponent.
func firstString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			if s := strings.TrimSpace(scalarString(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstBool(doc map[string]any, keys ...string) bool {
	for _, k := range keys {
		switch v := doc[k].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		case float64:
			return v != 0
		}
	}
	return false
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return t
	}
}
