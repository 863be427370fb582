// Package ballot holds the canonical ballot schema consumed by the voting
// flow and the schema repair that produces it.
package ballot

// Record is a normalized ballot. Questions is never nil and every question
// has at least one option.
type Record struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	QuickBallot bool       `json:"quickBallot"`
	Slug        string     `json:"slug,omitempty"`
	Questions   []Question `json:"questions"`
}

// Question is one ballot question.
type Question struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Options     []Option `json:"options"`
}

// Option is a selectable answer. ID is stable within its question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Party     string `json:"party,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	ImageData any    `json:"imageData,omitempty"`
}

// WriteInIndex is the selection index recorded for write-in answers.
const WriteInIndex = -1

// WriteInText is shown for a write-in answer without supplied text.
const WriteInText = "(Write-in)"

// Response is the voter's answer to one question.
type Response struct {
	SelectedIndex int    `json:"selectedIndex"`
	Text          string `json:"text"`
	Party         string `json:"party,omitempty"`
}

// IsWriteIn reports whether the response is a write-in.
func (r Response) IsWriteIn() bool {
	return r.SelectedIndex == WriteInIndex
}

// QuestionAt returns the question at index i.
func (r *Record) QuestionAt(i int) (Question, bool) {
	if i < 0 || i >= len(r.Questions) {
		return Question{}, false
	}
	return r.Questions[i], true
}
