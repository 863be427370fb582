package submission

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeballot/internal/ballot"
	"safeballot/internal/upstream"
)

func mayorBallot() ballot.Record {
	return ballot.Normalize(map[string]any{
		"id":    "b1",
		"title": "City",
		"questions": []any{
			map[string]any{"id": "q-mayor", "title": "Mayor", "options": []any{
				map[string]any{"id": "ada", "text": "Ada"},
				map[string]any{"id": "grace", "text": "Grace"},
			}},
			map[string]any{"id": "q-park", "title": "Park", "choices": []any{
				map[string]any{"text": "Yes"},
				map[string]any{"text": "No"},
			}},
		},
	})
}

func TestBuildPayloadMapsRankingsAndVotes(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	voter := &upstream.VoterDetails{Name: "Ada", Email: "ada@example.org"}

	payload := BuildPayload(context.Background(), logger, mayorBallot(), map[int]ballot.Response{
		1: {SelectedIndex: 0, Text: "Yes"},
		0: {SelectedIndex: 1, Text: "Grace"},
	}, voter, "KEY-1", false)

	assert.Equal(t, map[string]upstream.RankEntry{"0": {Index: 1}, "1": {Index: 0}}, payload.Rankings)
	assert.Equal(t, []upstream.VoteEntry{
		{QuestionID: "q-mayor", ChoiceID: "grace", Rank: 1},
		{QuestionID: "q-park", ChoiceID: "0", Rank: 1},
	}, payload.Votes, "votes follow question order and carry normalized ids")
	assert.Equal(t, voter, payload.Voter)
	assert.Equal(t, "KEY-1", payload.DigitalKey)
	assert.False(t, payload.IsQuickBallot)
	assert.Empty(t, logs.String())
}

func TestBuildPayloadSkipsWhatDoesNotFit(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	payload := BuildPayload(context.Background(), logger, mayorBallot(), map[int]ballot.Response{
		0: {SelectedIndex: 5},
		7: {SelectedIndex: 0},
		1: {SelectedIndex: 1},
	}, nil, "", true)

	require.Len(t, payload.Votes, 1)
	assert.Equal(t, "q-park", payload.Votes[0].QuestionID)
	assert.NotContains(t, payload.Rankings, "0")
	assert.NotContains(t, payload.Rankings, "7")
	assert.Contains(t, logs.String(), "skipping out-of-range selection")
	assert.Contains(t, logs.String(), "skipping response for unknown question")
	assert.Nil(t, payload.Voter)
}

func TestBuildPayloadWriteIn(t *testing.T) {
	payload := BuildPayload(context.Background(), slog.Default(), mayorBallot(), map[int]ballot.Response{
		0: {SelectedIndex: ballot.WriteInIndex, Text: "Hedy"},
	}, nil, "", true)

	assert.Equal(t, upstream.RankEntry{Index: ballot.WriteInIndex}, payload.Rankings["0"])
	assert.Equal(t, []upstream.VoteEntry{{QuestionID: "q-mayor", ChoiceID: "write-in", Rank: 1, WriteIn: "Hedy"}}, payload.Votes)
}
