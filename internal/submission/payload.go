package submission

import (
	"context"
	"log/slog"
	"slices"
	"strconv"

	"safeballot/internal/ballot"
	"safeballot/internal/upstream"
)

// BuildPayload maps responses onto the backend wire payload. Selections that
// do not fit their question are skipped and logged. voter is nil for quick
// ballots.
func BuildPayload(ctx context.Context, logger *slog.Logger, rec ballot.Record, responses map[int]ballot.Response, voter *upstream.VoterDetails, key string, quick bool) upstream.VotePayload {
	payload := upstream.VotePayload{
		Rankings:      make(map[string]upstream.RankEntry, len(responses)),
		Votes:         make([]upstream.VoteEntry, 0, len(responses)),
		Voter:         voter,
		DigitalKey:    key,
		IsQuickBallot: quick,
	}

	indexes := make([]int, 0, len(responses))
	for i := range responses {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)

	for _, qi := range indexes {
		resp := responses[qi]
		q, ok := rec.QuestionAt(qi)
		if !ok {
			logger.WarnContext(ctx, "skipping response for unknown question",
				"ballot_id", rec.ID,
				"question_index", qi,
			)
			continue
		}

		if resp.IsWriteIn() {
			payload.Rankings[strconv.Itoa(qi)] = upstream.RankEntry{Index: ballot.WriteInIndex}
			payload.Votes = append(payload.Votes, upstream.VoteEntry{
				QuestionID: q.ID,
				ChoiceID:   writeInChoiceID,
				Rank:       1,
				WriteIn:    resp.Text,
			})
			continue
		}
		if resp.SelectedIndex < 0 || resp.SelectedIndex >= len(q.Options) {
			logger.WarnContext(ctx, "skipping out-of-range selection",
				"ballot_id", rec.ID,
				"question_index", qi,
				"selected_index", resp.SelectedIndex,
				"options", len(q.Options),
			)
			continue
		}

		payload.Rankings[strconv.Itoa(qi)] = upstream.RankEntry{Index: resp.SelectedIndex}
		payload.Votes = append(payload.Votes, upstream.VoteEntry{
			QuestionID: q.ID,
			ChoiceID:   q.Options[resp.SelectedIndex].ID,
			Rank:       1,
		})
	}
	return payload
}
