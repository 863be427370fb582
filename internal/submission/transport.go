package submission

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"safeballot/internal/submission/metrics"
	"safeballot/internal/upstream"
	"safeballot/pkg/requestcontext"
)

// strategy is one network transport in the fallback chain.
type strategy struct {
	tier Tier
	send func(ctx context.Context, cred upstream.Credential, ballotID string, payload upstream.VotePayload) (upstream.CastVoteResult, error)
}

// verdict is what the policy decides after a failed tier.
type verdict int

const (
	fallThrough verdict = iota
	stopChain
)

// policy is the single rule for the chain: authorization rejections stop it,
// everything else falls through to the next tier.
func policy(err error) verdict {
	if upstream.IsAuthorizationRejection(err) {
		return stopChain
	}
	return fallThrough
}

// attempt is the outcome of firstSuccess.
type attempt struct {
	tier    Tier
	result  upstream.CastVoteResult
	err     error
	stopped bool
}

func (a attempt) succeeded() bool { return a.err == nil && a.tier != "" }

func primary(ballots upstream.BallotService) strategy {
	return strategy{tier: TierPrimary, send: ballots.CastVote}
}

// direct re-encodes the payload and posts it with the explicit bearer.
func direct(sender upstream.DirectVoteSender) strategy {
	return strategy{tier: TierDirect, send: func(ctx context.Context, cred upstream.Credential, ballotID string, payload upstream.VotePayload) (upstream.CastVoteResult, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return upstream.CastVoteResult{}, upstream.NewError(upstream.CategoryInternal, "ballots", "encode vote", err)
		}
		return upstream.CastVoteResult{}, sender.PostVote(ctx, cred, ballotID, body)
	}}
}

// firstSuccess tries strategies in order until one succeeds or the policy
// stops the chain. With every tier failing it returns the last error.
func firstSuccess(ctx context.Context, tracer trace.Tracer, logger *slog.Logger, m *metrics.Metrics,
	strategies []strategy, cred upstream.Credential, ballotID string, payload upstream.VotePayload) attempt {
	var last attempt
	for _, st := range strategies {
		tierCtx, span := tracer.Start(ctx, "submission.tier."+string(st.tier),
			trace.WithAttributes(attribute.String("ballot.id", ballotID)))
		start := time.Now()
		res, err := st.send(tierCtx, cred, ballotID, payload)
		m.ObserveTier(string(st.tier), outcomeLabel(err), time.Since(start))

		if err == nil {
			span.End()
			return attempt{tier: st.tier, result: res}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(upstream.GetCategory(err)))
		span.End()

		last = attempt{err: err}
		if policy(err) == stopChain {
			last.tier = st.tier
			last.stopped = true
			return last
		}
		logger.WarnContext(ctx, "vote transport failed, falling through",
			"tier", string(st.tier),
			"ballot_id", ballotID,
			"category", string(upstream.GetCategory(err)),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	return last
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(upstream.GetCategory(err))
}
