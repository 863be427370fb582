package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"safeballot/internal/ballot"
	"safeballot/internal/ballot/store"
	"safeballot/internal/profile"
	"safeballot/internal/submission"
	dErrors "safeballot/pkg/domain-errors"
	"safeballot/pkg/platform/httputil"
	"safeballot/pkg/requestcontext"
)

// Service casts votes.
type Service interface {
	Submit(ctx context.Context, p *profile.Profile, req submission.Request) submission.Result
}

// BallotLoader resolves the ballot being voted on.
type BallotLoader interface {
	GetBallot(ctx context.Context, cache store.Cache, id, slug string) (store.Result, error)
}

type Handler struct {
	service  Service
	ballots  BallotLoader
	profiles *profile.Store
	logger   *slog.Logger
}

func New(service Service, ballots BallotLoader, profiles *profile.Store, logger *slog.Logger) *Handler {
	return &Handler{service: service, ballots: ballots, profiles: profiles, logger: logger}
}

// Register mounts the vote endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ballots/{ballotID}/votes", h.HandleSubmit)
}

// HandleSubmit handles POST /ballots/{ballotID}/votes. The body is always a
// submission result; the status mirrors its kind. The quick-ballot gate sees
// the routed path only.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ballotID := chi.URLParam(r, "ballotID")
	if ballotID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "ballot id is required"))
		return
	}
	p, err := h.profiles.FromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.ballots.GetBallot(ctx, p, ballotID, req.Slug)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subReq := submission.Request{
		Ballot:      res.Ballot,
		Responses:   h.resolve(ctx, res.Ballot, req.Selections),
		RequestPath: r.URL.Path,
		EnteredKey:  req.EnteredKey,
	}
	if req.Voter != nil {
		subReq.Voter = &submission.VoterDetails{Name: req.Voter.Name, Email: req.Voter.Email}
	}

	result := h.service.Submit(ctx, p, subReq)
	httputil.WriteJSON(w, statusFor(result), result)
}

// resolve turns raw selections into responses, dropping any that match no
// option.
func (h *Handler) resolve(ctx context.Context, rec ballot.Record, selections map[int]ballot.RawSelection) map[int]ballot.Response {
	out := make(map[int]ballot.Response, len(selections))
	for qi, raw := range selections {
		q, ok := rec.QuestionAt(qi)
		if !ok {
			h.logger.WarnContext(ctx, "selection for unknown question dropped",
				"ballot_id", rec.ID,
				"question_index", qi,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		resp, ok := ballot.ResolveResponse(q, raw)
		if !ok {
			h.logger.WarnContext(ctx, "unresolvable selection dropped",
				"ballot_id", rec.ID,
				"question_index", qi,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		out[qi] = resp
	}
	return out
}

func statusFor(res submission.Result) int {
	if res.OK {
		return http.StatusOK
	}
	switch res.Kind {
	case submission.KindValidation:
		return http.StatusUnprocessableEntity
	case submission.KindIneligible:
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}
