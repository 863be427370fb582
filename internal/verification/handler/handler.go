package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"safeballot/internal/ballot"
	"safeballot/internal/ballot/store"
	"safeballot/internal/profile"
	"safeballot/internal/verification"
	dErrors "safeballot/pkg/domain-errors"
	"safeballot/pkg/platform/httputil"
	"safeballot/pkg/requestcontext"
)

// Service is the verification flow.
type Service interface {
	Landing(ctx context.Context, p *profile.Profile, rec ballot.Record, slug, requestPath string, cameFromLogin bool) (verification.Landing, error)
	Start(ctx context.Context, p *profile.Profile, req verification.StartRequest) (verification.View, error)
	Complete(ctx context.Context, p *profile.Profile, ballotID string, data verification.StepData) (verification.View, error)
	Back(ctx context.Context, p *profile.Profile, ballotID string) (verification.View, error)
}

// BallotLoader resolves the ballot a voter landed on.
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

// Register mounts the landing and verification endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ballots/{ballotID}/landing", h.HandleLanding)
	r.Route("/ballots/{ballotID}/verification", func(r chi.Router) {
		r.Post("/start", h.HandleStart)
		r.Post("/complete", h.HandleComplete)
		r.Post("/back", h.HandleBack)
	})
}

// HandleLanding handles POST /ballots/{ballotID}/landing.
func (h *Handler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	p, ballotID, ok := h.prepare(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[LandingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.ballots.GetBallot(ctx, p, ballotID, req.Slug)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	landing, err := h.service.Landing(ctx, p, res.Ballot, req.Slug, r.URL.Path, req.CameFromLogin)
	if err != nil {
		h.fail(ctx, w, "landing failed", ballotID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, landing)
}

// HandleStart handles POST /ballots/{ballotID}/verification/start.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ballotID, ok := h.prepare(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StartRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	view, err := h.service.Start(ctx, p, verification.StartRequest{
		BallotID:      ballotID,
		Slug:          req.Slug,
		CameFromLogin: req.CameFromLogin,
	})
	if err != nil {
		h.fail(ctx, w, "verification start failed", ballotID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleComplete handles POST /ballots/{ballotID}/verification/complete.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ballotID, ok := h.prepare(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	view, err := h.service.Complete(ctx, p, ballotID, req.StepData())
	if err != nil {
		h.fail(ctx, w, "verification step failed", ballotID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleBack handles POST /ballots/{ballotID}/verification/back. It takes no
// body.
func (h *Handler) HandleBack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ballotID, ok := h.prepare(w, r)
	if !ok {
		return
	}

	view, err := h.service.Back(ctx, p, ballotID)
	if err != nil {
		h.fail(ctx, w, "verification back failed", ballotID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (*profile.Profile, string, bool) {
	ballotID := chi.URLParam(r, "ballotID")
	if ballotID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "ballot id is required"))
		return nil, "", false
	}
	p, err := h.profiles.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return nil, "", false
	}
	return p, ballotID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg, ballotID string, err error) {
	log := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		log = h.logger.ErrorContext
	}
	log(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"ballot_id", ballotID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
