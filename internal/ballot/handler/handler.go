package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"safeballot/internal/ballot/store"
	"safeballot/internal/profile"
	dErrors "safeballot/pkg/domain-errors"
	"safeballot/pkg/platform/httputil"
	"safeballot/pkg/requestcontext"
)

// Service fetches normalized ballots.
type Service interface {
	GetBallot(ctx context.Context, cache store.Cache, id, slug string) (store.Result, error)
}

// Handler serves ballot reads for the voting UI.
type Handler struct {
	service  Service
	profiles *profile.Store
	logger   *slog.Logger
}

func New(service Service, profiles *profile.Store, logger *slog.Logger) *Handler {
	return &Handler{service: service, profiles: profiles, logger: logger}
}

// Register mounts ballot endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ballots/{ballotID}", h.HandleGetBallot)
}

// HandleGetBallot handles GET /ballots/{ballotID}?slug=.
func (h *Handler) HandleGetBallot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

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

	res, err := h.service.GetBallot(ctx, p, ballotID, r.URL.Query().Get("slug"))
	if err != nil {
		h.logger.WarnContext(ctx, "ballot lookup failed",
			"request_id", requestID,
			"ballot_id", ballotID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ballot served",
		"request_id", requestID,
		"ballot_id", res.Ballot.ID,
		"source", string(res.Source),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, res)
}
