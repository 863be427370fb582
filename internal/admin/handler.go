// Package admin holds the operator-only debug endpoints: resetting a voter's
// status for a ballot and recovering votes that never left the device store.
// Every route is mounted behind the admin token middleware.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"safeballot/internal/profile"
	dErrors "safeballot/pkg/domain-errors"
	"safeballot/pkg/platform/audit"
	"safeballot/pkg/platform/httputil"
	"safeballot/pkg/requestcontext"
)

// EventLister reads a profile's audit trail back.
type EventLister interface {
	List(ctx context.Context, profileID string) ([]audit.Event, error)
}

type Handler struct {
	profiles *profile.Store
	audit    audit.Emitter
	events   EventLister
	logger   *slog.Logger
}

// New builds the admin handler. events may be nil when the audit store
// cannot be read back.
func New(profiles *profile.Store, emitter audit.Emitter, events EventLister, logger *slog.Logger) *Handler {
	if emitter == nil {
		emitter = audit.Nop{}
	}
	return &Handler{profiles: profiles, audit: emitter, events: events, logger: logger}
}

// Register mounts the admin endpoints. The caller applies the admin token
// guard.
func (h *Handler) Register(r chi.Router) {
	r.Route("/profiles/{profileID}", func(r chi.Router) {
		r.Get("/audit", h.HandleListAudit)
		r.Delete("/ballots/{ballotID}/status", h.HandleClearStatus)
		r.Get("/ballots/{ballotID}/pending-vote", h.HandlePendingVote)
	})
}

// HandleClearStatus handles DELETE /profiles/{profileID}/ballots/{ballotID}/status.
func (h *Handler) HandleClearStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	profileID, ballotID, ok := params(w, r)
	if !ok {
		return
	}

	if err := h.profiles.For(profileID).ClearVoterStatus(ctx, ballotID); err != nil {
		h.logger.ErrorContext(ctx, "failed to clear voter status",
			"request_id", requestID,
			"ballot_id", ballotID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "voter storage is unavailable"))
		return
	}

	if err := h.audit.Emit(ctx, audit.Event{
		ProfileID: profileID,
		BallotID:  ballotID,
		Action:    string(audit.EventVoterStatusCleared),
		Outcome:   "cleared",
		RequestID: requestID,
		ActorID:   requestcontext.ClientIP(ctx),
	}); err != nil {
		h.logger.WarnContext(ctx, "failed to emit audit event", "request_id", requestID, "error", err)
	}

	h.logger.InfoContext(ctx, "voter status cleared",
		"request_id", requestID,
		"ballot_id", ballotID,
	)
	httputil.WriteJSON(w, http.StatusOK, ClearStatusResponse{
		ProfileID: profileID,
		BallotID:  ballotID,
		Cleared:   true,
		ClearedAt: requestcontext.Now(ctx),
	})
}

// HandlePendingVote handles GET /profiles/{profileID}/ballots/{ballotID}/pending-vote.
func (h *Handler) HandlePendingVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID, ballotID, ok := params(w, r)
	if !ok {
		return
	}

	pv, found, err := h.profiles.For(profileID).PendingVote(ctx, ballotID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read pending vote",
			"request_id", requestcontext.RequestID(ctx),
			"ballot_id", ballotID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "voter storage is unavailable"))
		return
	}
	if !found {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no pending vote for this ballot"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PendingVoteResponse{
		ProfileID:       profileID,
		BallotID:        pv.BallotID,
		SavedAt:         pv.SavedAt,
		FailureCategory: pv.FailureCategory,
		FailureStatus:   pv.FailureStatus,
		Payload:         pv.Payload,
	})
}

// HandleListAudit handles GET /profiles/{profileID}/audit.
func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID := chi.URLParam(r, "profileID")
	if profileID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "profile id is required"))
		return
	}
	if h.events == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "audit trail is not readable in this deployment"))
		return
	}

	events, err := h.events.List(ctx, profileID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail is unavailable"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, AuditEventsResponse{Events: events, Total: len(events)})
}

func params(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	profileID := chi.URLParam(r, "profileID")
	ballotID := chi.URLParam(r, "ballotID")
	if profileID == "" || ballotID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "profile id and ballot id are required"))
		return "", "", false
	}
	return profileID, ballotID, true
}
