// Package submission casts a voter's ballot. It checks the digital key,
// builds the wire payload and tries each transport in turn, keeping the vote
// on the device when no network tier accepts it.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"safeballot/internal/ballot"
	"safeballot/internal/platform/logger"
	"safeballot/internal/profile"
	"safeballot/internal/submission/metrics"
	"safeballot/internal/upstream"
	"safeballot/internal/votertoken"
	"safeballot/pkg/platform/audit"
	"safeballot/pkg/requestcontext"
)

// VoterTokens issues and scopes voter credentials.
type VoterTokens interface {
	Mint(profileID, subject, ballotID string) (string, error)
	ValidateFor(token, profileID, ballotID string) (*votertoken.Claims, error)
}

// Bypass is the quick-ballot gate.
type Bypass interface {
	ShouldBypassVerification(rec ballot.Record, requestPath string) bool
	KeyFor(bypass bool, stored string) string
}

type Service struct {
	ballots    upstream.BallotService
	tokens     VoterTokens
	gate       Bypass
	strategies []strategy
	audit      audit.Emitter
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAudit(emitter audit.Emitter) Option {
	return func(s *Service) {
		if emitter != nil {
			s.audit = emitter
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(ballots upstream.BallotService, sender upstream.DirectVoteSender, tokens VoterTokens, gate Bypass, opts ...Option) (*Service, error) {
	if ballots == nil {
		return nil, errors.New("ballot service is required")
	}
	if sender == nil {
		return nil, errors.New("direct vote sender is required")
	}
	if tokens == nil {
		return nil, errors.New("voter token minter is required")
	}
	if gate == nil {
		return nil, errors.New("quick-ballot gate is required")
	}
	s := &Service{
		ballots:    ballots,
		tokens:     tokens,
		gate:       gate,
		strategies: []strategy{primary(ballots), direct(sender)},
		audit:      audit.Nop{},
		logger:     slog.Default(),
		tracer:     otel.Tracer("safeballot/internal/submission"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit casts one vote for profile p. Validation and eligibility failures
// come back as failed Results; no network tier is attempted for validation
// failures. The pipeline runs to completion even when ctx is canceled.
func (s *Service) Submit(ctx context.Context, p *profile.Profile, req Request) Result {
	ctx = context.WithoutCancel(ctx)
	ballotID := req.Ballot.ID
	ctx, span := s.tracer.Start(ctx, "submission.Submit",
		trace.WithAttributes(attribute.String("ballot.id", ballotID)))
	defer span.End()
	start := time.Now()

	result := s.submit(ctx, p, req)

	label := string(result.Kind)
	if result.OK {
		label = "durable"
		if !result.Durable {
			label = "local"
		}
	}
	span.SetAttributes(attribute.String("submission.result", label), attribute.String("submission.tier", string(result.Tier)))
	s.metrics.ObserveResult(label, time.Since(start))
	return result
}

func (s *Service) submit(ctx context.Context, p *profile.Profile, req Request) Result {
	rec := req.Ballot
	requestID := requestcontext.RequestID(ctx)
	quick := s.gate.ShouldBypassVerification(rec, req.RequestPath)

	stored := ""
	if !quick {
		key, ok, err := p.DigitalKey(ctx, rec.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "could not read digital key", "ballot_id", rec.ID, "request_id", requestID, "error", err)
			return failure(KindNetwork, MsgTryAgain)
		}
		if !ok {
			return failure(KindValidation, MsgVerifyFirst)
		}
		if req.EnteredKey != nil && strings.TrimSpace(*req.EnteredKey) != key {
			s.logger.InfoContext(ctx, "entered digital key does not match",
				"ballot_id", rec.ID,
				"request_id", requestID,
			)
			return failure(KindValidation, MsgInvalidKey)
		}
		stored = key
	}
	key := s.gate.KeyFor(quick, stored)

	var voter *upstream.VoterDetails
	if !quick {
		info := s.resolveVoter(ctx, p, rec.ID, req.Voter)
		s.preRegister(ctx, p, rec.ID, info)
		voter = &upstream.VoterDetails{Name: info.Name, Email: info.Email}
	}

	payload := BuildPayload(ctx, s.logger, rec, req.Responses, voter, key, quick)
	if len(payload.Votes) == 0 {
		return failure(KindValidation, MsgNoSelections)
	}

	cred, err := s.voterCredential(ctx, p, rec.ID, voter)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not mint voter token", "ballot_id", rec.ID, "request_id", requestID, "error", err)
		return failure(KindNetwork, MsgTryAgain)
	}

	got := firstSuccess(ctx, s.tracer, s.logger, s.metrics, s.strategies, cred, rec.ID, payload)
	switch {
	case got.succeeded():
		return s.accepted(ctx, p, rec.ID, quick, got)
	case got.stopped:
		msg := upstream.Message(got.err)
		if msg == "" || upstream.GetCategory(got.err) == upstream.CategoryUnauthorized {
			msg = MsgIneligible
		}
		s.logger.WarnContext(ctx, "vote rejected as ineligible",
			"ballot_id", rec.ID,
			"tier", string(got.tier),
			"request_id", requestID,
			"error", got.err,
		)
		s.emit(ctx, p, rec.ID, audit.EventVoteIneligible, string(got.tier))
		return failure(KindIneligible, msg)
	}
	return s.storeLocally(ctx, p, rec.ID, payload, got.err)
}

// clock is the request time unless a clock was injected.
func (s *Service) clock(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

// voterCredential is the only credential a vote ever carries. An operator
// credential in ctx is never read here. A caller's voter token is reused
// only when it was minted for this profile and this ballot.
func (s *Service) voterCredential(ctx context.Context, p *profile.Profile, ballotID string, voter *upstream.VoterDetails) (upstream.Credential, error) {
	if tok := requestcontext.VoterToken(ctx); tok != "" {
		if _, err := s.tokens.ValidateFor(tok, p.ID(), ballotID); err == nil {
			return upstream.Credential{BearerToken: tok}, nil
		}
		s.logger.WarnContext(ctx, "voter token not scoped to this ballot, minting a fresh one",
			"ballot_id", ballotID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	subject := ""
	if voter != nil {
		subject = voter.Email
	}
	tok, err := s.tokens.Mint(p.ID(), subject, ballotID)
	if err != nil {
		return upstream.Credential{}, err
	}
	return upstream.Credential{BearerToken: tok}, nil
}

func (s *Service) accepted(ctx context.Context, p *profile.Profile, ballotID string, quick bool, got attempt) Result {
	if err := p.MarkVoted(ctx, ballotID); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist voted marker", "ballot_id", ballotID, "error", err)
	}
	if id := got.result.VoterID; id != "" && !quick {
		if _, ok, _ := p.VoterID(ctx, ballotID); !ok {
			if err := p.SetVoterID(ctx, ballotID, id); err != nil {
				s.logger.WarnContext(ctx, "failed to persist voter id", "ballot_id", ballotID, "error", err)
			}
		}
	}
	s.emit(ctx, p, ballotID, audit.EventVoteSubmitted, string(got.tier))
	s.logger.InfoContext(ctx, "vote submitted",
		"ballot_id", ballotID,
		"tier", string(got.tier),
		"quick", quick,
		"device", requestcontext.DeviceLabel(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)

	next := NextConfirmation
	if quick {
		next = NextResults
	}
	return success(got.tier, next, got.result.VoterID)
}

// storeLocally is the last tier. It keeps the vote recoverable on this
// profile and never writes the voted marker. cause is the last network
// failure; its category is kept with the vote.
func (s *Service) storeLocally(ctx context.Context, p *profile.Profile, ballotID string, payload upstream.VotePayload, cause error) Result {
	category := string(upstream.GetCategory(cause))
	status := upstream.Status(cause)
	body, err := json.Marshal(payload)
	if err == nil {
		err = p.SavePendingVote(ctx, profile.PendingVote{
			BallotID:        ballotID,
			Payload:         body,
			SavedAt:         s.clock(ctx),
			FailureCategory: category,
			FailureStatus:   status,
		})
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "vote could not be saved locally",
			"ballot_id", ballotID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		s.emit(ctx, p, ballotID, audit.EventVoteFailed, string(TierLocal))
		return failure(KindNetwork, MsgTryAgain)
	}

	s.logger.WarnContext(ctx, "vote stored on device only",
		"ballot_id", ballotID,
		"category", category,
		"status", status,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, p, ballotID, audit.EventVoteStoredLocally, string(TierLocal))
	return Result{OK: true, Durable: false, Tier: TierLocal, Warning: LocalOnlyWarning}
}

// resolveVoter picks the voter identity: session, then stored voter info,
// then the verified snapshot, then a default name.
func (s *Service) resolveVoter(ctx context.Context, p *profile.Profile, ballotID string, session *VoterDetails) profile.VoterInfo {
	var v profile.VoterInfo
	if session != nil {
		v = profile.VoterInfo{Name: strings.TrimSpace(session.Name), Email: strings.TrimSpace(session.Email)}
	}
	if v.Name == "" || v.Email == "" {
		if info, ok, err := p.VoterInfo(ctx, ballotID); err == nil && ok {
			v = fill(v, info)
		} else if err != nil {
			s.logger.WarnContext(ctx, "stored voter info unreadable", "ballot_id", ballotID, "error", err)
		}
	}
	if v.Name == "" || v.Email == "" {
		if info, ok, err := p.VerifiedIdentity(ctx, ballotID); err == nil && ok {
			v = fill(v, info)
		}
	}
	if v.Name == "" {
		v.Name = DefaultVoterName
	}
	return v
}

func fill(v, from profile.VoterInfo) profile.VoterInfo {
	if v.Name == "" {
		v.Name = from.Name
	}
	if v.Email == "" {
		v.Email = from.Email
	}
	return v
}

// preRegister registers a voter the backend has not seen yet. Best-effort.
func (s *Service) preRegister(ctx context.Context, p *profile.Profile, ballotID string, voter profile.VoterInfo) {
	if voter.Email == "" {
		return
	}
	if _, ok, err := p.VoterID(ctx, ballotID); err != nil || ok {
		return
	}
	res, err := s.ballots.RegisterVoter(ctx, ballotID, upstream.VoterDetails{Name: voter.Name, Email: voter.Email})
	if err != nil {
		s.logger.WarnContext(ctx, "pre-submission voter registration failed",
			"ballot_id", ballotID,
			"email", logger.MaskEmail(voter.Email),
			"category", string(upstream.GetCategory(err)),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	if res.VoterID == "" {
		return
	}
	if err := p.SetVoterID(ctx, ballotID, res.VoterID); err != nil {
		s.logger.WarnContext(ctx, "failed to persist voter id", "ballot_id", ballotID, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, p *profile.Profile, ballotID string, event audit.AuditEvent, outcome string) {
	if err := s.audit.Emit(ctx, audit.Event{
		ProfileID: p.ID(),
		BallotID:  ballotID,
		Action:    string(event),
		Outcome:   outcome,
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event), "error", err)
	}
}
