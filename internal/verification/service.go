// Package verification runs the voter identity-proof flow for a ballot and
// hands the digital key to the voting UI.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"safeballot/internal/ballot"
	"safeballot/internal/digitalkey"
	"safeballot/internal/platform/logger"
	"safeballot/internal/profile"
	"safeballot/internal/quickballot"
	"safeballot/internal/upstream"
	"safeballot/internal/votertoken"
	dErrors "safeballot/pkg/domain-errors"
	"safeballot/pkg/platform/audit"
	"safeballot/pkg/platform/sentinel"
	"safeballot/pkg/requestcontext"
)

// IdentityCapture extracts a structured identity record from a document
// capture. Capture and recognition happen elsewhere.
type IdentityCapture interface {
	Extract(ctx context.Context, captureRef string) (IdentityRecord, error)
}

// KeyIssuer is the digital key service.
type KeyIssuer interface {
	IssueOrReuse(ctx context.Context, p *profile.Profile, ballotID string, voter profile.VoterInfo) digitalkey.Issued
}

// VoterRegistry is the part of the ballot backend the Confirm step calls.
type VoterRegistry interface {
	RegisterVoter(ctx context.Context, ballotID string, voter upstream.VoterDetails) (upstream.RegisterVoterResult, error)
	SendVoterIDEmail(ctx context.Context, ballotID string, voter upstream.VoterDetails) (string, error)
}

// Bypass is the quick-ballot gate.
type Bypass interface {
	ShouldBypassVerification(rec ballot.Record, requestPath string) bool
}

// VoterTokens mints the voter credential handed to a verified device and
// checks that a presented one belongs to it.
type VoterTokens interface {
	Mint(profileID, subject, ballotID string) (string, error)
	ValidateFor(token, profileID, ballotID string) (*votertoken.Claims, error)
}

// LandingMode tells the UI where a voter arriving at a ballot goes.
type LandingMode string

const (
	LandingQuick  LandingMode = "quick"
	LandingReady  LandingMode = "ready"
	LandingVerify LandingMode = "verify"
)

type Landing struct {
	Mode       LandingMode `json:"mode"`
	Variant    Variant     `json:"variant,omitempty"`
	DigitalKey string      `json:"digitalKey,omitempty"`
	VoterToken string      `json:"voterToken,omitempty"`
}

type Service struct {
	keys     KeyIssuer
	registry VoterRegistry
	gate     Bypass
	capture  IdentityCapture
	tokens   VoterTokens
	sessions *sessionStore
	audit    audit.Emitter
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCapture(c IdentityCapture) Option {
	return func(s *Service) {
		s.capture = c
	}
}

// WithVoterTokens lets ready views carry a voter token and lets a presented
// token pick the login variant. Without it neither happens.
func WithVoterTokens(t VoterTokens) Option {
	return func(s *Service) {
		s.tokens = t
	}
}

func WithAudit(emitter audit.Emitter) Option {
	return func(s *Service) {
		if emitter != nil {
			s.audit = emitter
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.sessions = newSessionStore(ttl)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(keys KeyIssuer, registry VoterRegistry, gate Bypass, opts ...Option) (*Service, error) {
	if keys == nil {
		return nil, errors.New("key issuer is required")
	}
	if registry == nil {
		return nil, errors.New("voter registry is required")
	}
	if gate == nil {
		return nil, errors.New("quick-ballot gate is required")
	}
	s := &Service{
		keys:     keys,
		registry: registry,
		gate:     gate,
		sessions: newSessionStore(DefaultSessionTTL),
		audit:    audit.Nop{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Landing decides the entry path for a voter arriving at rec.
func (s *Service) Landing(ctx context.Context, p *profile.Profile, rec ballot.Record, slug, requestPath string, cameFromLogin bool) (Landing, error) {
	if s.gate.ShouldBypassVerification(rec, requestPath) {
		return Landing{Mode: LandingQuick, DigitalKey: quickballot.SentinelKey}, nil
	}
	key, ok, err := s.readyKey(ctx, p, rec.ID, slug)
	if err != nil {
		return Landing{}, err
	}
	if ok {
		tok := s.mintVoterToken(ctx, p, rec.ID, s.storedVoter(ctx, p, rec.ID))
		return Landing{Mode: LandingReady, DigitalKey: key, VoterToken: tok}, nil
	}
	variant, err := s.selectVariant(ctx, p, rec.ID, cameFromLogin)
	if err != nil {
		return Landing{}, err
	}
	return Landing{Mode: LandingVerify, Variant: variant}, nil
}

// Start begins verification, or resumes a flow already in progress. A
// profile that is already verified with a stored key skips every step.
func (s *Service) Start(ctx context.Context, p *profile.Profile, req StartRequest) (View, error) {
	if strings.TrimSpace(req.BallotID) == "" {
		return View{}, dErrors.New(dErrors.CodeValidation, "ballot id is required")
	}

	key, ok, err := s.readyKey(ctx, p, req.BallotID, req.Slug)
	if err != nil {
		return View{}, err
	}
	if ok {
		s.metrics.IncStarted("resumed")
		tok := s.mintVoterToken(ctx, p, req.BallotID, s.storedVoter(ctx, p, req.BallotID))
		return View{BallotID: req.BallotID, State: StateReady, DigitalKey: key, VoterToken: tok, Resumed: true}, nil
	}

	variant, err := s.selectVariant(ctx, p, req.BallotID, req.CameFromLogin)
	if err != nil {
		return View{}, err
	}
	sess, created := s.sessions.getOrCreate(p.ID(), req.BallotID, s.now(), func() *session {
		state := Initial(variant)
		return &session{
			variant: variant,
			state:   state,
			view:    View{BallotID: req.BallotID, Variant: variant, State: state},
		}
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if created {
		s.metrics.IncStarted(string(sess.variant))
		s.logger.InfoContext(ctx, "verification started",
			"ballot_id", req.BallotID,
			"variant", string(sess.variant),
			"device", requestcontext.DeviceLabel(ctx),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return sess.view, nil
}

// Complete runs onComplete for the current step.
func (s *Service) Complete(ctx context.Context, p *profile.Profile, ballotID string, data StepData) (View, error) {
	sess, err := s.session(p, ballotID)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch sess.state {
	case StateIdentity:
		if err := s.completeIdentity(sess, data); err != nil {
			return View{}, err
		}
	case StateScan:
		if err := s.completeScan(ctx, sess, data); err != nil {
			return View{}, err
		}
	case StateConfirm:
		s.completeConfirm(ctx, p, ballotID, sess)
	}
	return s.transition(ctx, p, ballotID, sess, EventComplete)
}

// Back runs onBack for the current step.
func (s *Service) Back(ctx context.Context, p *profile.Profile, ballotID string) (View, error) {
	sess, err := s.session(p, ballotID)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.transition(ctx, p, ballotID, sess, EventBack)
}

// Sweep drops expired in-progress flows.
func (s *Service) Sweep() int {
	return s.sessions.sweep(s.now())
}

func (s *Service) session(p *profile.Profile, ballotID string) (*session, error) {
	sess := s.sessions.get(p.ID(), ballotID, s.now())
	if sess == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "verification has not been started for this ballot")
	}
	return sess, nil
}

func (s *Service) transition(ctx context.Context, p *profile.Profile, ballotID string, sess *session, e Event) (View, error) {
	from := sess.state
	to, err := Next(sess.variant, from, e)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return View{}, dErrors.Wrap(err, dErrors.CodeConflict, "this verification step is no longer active")
		}
		return View{}, err
	}

	sess.state = to
	sess.touched = s.now()
	sess.view = View{BallotID: ballotID, Variant: sess.variant, State: to}

	s.metrics.IncTransition(sess.variant, from, to)
	s.logger.InfoContext(ctx, "verification step changed",
		"ballot_id", ballotID,
		"variant", string(sess.variant),
		"from", string(from),
		"to", string(to),
		"event", e.String(),
		"device", requestcontext.DeviceLabel(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)

	switch to {
	case StateConfirm:
		sess.view.Identity = cloneIdentity(sess.identity)
	case StateVerified:
		s.enterVerified(ctx, p, ballotID, sess)
	case StateReady:
		key, _, err := p.DigitalKey(ctx, ballotID)
		if err != nil {
			s.logger.WarnContext(ctx, "could not read digital key", "ballot_id", ballotID, "error", err)
		}
		sess.view.DigitalKey = key
		sess.view.VoterToken = s.mintVoterToken(ctx, p, ballotID, s.voterFor(ctx, p, ballotID, sess))
		s.emit(ctx, p, ballotID, audit.EventVerificationCompleted, string(sess.variant))
		s.sessions.delete(p.ID(), ballotID)
	case StateExited:
		s.sessions.delete(p.ID(), ballotID)
	}
	return sess.view, nil
}

func (s *Service) completeIdentity(sess *session, data StepData) error {
	if data.Voter == nil {
		return nil
	}
	name := strings.TrimSpace(data.Voter.Name)
	email := strings.TrimSpace(data.Voter.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return dErrors.New(dErrors.CodeValidation, "email address is not valid")
		}
	}
	if name != "" {
		sess.voter.Name = name
	}
	if email != "" {
		sess.voter.Email = email
	}
	return nil
}

func (s *Service) completeScan(ctx context.Context, sess *session, data StepData) error {
	var identity IdentityRecord
	switch {
	case data.Identity != nil:
		identity = *data.Identity
	case data.CaptureRef != "":
		if s.capture == nil {
			return dErrors.New(dErrors.CodeValidation, "identity capture is not available, submit the extracted identity fields")
		}
		rec, err := s.capture.Extract(ctx, data.CaptureRef)
		if err != nil {
			s.logger.WarnContext(ctx, "identity extraction failed",
				"category", string(upstream.GetCategory(err)),
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "we could not read your document, please try again")
		}
		identity = rec
	}
	if identity.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "identity data is required")
	}

	sess.identity = &identity
	if sess.voter.Name == "" {
		sess.voter.Name = identity.DisplayName()
	}
	return nil
}

// completeConfirm registers the voter and asks for the voter ID email. Both
// are best-effort.
func (s *Service) completeConfirm(ctx context.Context, p *profile.Profile, ballotID string, sess *session) {
	voter := s.voterFor(ctx, p, ballotID, sess)
	if voter.Name == "" && voter.Email == "" {
		s.logger.InfoContext(ctx, "no voter details to register", "ballot_id", ballotID)
		return
	}
	if voter.Name != "" && voter.Email != "" {
		if err := p.SetVoterInfo(ctx, ballotID, voter); err != nil {
			s.logger.WarnContext(ctx, "failed to persist voter info", "ballot_id", ballotID, "error", err)
		}
	}

	details := upstream.VoterDetails{Name: voter.Name, Email: voter.Email}
	res, err := s.registry.RegisterVoter(ctx, ballotID, details)
	if err != nil {
		s.logger.WarnContext(ctx, "voter registration failed, continuing",
			"ballot_id", ballotID,
			"email", logger.MaskEmail(voter.Email),
			"category", string(upstream.GetCategory(err)),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		s.emit(ctx, p, ballotID, audit.EventVoterRegistrationFailed, string(upstream.GetCategory(err)))
	} else {
		s.storeVoterID(ctx, p, ballotID, res.VoterID)
		s.emit(ctx, p, ballotID, audit.EventVoterRegistered, "registered")
	}

	if voter.Email == "" {
		return
	}
	voterID, err := s.registry.SendVoterIDEmail(ctx, ballotID, details)
	if err != nil {
		s.logger.WarnContext(ctx, "voter id email failed",
			"ballot_id", ballotID,
			"email", logger.MaskEmail(voter.Email),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	s.storeVoterID(ctx, p, ballotID, voterID)
}

func (s *Service) storeVoterID(ctx context.Context, p *profile.Profile, ballotID, voterID string) {
	if voterID == "" {
		return
	}
	if _, ok, _ := p.VoterID(ctx, ballotID); ok {
		return
	}
	if err := p.SetVoterID(ctx, ballotID, voterID); err != nil {
		s.logger.WarnContext(ctx, "failed to persist voter id", "ballot_id", ballotID, "error", err)
	}
}

func (s *Service) enterVerified(ctx context.Context, p *profile.Profile, ballotID string, sess *session) {
	issued := s.keys.IssueOrReuse(ctx, p, ballotID, s.voterFor(ctx, p, ballotID, sess))
	sess.view.KeyProvenance = issued.Provenance
	sess.view.Warning = issued.Warning
	if sess.variant == VariantRegistration {
		sess.view.Message = PendingElectionMessage
		return
	}
	sess.view.DigitalKey = issued.Key
}

// voterFor resolves the voter for this ballot: session first, then what an
// earlier visit stored.
func (s *Service) voterFor(ctx context.Context, p *profile.Profile, ballotID string, sess *session) profile.VoterInfo {
	v := profile.VoterInfo{Name: sess.voter.Name, Email: sess.voter.Email}
	if v.Name != "" && v.Email != "" {
		return v
	}
	return fill(v, s.storedVoter(ctx, p, ballotID))
}

func (s *Service) storedVoter(ctx context.Context, p *profile.Profile, ballotID string) profile.VoterInfo {
	var v profile.VoterInfo
	if info, ok, err := p.VoterInfo(ctx, ballotID); err == nil && ok {
		v = fill(v, info)
	}
	if info, ok, err := p.VerifiedIdentity(ctx, ballotID); err == nil && ok {
		v = fill(v, info)
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

// mintVoterToken returns "" when no token service is configured or minting
// fails. The voter can still submit; submission mints its own credential.
func (s *Service) mintVoterToken(ctx context.Context, p *profile.Profile, ballotID string, voter profile.VoterInfo) string {
	if s.tokens == nil {
		return ""
	}
	tok, err := s.tokens.Mint(p.ID(), voter.Email, ballotID)
	if err != nil {
		s.logger.WarnContext(ctx, "could not mint voter token", "ballot_id", ballotID, "error", err)
		return ""
	}
	return tok
}

// selectVariant picks login when the caller presents a voter token minted
// for this profile and ballot, says it came from login, or the profile
// already holds a voter ID for the ballot.
func (s *Service) selectVariant(ctx context.Context, p *profile.Profile, ballotID string, cameFromLogin bool) (Variant, error) {
	if cameFromLogin || s.scopedToken(ctx, p, ballotID) {
		return VariantLogin, nil
	}
	_, ok, err := p.VoterID(ctx, ballotID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "voter storage is unavailable")
	}
	if ok {
		return VariantLogin, nil
	}
	return VariantRegistration, nil
}

func (s *Service) scopedToken(ctx context.Context, p *profile.Profile, ballotID string) bool {
	tok := requestcontext.VoterToken(ctx)
	if tok == "" || s.tokens == nil {
		return false
	}
	_, err := s.tokens.ValidateFor(tok, p.ID(), ballotID)
	return err == nil
}

// readyKey applies the re-entry rule to the ballot ID and then the slug ID.
func (s *Service) readyKey(ctx context.Context, p *profile.Profile, ballotID, slug string) (string, bool, error) {
	ids := []string{ballotID}
	if slugID := ballot.SlugID(slug); slugID != "" && slugID != ballotID {
		ids = append(ids, slugID)
	}
	for _, id := range ids {
		verified, err := p.IsVerified(ctx, id)
		if err != nil {
			return "", false, dErrors.Wrap(err, dErrors.CodeUnavailable, "voter storage is unavailable")
		}
		if !verified {
			continue
		}
		key, ok, err := p.DigitalKey(ctx, id)
		if err != nil {
			return "", false, dErrors.Wrap(err, dErrors.CodeUnavailable, "voter storage is unavailable")
		}
		if ok {
			return key, true, nil
		}
	}
	return "", false, nil
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

func cloneIdentity(r *IdentityRecord) *IdentityRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
