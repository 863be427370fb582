// Package digitalkey issues the per-ballot submission credential. A stored
// key always wins; otherwise the server is asked, and when that is not
// possible a key is generated locally and flagged as not server-attested.
package digitalkey

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"safeballot/internal/platform/logger"
	"safeballot/internal/profile"
	"safeballot/internal/upstream"
	"safeballot/pkg/platform/audit"
	"safeballot/pkg/requestcontext"
)

// Provenance records where a key came from.
type Provenance string

const (
	ProvenanceExisting Provenance = "existing"
	ProvenanceServer   Provenance = "server"
	ProvenanceFallback Provenance = "fallback"
)

const (
	FallbackPrefix = "SAFE-BALLOT-"
	segmentLen     = 6
	alphabet       = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	FallbackWarning = "Your digital key was generated on this device because the election server could not issue one. " +
		"It can be used now but has not been confirmed by the election server."

	UnsavedWarning = "Your digital key could not be saved on this device. Keep a copy of it before you continue."
)

// Issued is the outcome of IssueOrReuse.
type Issued struct {
	Key        string     `json:"key"`
	Provenance Provenance `json:"provenance"`
	Warning    string     `json:"warning,omitempty"`
}

type Service struct {
	auth    upstream.AuthService
	audit   audit.Emitter
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	random  io.Reader
	group   singleflight.Group
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

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRandom overrides the entropy source for fallback keys.
func WithRandom(r io.Reader) Option {
	return func(s *Service) {
		if r != nil {
			s.random = r
		}
	}
}

func New(auth upstream.AuthService, opts ...Option) (*Service, error) {
	if auth == nil {
		return nil, errors.New("auth service is required")
	}
	s := &Service{
		auth:   auth,
		audit:  audit.Nop{},
		logger: slog.Default(),
		tracer: otel.Tracer("safeballot/internal/digitalkey"),
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueOrReuse returns the key bound to (profile, ballot), creating one if
// needed. It never fails. Concurrent calls for the same pair share one
// issuance, so at most one server key is requested.
func (s *Service) IssueOrReuse(ctx context.Context, p *profile.Profile, ballotID string, voter profile.VoterInfo) Issued {
	ctx, span := s.tracer.Start(ctx, "digitalkey.IssueOrReuse",
		trace.WithAttributes(attribute.String("ballot.id", ballotID)))
	defer span.End()

	// The shared call outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do(p.ID()+"|"+ballotID, func() (any, error) {
		return s.issue(shared, p, ballotID, voter), nil
	})
	issued := v.(Issued)

	span.SetAttributes(attribute.String("digitalkey.provenance", string(issued.Provenance)))
	return issued
}

func (s *Service) issue(ctx context.Context, p *profile.Profile, ballotID string, voter profile.VoterInfo) Issued {
	requestID := requestcontext.RequestID(ctx)

	key, ok, readErr := s.stored(ctx, p, ballotID)
	if ok {
		s.metrics.IncIssued(ProvenanceExisting)
		return Issued{Key: key, Provenance: ProvenanceExisting}
	}
	// A key may already sit in the slot we could not read. Never write over it.
	save := readErr == nil
	if !save {
		s.logger.ErrorContext(ctx, "stored digital key unreadable, issuing a key for this session only",
			"ballot_id", ballotID,
			"request_id", requestID,
			"error", readErr,
		)
	}

	email := strings.TrimSpace(voter.Email)
	if email != "" {
		key, err := s.auth.GenerateDigitalKey(ctx, email, ballotID)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "server digital key issuance failed, using fallback",
				"ballot_id", ballotID,
				"category", string(upstream.GetCategory(err)),
				"request_id", requestID,
				"error", err,
			)
		case key == "":
			s.logger.WarnContext(ctx, "server returned an empty digital key, using fallback",
				"ballot_id", ballotID,
				"request_id", requestID,
			)
		default:
			out := Issued{Key: key, Provenance: ProvenanceServer}
			if save {
				s.persist(ctx, p, ballotID, key, voter)
			} else {
				out.Warning = UnsavedWarning
			}
			return s.issued(ctx, p, ballotID, out)
		}
	}

	key = s.fallbackKey(ctx)
	out := Issued{Key: key, Provenance: ProvenanceFallback, Warning: FallbackWarning}
	if save {
		s.persist(ctx, p, ballotID, key, profile.VoterInfo{})
	} else {
		out.Warning = FallbackWarning + " " + UnsavedWarning
	}
	return s.issued(ctx, p, ballotID, out)
}

// stored reads the key bound to (profile, ballot), retrying once on a
// storage error.
func (s *Service) stored(ctx context.Context, p *profile.Profile, ballotID string) (string, bool, error) {
	key, ok, err := p.DigitalKey(ctx, ballotID)
	if err == nil {
		return key, ok, nil
	}
	s.logger.WarnContext(ctx, "could not read stored digital key, retrying",
		"ballot_id", ballotID,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	return p.DigitalKey(ctx, ballotID)
}

func (s *Service) issued(ctx context.Context, p *profile.Profile, ballotID string, out Issued) Issued {
	s.metrics.IncIssued(out.Provenance)
	s.logger.InfoContext(ctx, "digital key issued",
		"ballot_id", ballotID,
		"provenance", string(out.Provenance),
		"key", logger.MaskKey(out.Key),
		"device", requestcontext.DeviceLabel(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	if err := s.audit.Emit(ctx, audit.Event{
		ProfileID: p.ID(),
		BallotID:  ballotID,
		Action:    string(audit.EventDigitalKeyIssued),
		Outcome:   string(out.Provenance),
		RequestID: requestcontext.RequestID(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err)
	}
	return out
}

// persist writes the key and the verified flag. Storage failures are logged;
// the key is still returned so the voter can continue this session.
func (s *Service) persist(ctx context.Context, p *profile.Profile, ballotID, key string, voter profile.VoterInfo) {
	if err := p.SetDigitalKey(ctx, ballotID, key); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist digital key", "ballot_id", ballotID, "error", err)
		return
	}
	if err := p.SetVerified(ctx, ballotID); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist verified flag", "ballot_id", ballotID, "error", err)
	}
	if err := p.SetVerifiedIdentity(ctx, ballotID, voter); err != nil {
		s.logger.WarnContext(ctx, "failed to persist verified identity", "ballot_id", ballotID, "error", err)
	}
	if voter.Name != "" && voter.Email != "" {
		if err := p.SetVoterInfo(ctx, ballotID, voter); err != nil {
			s.logger.WarnContext(ctx, "failed to persist voter info", "ballot_id", ballotID, "error", err)
		}
	}
}

func (s *Service) fallbackKey(ctx context.Context) string {
	a, errA := s.segment()
	b, errB := s.segment()
	if err := errors.Join(errA, errB); err != nil {
		s.logger.ErrorContext(ctx, "entropy source failed, deriving fallback key from uuid", "error", err)
		a, b = uuidSegments()
	}
	return FallbackPrefix + a + "-" + b
}

func uuidSegments() (string, string) {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return hex[:segmentLen], hex[segmentLen : 2*segmentLen]
}

func (s *Service) segment() (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(alphabet)))
	for range segmentLen {
		n, err := rand.Int(s.random, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}

// IsFallback reports whether key has the locally generated format.
func IsFallback(key string) bool {
	rest, ok := strings.CutPrefix(key, FallbackPrefix)
	if !ok {
		return false
	}
	a, b, ok := strings.Cut(rest, "-")
	return ok && isSegment(a) && isSegment(b)
}

func isSegment(s string) bool {
	if len(s) != segmentLen {
		return false
	}
	for i := range len(s) {
		if !strings.ContainsRune(alphabet, rune(s[i])) {
			return false
		}
	}
	return true
}
