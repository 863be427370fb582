// Package profile is the typed accessor layer over the durable per-profile
// key-value store. Callers never build storage keys themselves.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"safeballot/internal/ballot"
	"safeballot/internal/platform/metrics"
	"safeballot/internal/profile/kv"
	dErrors "safeballot/pkg/domain-errors"
	"safeballot/pkg/platform/sentinel"
	"safeballot/pkg/requestcontext"
)

const cachedBallotsKey = "userBallots"

func digitalKeyKey(ballotID string) string    { return "digital_key_" + ballotID }
func verifiedKey(ballotID string) string      { return "verified_" + ballotID }
func verifiedNameKey(ballotID string) string  { return "verified_name_" + ballotID }
func verifiedEmailKey(ballotID string) string { return "verified_email_" + ballotID }
func voterIDKey(ballotID string) string       { return "voter_id_" + ballotID }
func voterInfoKey(ballotID string) string     { return "voter_info_" + ballotID }
func hasVotedKey(ballotID string) string      { return "hasVoted_" + ballotID }
func pendingVoteKey(ballotID string) string   { return "pending_vote_" + ballotID }

// ballotKeys lists every key ClearVoterStatus removes for a ballot.
func ballotKeys(ballotID string) []string {
	return []string{
		digitalKeyKey(ballotID),
		verifiedKey(ballotID),
		verifiedNameKey(ballotID),
		verifiedEmailKey(ballotID),
		voterIDKey(ballotID),
		voterInfoKey(ballotID),
		hasVotedKey(ballotID),
		pendingVoteKey(ballotID),
	}
}

// VoterInfo is the identity snapshot kept for a ballot.
type VoterInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// PendingVote is a vote persisted only locally because every network tier
// failed.
type PendingVote struct {
	BallotID string          `json:"ballotId"`
	Payload  json.RawMessage `json:"payload"`
	SavedAt  time.Time       `json:"savedAt"`
	// FailureCategory and FailureStatus describe the last network tier's
	// failure, so a rejected body can be told apart from an outage.
	FailureCategory string `json:"failureCategory,omitempty"`
	FailureStatus   int    `json:"failureStatus,omitempty"`
}

// Store hands out Profile views over a kv.Store.
type Store struct {
	kv      kv.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func NewStore(backend kv.Store, opts ...Option) *Store {
	s := &Store{kv: backend, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// For returns the view for one device profile.
func (s *Store) For(profileID string) *Profile {
	return &Profile{id: profileID, store: s}
}

// FromContext returns the view for the device profile carried by ctx.
func (s *Store) FromContext(ctx context.Context) (*Profile, error) {
	id := requestcontext.ProfileID(ctx)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "device profile is required")
	}
	return s.For(id), nil
}

// Profile is one browser profile's durable storage.
type Profile struct {
	id    string
	store *Store
}

// ID returns the device-profile ID.
func (p *Profile) ID() string {
	return p.id
}

func (p *Profile) get(ctx context.Context, key string) (string, bool, error) {
	v, err := p.store.kv.Get(ctx, p.id, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		p.store.metrics.IncStoreError("get")
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, true, nil
}

func (p *Profile) set(ctx context.Context, key, value string) error {
	if err := p.store.kv.Set(ctx, p.id, key, value); err != nil {
		p.store.metrics.IncStoreError("set")
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (p *Profile) getBool(ctx context.Context, key string) (bool, error) {
	v, ok, err := p.get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	b, _ := strconv.ParseBool(v)
	return b, nil
}

func (p *Profile) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	v, ok, err := p.get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(v), dst); err != nil {
		p.store.logger.WarnContext(ctx, "discarding unreadable profile entry",
			"key", key,
			"error", err,
		)
		return false, nil
	}
	return true, nil
}

func (p *Profile) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return p.set(ctx, key, string(raw))
}

// DigitalKey returns the stored key for ballotID; ok is false when none exists.
func (p *Profile) DigitalKey(ctx context.Context, ballotID string) (key string, ok bool, err error) {
	key, ok, err = p.get(ctx, digitalKeyKey(ballotID))
	if ok && key == "" {
		ok = false
	}
	return key, ok, err
}

func (p *Profile) SetDigitalKey(ctx context.Context, ballotID, key string) error {
	return p.set(ctx, digitalKeyKey(ballotID), key)
}

func (p *Profile) IsVerified(ctx context.Context, ballotID string) (bool, error) {
	return p.getBool(ctx, verifiedKey(ballotID))
}

func (p *Profile) SetVerified(ctx context.Context, ballotID string) error {
	return p.set(ctx, verifiedKey(ballotID), "true")
}

// VerifiedIdentity returns the name and email snapshot taken at key issuance.
func (p *Profile) VerifiedIdentity(ctx context.Context, ballotID string) (VoterInfo, bool, error) {
	name, okName, err := p.get(ctx, verifiedNameKey(ballotID))
	if err != nil {
		return VoterInfo{}, false, err
	}
	email, okEmail, err := p.get(ctx, verifiedEmailKey(ballotID))
	if err != nil {
		return VoterInfo{}, false, err
	}
	return VoterInfo{Name: name, Email: email}, okName || okEmail, nil
}

func (p *Profile) SetVerifiedIdentity(ctx context.Context, ballotID string, info VoterInfo) error {
	if info.Name != "" {
		if err := p.set(ctx, verifiedNameKey(ballotID), info.Name); err != nil {
			return err
		}
	}
	if info.Email != "" {
		if err := p.set(ctx, verifiedEmailKey(ballotID), info.Email); err != nil {
			return err
		}
	}
	return nil
}

func (p *Profile) VoterID(ctx context.Context, ballotID string) (string, bool, error) {
	return p.get(ctx, voterIDKey(ballotID))
}

func (p *Profile) SetVoterID(ctx context.Context, ballotID, voterID string) error {
	return p.set(ctx, voterIDKey(ballotID), voterID)
}

func (p *Profile) VoterInfo(ctx context.Context, ballotID string) (VoterInfo, bool, error) {
	var info VoterInfo
	ok, err := p.getJSON(ctx, voterInfoKey(ballotID), &info)
	return info, ok, err
}

func (p *Profile) SetVoterInfo(ctx context.Context, ballotID string, info VoterInfo) error {
	return p.setJSON(ctx, voterInfoKey(ballotID), info)
}

func (p *Profile) HasVoted(ctx context.Context, ballotID string) (bool, error) {
	return p.getBool(ctx, hasVotedKey(ballotID))
}

func (p *Profile) MarkVoted(ctx context.Context, ballotID string) error {
	return p.set(ctx, hasVotedKey(ballotID), "true")
}

func (p *Profile) PendingVote(ctx context.Context, ballotID string) (PendingVote, bool, error) {
	var pv PendingVote
	ok, err := p.getJSON(ctx, pendingVoteKey(ballotID), &pv)
	return pv, ok, err
}

func (p *Profile) SavePendingVote(ctx context.Context, pv PendingVote) error {
	return p.setJSON(ctx, pendingVoteKey(pv.BallotID), pv)
}

// CachedBallots returns the locally cached ballot collection.
func (p *Profile) CachedBallots(ctx context.Context) ([]ballot.Record, error) {
	var records []ballot.Record
	if _, err := p.getJSON(ctx, cachedBallotsKey, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CacheBallot inserts or replaces rec in the cached collection by ID.
func (p *Profile) CacheBallot(ctx context.Context, rec ballot.Record) error {
	records, err := p.CachedBallots(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return p.setJSON(ctx, cachedBallotsKey, records)
}

// ClearVoterStatus removes every per-ballot voter entry. The cached ballot
// collection is kept.
func (p *Profile) ClearVoterStatus(ctx context.Context, ballotID string) error {
	if err := p.store.kv.Delete(ctx, p.id, ballotKeys(ballotID)...); err != nil {
		p.store.metrics.IncStoreError("delete")
		return fmt.Errorf("clear voter status: %w", err)
	}
	return nil
}
