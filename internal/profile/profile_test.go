package profile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"safeballot/internal/ballot"
	"safeballot/internal/platform/metrics"
	"safeballot/internal/profile/kv"
	dErrors "safeballot/pkg/domain-errors"
	"safeballot/pkg/requestcontext"
)

type ProfileSuite struct {
	suite.Suite
	ctx     context.Context
	backend *kv.InMemory
	store   *Store
	p       *Profile
}

func TestProfileSuite(t *testing.T) {
	suite.Run(t, new(ProfileSuite))
}

func (s *ProfileSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = kv.NewInMemory()
	s.store = NewStore(s.backend)
	s.p = s.store.For("profile-1")
}

func (s *ProfileSuite) TestDigitalKey() {
	s.Run("missing key reports not ok", func() {
		_, ok, err := s.p.DigitalKey(s.ctx, "b1")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("empty stored key is treated as absent", func() {
		s.Require().NoError(s.backend.Set(s.ctx, "profile-1", "digital_key_b0", ""))
		_, ok, err := s.p.DigitalKey(s.ctx, "b0")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("stored key round-trips under the legacy key name", func() {
		s.Require().NoError(s.p.SetDigitalKey(s.ctx, "b1", "KEY-1"))
		key, ok, err := s.p.DigitalKey(s.ctx, "b1")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal("KEY-1", key)

		raw, err := s.backend.Get(s.ctx, "profile-1", "digital_key_b1")
		s.Require().NoError(err)
		s.Equal("KEY-1", raw)
	})

	s.Run("profiles are isolated", func() {
		_, ok, err := s.store.For("profile-2").DigitalKey(s.ctx, "b1")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ProfileSuite) TestFlags() {
	verified, err := s.p.IsVerified(s.ctx, "b1")
	s.Require().NoError(err)
	s.False(verified)

	s.Require().NoError(s.p.SetVerified(s.ctx, "b1"))
	s.Require().NoError(s.p.MarkVoted(s.ctx, "b1"))

	verified, err = s.p.IsVerified(s.ctx, "b1")
	s.Require().NoError(err)
	s.True(verified)
	voted, err := s.p.HasVoted(s.ctx, "b1")
	s.Require().NoError(err)
	s.True(voted)

	voted, err = s.p.HasVoted(s.ctx, "b2")
	s.Require().NoError(err)
	s.False(voted)
}

func (s *ProfileSuite) TestVerifiedIdentity() {
	_, ok, err := s.p.VerifiedIdentity(s.ctx, "b1")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.p.SetVerifiedIdentity(s.ctx, "b1", VoterInfo{Email: "ada@example.org"}))
	info, ok, err := s.p.VerifiedIdentity(s.ctx, "b1")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(VoterInfo{Email: "ada@example.org"}, info)
}

func (s *ProfileSuite) TestVoterInfo() {
	s.Run("round-trips as JSON", func() {
		s.Require().NoError(s.p.SetVoterInfo(s.ctx, "b1", VoterInfo{Name: "Ada", Email: "ada@example.org"}))
		info, ok, err := s.p.VoterInfo(s.ctx, "b1")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal("Ada", info.Name)
	})

	s.Run("unreadable entry is ignored", func() {
		s.Require().NoError(s.backend.Set(s.ctx, "profile-1", "voter_info_b2", "{not json"))
		_, ok, err := s.p.VoterInfo(s.ctx, "b2")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ProfileSuite) TestPendingVote() {
	saved := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	pv := PendingVote{BallotID: "b1", Payload: json.RawMessage(`{"votes":[]}`), SavedAt: saved}
	s.Require().NoError(s.p.SavePendingVote(s.ctx, pv))

	got, ok, err := s.p.PendingVote(s.ctx, "b1")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("b1", got.BallotID)
	s.JSONEq(`{"votes":[]}`, string(got.Payload))
	s.True(saved.Equal(got.SavedAt))
}

func (s *ProfileSuite) TestCacheBallot() {
	s.Require().NoError(s.p.CacheBallot(s.ctx, ballot.Record{ID: "b1", Title: "First"}))
	s.Require().NoError(s.p.CacheBallot(s.ctx, ballot.Record{ID: "b2", Title: "Second"}))
	s.Require().NoError(s.p.CacheBallot(s.ctx, ballot.Record{ID: "b1", Title: "First, revised"}))

	records, err := s.p.CachedBallots(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("First, revised", records[0].Title)
	s.Equal("b2", records[1].ID)
}

func (s *ProfileSuite) TestClearVoterStatus() {
	s.Require().NoError(s.p.SetDigitalKey(s.ctx, "b1", "KEY"))
	s.Require().NoError(s.p.SetVerified(s.ctx, "b1"))
	s.Require().NoError(s.p.SetVoterID(s.ctx, "b1", "voter-9"))
	s.Require().NoError(s.p.MarkVoted(s.ctx, "b1"))
	s.Require().NoError(s.p.SetDigitalKey(s.ctx, "b2", "OTHER"))
	s.Require().NoError(s.p.CacheBallot(s.ctx, ballot.Record{ID: "b1"}))

	s.Require().NoError(s.p.ClearVoterStatus(s.ctx, "b1"))

	_, ok, err := s.p.DigitalKey(s.ctx, "b1")
	s.Require().NoError(err)
	s.False(ok)
	_, ok, err = s.p.VoterID(s.ctx, "b1")
	s.Require().NoError(err)
	s.False(ok)
	voted, err := s.p.HasVoted(s.ctx, "b1")
	s.Require().NoError(err)
	s.False(voted)

	key, ok, err := s.p.DigitalKey(s.ctx, "b2")
	s.Require().NoError(err)
	s.True(ok, "other ballots are untouched")
	s.Equal("OTHER", key)

	records, err := s.p.CachedBallots(s.ctx)
	s.Require().NoError(err)
	s.Len(records, 1, "cached ballots survive a reset")
}

func TestProfileStoreErrorsAreCounted(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	store := NewStore(failingKV{}, WithMetrics(m))
	p := store.For("profile-1")

	_, _, err := p.DigitalKey(context.Background(), "b1")
	require.Error(t, err)
	require.Error(t, p.SetVerified(context.Background(), "b1"))
	require.Error(t, p.ClearVoterStatus(context.Background(), "b1"))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.StoreErrors.WithLabelValues("get")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.StoreErrors.WithLabelValues("set")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.StoreErrors.WithLabelValues("delete")))
}

var errBackendDown = errors.New("backend down")

type failingKV struct{}

func (failingKV) Get(context.Context, string, string) (string, error) { return "", errBackendDown }
func (failingKV) Set(context.Context, string, string, string) error   { return errBackendDown }
func (failingKV) Delete(context.Context, string, ...string) error     { return errBackendDown }

func TestFromContext(t *testing.T) {
	store := NewStore(kv.NewInMemory())

	_, err := store.FromContext(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	p, err := store.FromContext(requestcontext.WithProfileID(context.Background(), "profile-9"))
	require.NoError(t, err)
	assert.Equal(t, "profile-9", p.ID())
}
