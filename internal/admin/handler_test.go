package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeballot/internal/profile"
	"safeballot/internal/profile/kv"
	"safeballot/pkg/platform/audit"
	"safeballot/pkg/platform/audit/publisher"
	"safeballot/pkg/platform/audit/store/memory"
	adminmw "safeballot/pkg/platform/middleware/admin"
	"safeballot/pkg/testutil"
)

const adminToken = "secret-token"

type fixture struct {
	router   http.Handler
	profiles *profile.Store
	events   *memory.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	f := &fixture{
		profiles: profile.NewStore(kv.NewInMemory()),
		events:   memory.NewInMemoryStore(),
	}
	pub := publisher.NewPublisher(f.events)
	h := New(f.profiles, pub, pub, logger)

	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(adminToken, logger))
		h.Register(r)
	})
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, token string) *http.Response {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, nil)
	if token != "" {
		req.Header.Set(adminmw.HeaderAdminToken, token)
	}
	return testutil.DoRequest(f.router, req).Result()
}

func TestAdminTokenRequired(t *testing.T) {
	f := newFixture(t)
	p := f.profiles.For("p1")
	require.NoError(t, p.SetDigitalKey(context.Background(), "b1", "KEY-1"))

	req := testutil.NewJSONRequest(t, http.MethodDelete, "/admin/profiles/p1/ballots/b1/status", nil)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	_, ok, err := p.DigitalKey(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, ok, "a rejected reset must not touch the profile")
}

func TestClearStatus(t *testing.T) {
	testutil.Given(t, "a profile that verified and voted", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		p := f.profiles.For("p1")
		require.NoError(t, p.SetDigitalKey(ctx, "b1", "KEY-1"))
		require.NoError(t, p.SetVerified(ctx, "b1"))
		require.NoError(t, p.MarkVoted(ctx, "b1"))
		require.NoError(t, p.SetDigitalKey(ctx, "b2", "KEY-2"))

		testutil.When(t, "an operator clears ballot b1", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodDelete, "/admin/profiles/p1/ballots/b1/status", nil)
			req.Header.Set(adminmw.HeaderAdminToken, adminToken)
			rr := testutil.DoRequest(f.router, req)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			testutil.Then(t, "b1 entries are gone and b2 is untouched", func(t *testing.T) {
				resp := testutil.UnmarshalResponse[ClearStatusResponse](t, rr)
				assert.True(t, resp.Cleared)
				assert.Equal(t, "b1", resp.BallotID)

				_, ok, err := p.DigitalKey(ctx, "b1")
				require.NoError(t, err)
				assert.False(t, ok)
				voted, err := p.HasVoted(ctx, "b1")
				require.NoError(t, err)
				assert.False(t, voted)

				key, ok, err := p.DigitalKey(ctx, "b2")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "KEY-2", key)
			})

			testutil.Then(t, "the reset is audited as a security event", func(t *testing.T) {
				events, err := f.events.ListByProfile(ctx, "p1")
				require.NoError(t, err)
				require.Len(t, events, 1)
				assert.Equal(t, string(audit.EventVoterStatusCleared), events[0].Action)
				assert.Equal(t, audit.CategorySecurity, events[0].Category)
			})
		})
	})
}

func TestPendingVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.do(t, http.MethodGet, "/admin/profiles/p1/ballots/b1/pending-vote", adminToken)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	saved := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, f.profiles.For("p1").SavePendingVote(ctx, profile.PendingVote{
		BallotID:        "b1",
		Payload:         json.RawMessage(`{"votes":[{"questionId":"q1","choiceId":"ada","rank":1}]}`),
		SavedAt:         saved,
		FailureCategory: "bad_data",
		FailureStatus:   http.StatusConflict,
	}))

	req := testutil.NewJSONRequest(t, http.MethodGet, "/admin/profiles/p1/ballots/b1/pending-vote", nil)
	req.Header.Set(adminmw.HeaderAdminToken, adminToken)
	rr := testutil.DoRequest(f.router, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	got := testutil.UnmarshalResponse[PendingVoteResponse](t, rr)
	assert.Equal(t, "b1", got.BallotID)
	assert.True(t, saved.Equal(got.SavedAt))
	assert.Equal(t, "bad_data", got.FailureCategory, "operators can tell a rejected body from an outage")
	assert.Equal(t, http.StatusConflict, got.FailureStatus)
	assert.JSONEq(t, `{"votes":[{"questionId":"q1","choiceId":"ada","rank":1}]}`, string(got.Payload))
}

func TestListAudit(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.events.Append(context.Background(), audit.Event{
		ProfileID: "p1",
		BallotID:  "b1",
		Action:    string(audit.EventVoteSubmitted),
	}))

	req := testutil.NewJSONRequest(t, http.MethodGet, "/admin/profiles/p1/audit", nil)
	req.Header.Set(adminmw.HeaderAdminToken, adminToken)
	rr := testutil.DoRequest(f.router, req)
	require.Equal(t, http.StatusOK, rr.Code)

	got := testutil.UnmarshalResponse[AuditEventsResponse](t, rr)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, string(audit.EventVoteSubmitted), got.Events[0].Action)
}
