package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"safeballot/internal/ballot"
	"safeballot/internal/ballot/store"
	"safeballot/internal/profile"
	"safeballot/internal/profile/kv"
	"safeballot/internal/upstream"
	"safeballot/internal/upstream/mocks"
	"safeballot/pkg/testutil"
)

func newRouter(t *testing.T) (http.Handler, *mocks.MockBallotService, *profile.Store) {
	t.Helper()
	ctrl := gomock.NewController(t)
	remote := mocks.NewMockBallotService(ctrl)
	adapter, err := store.New(remote)
	require.NoError(t, err)
	profiles := profile.NewStore(kv.NewInMemory())

	h := New(adapter, profiles, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, remote, profiles
}

func TestGetBallotNormalizes(t *testing.T) {
	router, remote, _ := newRouter(t)
	remote.EXPECT().GetBallot(gomock.Any(), "b1").
		Return(json.RawMessage(`{"id":"b1","title":"Mayor","questions":[{"title":"Q1","choices":[{"text":"Yes"}]}]}`), nil)

	req := testutil.WithProfile(testutil.NewJSONRequest(t, http.MethodGet, "/ballots/b1", nil), "p1")
	rr := testutil.DoRequest(router, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := testutil.UnmarshalResponse[store.Result](t, rr)
	assert.Equal(t, store.SourceRemote, res.Source)
	require.Len(t, res.Ballot.Questions, 1)
	assert.Equal(t, "Yes", res.Ballot.Questions[0].Options[0].Text)
}

func TestGetBallotServedFromCache(t *testing.T) {
	router, remote, profiles := newRouter(t)
	remote.EXPECT().GetBallot(gomock.Any(), "b1").
		Return(nil, upstream.FromStatus("ballots", http.StatusBadGateway, ""))
	require.NoError(t, profiles.For("p1").CacheBallot(t.Context(), ballot.Record{ID: "b1", Title: "Cached", Questions: []ballot.Question{}}))

	req := testutil.WithProfile(testutil.NewJSONRequest(t, http.MethodGet, "/ballots/b1", nil), "p1")
	rr := testutil.DoRequest(router, req)

	require.Equal(t, http.StatusOK, rr.Code)
	res := testutil.UnmarshalResponse[store.Result](t, rr)
	assert.Equal(t, store.SourceCache, res.Source)
	assert.Equal(t, "Cached", res.Ballot.Title)
}

func TestGetBallotNotFound(t *testing.T) {
	router, remote, _ := newRouter(t)
	remote.EXPECT().GetBallot(gomock.Any(), "b1").
		Return(nil, upstream.FromStatus("ballots", http.StatusNotFound, "missing"))

	req := testutil.WithProfile(testutil.NewJSONRequest(t, http.MethodGet, "/ballots/b1", nil), "p1")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestGetBallotRequiresProfile(t *testing.T) {
	router, _, _ := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/ballots/b1", nil))

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}
