package submission

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeballot/internal/ballot"
	"safeballot/internal/profile"
	"safeballot/internal/profile/kv"
	"safeballot/internal/quickballot"
	"safeballot/internal/upstream/httpclient"
	"safeballot/internal/votertoken"
	"safeballot/pkg/requestcontext"
)

// Justification for unit tests: the isolation guarantee is about the bytes
// on the wire, so this test goes through the real HTTP client.
func TestOutgoingVoteNeverCarriesElevatedCredential(t *testing.T) {
	const elevated = "operator-session-token"

	var (
		mu      sync.Mutex
		seen    []http.Header
		attempt int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r.Header.Clone())
		attempt++
		if attempt == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	client := httpclient.New(server.URL)
	tokens, err := votertoken.New("test-signing-key", "safeballot", time.Minute)
	require.NoError(t, err)
	svc, err := New(client, client, tokens, quickballot.NewGate(""))
	require.NoError(t, err)

	p := profile.NewStore(kv.NewInMemory()).For("profile-1")
	ctx := requestcontext.WithElevatedCredential(context.Background(), elevated)
	require.NoError(t, p.SetDigitalKey(ctx, "b1", "KEY-1"))

	res := svc.Submit(ctx, p, Request{
		Ballot: ballot.Record{ID: "b1", Questions: []ballot.Question{{
			ID:      "q1",
			Options: []ballot.Option{{ID: "yes", Text: "Yes"}},
		}}},
		Responses: map[int]ballot.Response{0: {SelectedIndex: 0}},
	})

	require.True(t, res.OK)
	assert.Equal(t, TierDirect, res.Tier)
	require.Len(t, seen, 2, "primary failed and the direct tier was tried")
	for _, h := range seen {
		assert.Empty(t, h.Get("X-Admin-Token"))
		bearer, ok := strings.CutPrefix(h.Get("Authorization"), "Bearer ")
		require.True(t, ok, "every tier carries an explicit bearer")
		assert.NotContains(t, bearer, elevated)
		assert.True(t, tokens.IsVoterToken(bearer), "the bearer is voter scoped")
		for name, values := range h {
			for _, v := range values {
				assert.NotContains(t, v, elevated, "header %s leaks the operator credential", name)
			}
		}
	}
	assert.Equal(t, elevated, requestcontext.ElevatedCredential(ctx))
}
