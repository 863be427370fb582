package votertoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "safeballot/pkg/domain-errors"
)

func newService(t *testing.T, now func() time.Time) *Service {
	t.Helper()
	svc, err := New("test-signing-key", "safeballot-test", time.Minute, WithClock(now))
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresSigningKey(t *testing.T) {
	_, err := New("", "issuer", time.Minute)
	assert.Error(t, err)
}

func TestMintAndValidate(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(t, func() time.Time { return now })

	t.Run("email subject and ballot audience", func(t *testing.T) {
		token, err := svc.Mint("profile-1", "ada@example.org", "ballot-1")
		require.NoError(t, err)

		claims, err := svc.Validate(token, "ballot-1")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.org", claims.Subject)
		assert.Equal(t, "profile-1", claims.ProfileID)
		assert.Equal(t, jwt.ClaimStrings{"ballot-1"}, claims.Audience)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("subject falls back to the profile", func(t *testing.T) {
		token, err := svc.Mint("profile-1", "", "ballot-1")
		require.NoError(t, err)

		claims, err := svc.Validate(token, "")
		require.NoError(t, err)
		assert.Equal(t, "profile-1", claims.Subject)
	})

	t.Run("wrong ballot is rejected", func(t *testing.T) {
		token, err := svc.Mint("profile-1", "", "ballot-1")
		require.NoError(t, err)

		_, err = svc.Validate(token, "ballot-2")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestValidate_Expired(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	svc := newService(t, func() time.Time { return clock })

	token, err := svc.Mint("profile-1", "", "ballot-1")
	require.NoError(t, err)

	clock = now.Add(2 * time.Minute)
	_, err = svc.Validate(token, "ballot-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidate_ForeignKeyRejected(t *testing.T) {
	other, err := New("another-key", "safeballot-test", time.Minute)
	require.NoError(t, err)
	token, err := other.Mint("profile-1", "", "ballot-1")
	require.NoError(t, err)

	svc := newService(t, time.Now)
	_, err = svc.Validate(token, "ballot-1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidate_Garbage(t *testing.T) {
	svc := newService(t, time.Now)
	_, err := svc.Validate("not-a-token", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestIsVoterToken(t *testing.T) {
	svc := newService(t, time.Now)
	token, err := svc.Mint("profile-1", "", "ballot-1")
	require.NoError(t, err)

	assert.True(t, svc.IsVoterToken(token))
	assert.False(t, svc.IsVoterToken("admin-session"))
}

func TestValidateFor(t *testing.T) {
	svc := newService(t, time.Now)
	token, err := svc.Mint("profile-1", "ada@example.org", "ballot-1")
	require.NoError(t, err)

	tests := map[string]struct {
		profileID string
		ballotID  string
		wantErr   bool
	}{
		"same profile and ballot": {profileID: "profile-1", ballotID: "ballot-1"},
		"another profile":         {profileID: "profile-2", ballotID: "ballot-1", wantErr: true},
		"another ballot":          {profileID: "profile-1", ballotID: "ballot-2", wantErr: true},
		"ballot omitted":          {profileID: "profile-1", ballotID: "", wantErr: true},
		"profile omitted":         {profileID: "", ballotID: "ballot-1", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			claims, err := svc.ValidateFor(token, tc.profileID, tc.ballotID)
			if tc.wantErr {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ada@example.org", claims.Subject)
		})
	}
}
