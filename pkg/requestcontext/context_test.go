package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessorsDefaultToZero(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ProfileID(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, VoterToken(ctx))
	assert.Empty(t, ElevatedCredential(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessorsRoundTrip(t *testing.T) {
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	ctx := WithProfileID(context.Background(), "p-1")
	ctx = WithRequestID(ctx, "r-1")
	ctx = WithTime(ctx, fixed)
	ctx = WithVoterToken(ctx, "voter-jwt")
	ctx = WithElevatedCredential(ctx, "admin-token")
	ctx = WithClientMetadata(ctx, "10.0.0.1", "curl/8")
	ctx = WithDeviceLabel(ctx, "Firefox on Linux")

	assert.Equal(t, "p-1", ProfileID(ctx))
	assert.Equal(t, "r-1", RequestID(ctx))
	assert.Equal(t, fixed, Now(ctx))
	assert.Equal(t, "voter-jwt", VoterToken(ctx))
	assert.Equal(t, "admin-token", ElevatedCredential(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "curl/8", UserAgent(ctx))
	assert.Equal(t, "Firefox on Linux", DeviceLabel(ctx))
}
