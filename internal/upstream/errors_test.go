package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		category  Category
		retryable bool
	}{
		{http.StatusForbidden, CategoryEligibility, false},
		{http.StatusUnauthorized, CategoryUnauthorized, false},
		{http.StatusNotFound, CategoryNotFound, false},
		{http.StatusGatewayTimeout, CategoryTimeout, true},
		{http.StatusBadGateway, CategoryOutage, true},
		{http.StatusInternalServerError, CategoryOutage, true},
		{http.StatusBadRequest, CategoryBadData, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus("ballots", tt.status, "")
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.status, err.Status)
			assert.Empty(t, err.Message, "no server message is invented")
			assert.Contains(t, err.Error(), http.StatusText(tt.status))
		})
	}
}

func TestFromStatusKeepsServerMessage(t *testing.T) {
	err := FromStatus("ballots", http.StatusForbidden, "You are not on the voter roll for this ballot")
	assert.Equal(t, "You are not on the voter roll for this ballot", Message(fmt.Errorf("cast: %w", err)))
}

func TestFromTransport(t *testing.T) {
	assert.Equal(t, CategoryTimeout, FromTransport("auth", fmt.Errorf("dial: %w", context.DeadlineExceeded)).Category)
	assert.Equal(t, CategoryOutage, FromTransport("auth", errors.New("connection refused")).Category)
}

func TestIsAuthorizationRejection(t *testing.T) {
	assert.True(t, IsAuthorizationRejection(FromStatus("b", http.StatusForbidden, "")))
	assert.True(t, IsAuthorizationRejection(fmt.Errorf("wrapped: %w", FromStatus("b", http.StatusUnauthorized, ""))))
	assert.False(t, IsAuthorizationRejection(FromStatus("b", http.StatusServiceUnavailable, "")))
	assert.False(t, IsAuthorizationRejection(errors.New("plain")))
	assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, Status(fmt.Errorf("post: %w", FromStatus("ballots", http.StatusConflict, ""))))
	assert.Zero(t, Status(FromTransport("ballots", errors.New("connection refused"))))
	assert.Zero(t, Status(errors.New("plain")))
}
