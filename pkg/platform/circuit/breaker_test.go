package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step is one recorded outcome and the position expected after it.
type step struct {
	ok       bool
	wantOpen bool
	opened   bool
	closed   bool
}

func TestBreakerTransitions(t *testing.T) {
	cases := map[string]struct {
		opts  []Option
		steps []step
	}{
		"opens on the third consecutive failure": {
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{ok: false},
				{ok: false},
				{ok: false, wantOpen: true, opened: true},
				{ok: false, wantOpen: true},
			},
		},
		"a success in between restarts the failure run": {
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{ok: false},
				{ok: false},
				{ok: true},
				{ok: false},
				{ok: false},
				{ok: false, wantOpen: true, opened: true},
			},
		},
		"closes after enough successes while open": {
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{ok: false, wantOpen: true, opened: true},
				{ok: true, wantOpen: true},
				{ok: true, closed: true},
			},
		},
		"a failure while open restarts the success run": {
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{ok: false, wantOpen: true, opened: true},
				{ok: true, wantOpen: true},
				{ok: false, wantOpen: true},
				{ok: true, wantOpen: true},
				{ok: true, closed: true},
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b := New("ballot-service", tc.opts...)
			for i, s := range tc.steps {
				var change StateChange
				if s.ok {
					_, change = b.RecordSuccess()
				} else {
					_, change = b.RecordFailure()
				}
				require.Equal(t, s.wantOpen, b.IsOpen(), "after step %d", i)
				assert.Equal(t, s.opened, change.Opened, "opened at step %d", i)
				assert.Equal(t, s.closed, change.Closed, "closed at step %d", i)
			}
		})
	}
}

func TestBreakerReturnValues(t *testing.T) {
	b := New("ballot-service", WithFailureThreshold(1))
	assert.Equal(t, "ballot-service", b.Name())
	assert.Equal(t, "closed", b.State().String())

	useFallback, _ := b.RecordFailure()
	assert.True(t, useFallback)
	assert.Equal(t, "open", b.State().String())

	usePrimary, _ := b.RecordSuccess()
	assert.False(t, usePrimary, "default success threshold is above one")

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	usePrimary, _ = b.RecordSuccess()
	assert.True(t, usePrimary)
}

func TestBreakerAdmitsOneTrialPerInterval(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := New("ballot-service",
		WithFailureThreshold(1),
		WithTrialInterval(10*time.Second),
		WithClock(func() time.Time { return now }),
	)

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(9 * time.Second)
	assert.False(t, b.Allow())

	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())
}
