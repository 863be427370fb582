package quickballot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"safeballot/internal/ballot"
)

func TestShouldBypassVerification(t *testing.T) {
	quick := ballot.Record{ID: "b1", QuickBallot: true}
	standard := ballot.Record{ID: "b2"}

	tests := []struct {
		name   string
		prefix string
		rec    ballot.Record
		path   string
		want   bool
	}{
		{"quick flag", "", quick, "/v1/ballots/b1/votes", true},
		{"quick flag on quick mount", RoutePrefix, quick, "/quick/ballots/b1/votes", true},
		{"quick mount", RoutePrefix, standard, "/quick/ballots/b2/votes", true},
		{"standard route", RoutePrefix, standard, "/v1/ballots/b2/votes", false},
		{"voting page path is not a quick route", RoutePrefix, standard, "/vote/b2/mayor-b2", false},
		{"prefix must lead", RoutePrefix, standard, "/v1/quick/ballots/b2", false},
		{"mount disabled", "", standard, "/quick/ballots/b2/votes", false},
		{"empty path", RoutePrefix, standard, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.prefix)
			assert.Equal(t, tt.want, gate.ShouldBypassVerification(tt.rec, tt.path))
		})
	}
}

func TestKeyFor(t *testing.T) {
	gate := NewGate("")
	assert.Equal(t, SentinelKey, gate.KeyFor(true, "REAL"))
	assert.Equal(t, "REAL", gate.KeyFor(false, "REAL"))
	assert.Equal(t, "", gate.KeyFor(false, ""))
}
