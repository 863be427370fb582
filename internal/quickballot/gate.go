// Package quickballot decides when a ballot lands on the frictionless path
// that skips verification and key checks.
package quickballot

import (
	"strings"

	"safeballot/internal/ballot"
)

// SentinelKey stands in for a digital key on quick ballots. It is never
// persisted.
const SentinelKey = "quick-auto-key"

// RoutePrefix is the server-owned mount for frictionless voting. The router
// serves it only when quick routes are enabled.
const RoutePrefix = "/quick/"

type Gate struct {
	pathPrefix string
}

// NewGate returns a gate that treats request paths under pathPrefix as
// quick routes. An empty prefix disables the path signal, leaving only the
// ballot's own quickBallot flag.
func NewGate(pathPrefix string) *Gate {
	return &Gate{pathPrefix: pathPrefix}
}

// ShouldBypassVerification reports whether verification and key
// confirmation are skipped for rec. requestPath must be the path the server
// routed, never a client-reported one.
func (g *Gate) ShouldBypassVerification(rec ballot.Record, requestPath string) bool {
	if rec.QuickBallot {
		return true
	}
	return g.pathPrefix != "" && strings.HasPrefix(requestPath, g.pathPrefix)
}

// KeyFor returns the key downstream code should carry: the sentinel when
// bypassed, otherwise stored.
func (g *Gate) KeyFor(bypass bool, stored string) string {
	if bypass {
		return SentinelKey
	}
	return stored
}
