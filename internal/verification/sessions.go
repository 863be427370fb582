package verification

import (
	"sync"
	"time"
)

const DefaultSessionTTL = 30 * time.Minute

// session is one in-progress verification. mu serializes step handling
// for the same (profile, ballot).
type session struct {
	mu sync.Mutex

	variant  Variant
	state    State
	voter    VoterDetails
	identity *IdentityRecord
	view     View
	touched  time.Time
}

// sessionStore holds in-progress flows in process memory. Sessions are not
// durable: a restart sends voters back to the first step unless they had
// already reached Verified.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessionStore{ttl: ttl, sessions: make(map[string]*session)}
}

func sessionKey(profileID, ballotID string) string {
	return profileID + "|" + ballotID
}

func (s *sessionStore) get(profileID, ballotID string, now time.Time) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(profileID, ballotID)
	sess, ok := s.sessions[key]
	if !ok {
		return nil
	}
	if now.Sub(sess.touched) > s.ttl {
		delete(s.sessions, key)
		return nil
	}
	return sess
}

// getOrCreate returns the live session, or stores the one built by create.
func (s *sessionStore) getOrCreate(profileID, ballotID string, now time.Time, create func() *session) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(profileID, ballotID)
	if sess, ok := s.sessions[key]; ok && now.Sub(sess.touched) <= s.ttl {
		return sess, false
	}
	sess := create()
	sess.touched = now
	s.sessions[key] = sess
	return sess, true
}

func (s *sessionStore) delete(profileID, ballotID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(profileID, ballotID))
}

// sweep drops expired sessions.
func (s *sessionStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, sess := range s.sessions {
		if now.Sub(sess.touched) > s.ttl {
			delete(s.sessions, key)
			n++
		}
	}
	return n
}
