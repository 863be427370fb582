// Package votertoken mints and validates the short-lived voter-scoped bearer
// credential used for vote submission. It is never derived from an
// administrator session.
package votertoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "safeballot/pkg/domain-errors"
)

const DefaultTTL = 15 * time.Minute

// Claims are the voter token claims. Subject is the voter email when known,
// otherwise the device-profile ID. Audience is the ballot ID.
type Claims struct {
	ProfileID string `json:"profile_id"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

const scopeVoter = "voter"

type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(signingKey, issuer string, ttl time.Duration, opts ...Option) (*Service, error) {
	if signingKey == "" {
		return nil, errors.New("signing key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Mint issues a token for one profile and one ballot.
func (s *Service) Mint(profileID, subject, ballotID string) (string, error) {
	if subject == "" {
		subject = profileID
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ProfileID: profileID,
		Scope:     scopeVoter,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  []string{ballotID},
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign voter token")
	}
	return signed, nil
}

// Validate parses a voter token. An empty ballotID skips the audience check.
func (s *Service) Validate(tokenString, ballotID string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if ballotID != "" {
		opts = append(opts, jwt.WithAudience(ballotID))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "voter token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid voter token")
	}
	if !parsed.Valid || claims.Scope != scopeVoter {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid voter token")
	}
	return claims, nil
}

// ValidateFor accepts token only when it was minted for profileID and
// ballotID. A token for another device or another ballot is rejected.
func (s *Service) ValidateFor(token, profileID, ballotID string) (*Claims, error) {
	if profileID == "" || ballotID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "voter token scope is required")
	}
	claims, err := s.Validate(token, ballotID)
	if err != nil {
		return nil, err
	}
	if claims.ProfileID != profileID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "voter token belongs to another profile")
	}
	return claims, nil
}

// IsVoterToken reports whether token is a valid voter token for any ballot.
func (s *Service) IsVoterToken(token string) bool {
	_, err := s.Validate(token, "")
	return err == nil
}
