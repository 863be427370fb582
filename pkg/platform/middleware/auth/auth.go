// Package auth sorts the credentials that arrive with a voter request into
// the voter-scoped token and any elevated (administrator) credential. It
// never rejects a request: voter routes are public.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"safeballot/pkg/platform/middleware/admin"
	request "safeballot/pkg/platform/middleware/request"
	"safeballot/pkg/requestcontext"
)

const HeaderVoterToken = "X-Voter-Token"

// VoterTokenValidator recognizes voter-scoped tokens minted by this service.
type VoterTokenValidator interface {
	IsVoterToken(token string) bool
}

func Credentials(validator VoterTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			bearer, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			bearer = strings.TrimSpace(bearer)
			voter := strings.TrimSpace(r.Header.Get(HeaderVoterToken))

			isVoter := func(tok string) bool {
				return tok != "" && validator != nil && validator.IsVoterToken(tok)
			}

			switch {
			case isVoter(voter):
				ctx = requestcontext.WithVoterToken(ctx, voter)
			case voter != "":
				logger.WarnContext(ctx, "ignoring invalid voter token",
					"request_id", request.GetRequestID(ctx),
				)
			}

			if bearer != "" {
				if isVoter(bearer) {
					if requestcontext.VoterToken(ctx) == "" {
						ctx = requestcontext.WithVoterToken(ctx, bearer)
					}
				} else {
					ctx = requestcontext.WithElevatedCredential(ctx, bearer)
				}
			}
			if tok := r.Header.Get(admin.HeaderAdminToken); tok != "" && requestcontext.ElevatedCredential(ctx) == "" {
				ctx = requestcontext.WithElevatedCredential(ctx, tok)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
