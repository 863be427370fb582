// Package admin guards operator-only debug routes.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "safeballot/pkg/domain-errors"
	"safeballot/pkg/platform/httputil"
	"safeballot/pkg/requestcontext"
)

// HeaderAdminToken carries the operator token for debug endpoints.
const HeaderAdminToken = "X-Admin-Token"

var errAdminToken = dErrors.New(dErrors.CodeUnauthorized, "admin token required")

// RequireAdminToken lets a request through only when its X-Admin-Token
// equals expected. With no expected token configured every request is
// refused.
func RequireAdminToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(HeaderAdminToken))
			if len(want) > 0 && subtle.ConstantTimeCompare(got, want) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger.WarnContext(ctx, "admin route refused",
				"request_id", requestcontext.RequestID(ctx),
				"client_ip", requestcontext.ClientIP(ctx),
				"token_present", len(got) > 0,
			)
			httputil.WriteError(w, errAdminToken)
		})
	}
}
