// Package device identifies the browser profile behind a request.
//
// The profile cookie is the server-side stand-in for the browser's durable
// local storage: every voter-store key is namespaced by its value.
package device

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"safeballot/pkg/requestcontext"
)

// DefaultCookieName is the profile cookie used when none is configured.
const DefaultCookieName = "sb_profile"

const cookieMaxAge = 365 * 24 * time.Hour

// Config controls the profile cookie.
type Config struct {
	CookieName string
	Secure     bool
}

// Profile reads the profile cookie, minting a new profile ID when it is
// absent or malformed. The ID and a device label derived from the
// User-Agent are stored in the request context.
func Profile(cfg Config, logger *slog.Logger) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			profileID := ""
			if c, err := r.Cookie(name); err == nil {
				if _, perr := uuid.Parse(c.Value); perr == nil {
					profileID = c.Value
				}
			}
			if profileID == "" {
				profileID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    profileID,
					Path:     "/",
					MaxAge:   int(cookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				logger.DebugContext(ctx, "issued device profile",
					"request_id", requestcontext.RequestID(ctx),
				)
			}

			ctx = requestcontext.WithProfileID(ctx, profileID)
			ctx = requestcontext.WithDeviceLabel(ctx, Label(r.UserAgent()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Label renders a short human label for a User-Agent string,
// e.g. "Firefox on Linux" or "Safari on iPhone OS (mobile)".
func Label(userAgent string) string {
	if userAgent == "" {
		return "unknown device"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	label := browser
	os := ua.OSInfo().Name
	if os == "" {
		os = ua.OS()
	}
	if os != "" {
		label += " on " + os
	}
	if ua.Mobile() {
		label += " (mobile)"
	}
	return label
}
