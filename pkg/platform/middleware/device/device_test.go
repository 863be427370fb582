package device

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeballot/pkg/requestcontext"
)

const firefoxLinux = "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0"

func TestProfileMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var gotID, gotLabel string
	h := Profile(Config{}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = requestcontext.ProfileID(r.Context())
		gotLabel = requestcontext.DeviceLabel(r.Context())
	}))

	t.Run("mints cookie for new visitor", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("User-Agent", firefoxLinux)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, DefaultCookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, cookies[0].Value, gotID)
		assert.Contains(t, gotLabel, "Firefox")
	})

	t.Run("reuses existing cookie", func(t *testing.T) {
		existing := uuid.NewString()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: existing})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, existing, gotID)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("replaces malformed cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "../../etc"})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.NotEqual(t, "../../etc", gotID)
		_, err := uuid.Parse(gotID)
		assert.NoError(t, err)
	})
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "unknown device", Label(""))
	assert.Equal(t, "bot", Label("Googlebot/2.1 (+http://www.google.com/bot.html)"))
	assert.Contains(t, Label(firefoxLinux), "Linux")
}
