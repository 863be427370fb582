package admin

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeballot/pkg/platform/httputil"
	"safeballot/pkg/testutil"
)

func TestRequireAdminToken(t *testing.T) {
	reached := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	cases := map[string]struct {
		configured string
		sent       string
		status     int
	}{
		"operator token accepted":        {configured: "s3cret", sent: "s3cret", status: http.StatusNoContent},
		"wrong token refused":            {configured: "s3cret", sent: "s3cre", status: http.StatusUnauthorized},
		"absent token refused":           {configured: "s3cret", status: http.StatusUnauthorized},
		"unconfigured guard refuses all": {status: http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var logs bytes.Buffer
			guard := RequireAdminToken(tc.configured, slog.New(slog.NewTextHandler(&logs, nil)))

			r := httptest.NewRequest(http.MethodDelete, "/profiles/p1/ballots/b1/status", nil)
			if tc.sent != "" {
				r.Header.Set(HeaderAdminToken, tc.sent)
			}
			rr := httptest.NewRecorder()
			guard(reached).ServeHTTP(rr, r)

			require.Equal(t, tc.status, rr.Code)
			if tc.status != http.StatusUnauthorized {
				assert.Empty(t, logs.String())
				return
			}
			body := testutil.UnmarshalResponse[httputil.ErrorResponse](t, rr)
			assert.Equal(t, "unauthorized", body.Error)
			assert.NotContains(t, logs.String(), "s3cret")
		})
	}
}
