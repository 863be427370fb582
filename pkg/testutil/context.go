package testutil

import (
	"net/http"

	"safeballot/pkg/requestcontext"
)

// WithProfile puts a device profile on the request, as the device middleware
// would for a browser carrying the profile cookie.
func WithProfile(req *http.Request, profileID string) *http.Request {
	return req.WithContext(requestcontext.WithProfileID(req.Context(), profileID))
}

// WithVoterToken marks the request as carrying a validated voter token.
func WithVoterToken(req *http.Request, token string) *http.Request {
	return req.WithContext(requestcontext.WithVoterToken(req.Context(), token))
}

// WithElevatedCredential simulates an operator session in the same browser.
func WithElevatedCredential(req *http.Request, credential string) *http.Request {
	return req.WithContext(requestcontext.WithElevatedCredential(req.Context(), credential))
}
