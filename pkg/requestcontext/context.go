// Package requestcontext carries request-scoped values from middleware to
// services without services importing net/http.
//
// Middleware writes with the With* functions; services and handlers read
// with the matching accessor. Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithProfileID(ctx, "profile-1")
package requestcontext

import (
	"context"
	"time"
)

type key int

const (
	keyProfileID key = iota
	keyDeviceLabel
	keyClientIP
	keyUserAgent
	keyRequestID
	keyRequestTime
	keyVoterToken
	keyElevatedCredential
)

func str(ctx context.Context, k key) string {
	v, _ := ctx.Value(k).(string)
	return v
}

// ProfileID is the device-profile cookie value that namespaces the voter's
// durable store.
func ProfileID(ctx context.Context) string { return str(ctx, keyProfileID) }

func WithProfileID(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, keyProfileID, profileID)
}

// DeviceLabel is a display label such as "Firefox on Linux".
func DeviceLabel(ctx context.Context) string { return str(ctx, keyDeviceLabel) }

func WithDeviceLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, keyDeviceLabel, label)
}

func ClientIP(ctx context.Context) string  { return str(ctx, keyClientIP) }
func UserAgent(ctx context.Context) string { return str(ctx, keyUserAgent) }

// WithClientMetadata sets both caller address and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, keyClientIP, clientIP)
	return context.WithValue(ctx, keyUserAgent, userAgent)
}

func RequestID(ctx context.Context) string { return str(ctx, keyRequestID) }

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// Now is the time the request arrived. Outside a request (sweepers, tests
// that never set it) it is the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(keyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, keyRequestTime, t)
}

// VoterToken is the voter-scoped bearer presented by the caller. Its
// presence marks a prior login for the verification flow.
func VoterToken(ctx context.Context) string { return str(ctx, keyVoterToken) }

func WithVoterToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyVoterToken, token)
}

// ElevatedCredential is an operator credential that arrived with the
// request. Outbound voter calls never read or forward it.
func ElevatedCredential(ctx context.Context) string { return str(ctx, keyElevatedCredential) }

func WithElevatedCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, keyElevatedCredential, credential)
}
