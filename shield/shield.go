// CLAUDE:SUMMARY HTTP hardening middleware for the capture API: headers, body cap, HEAD handling, per-client rate limit.
// Package shield provides the HTTP middleware placed in front of the
// canvascap API.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.APIStack(64 << 10) {
//	    r.Use(mw)
//	}
//	rl := shield.NewRateLimiter(6, time.Minute)
//	r.With(rl.Middleware).Post("/captures", capture)
package shield

import "net/http"

// APIStack returns the middleware applied to every API route, in order:
// HeadToGet → SecurityHeaders → MaxBody.
func APIStack(maxBody int64) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(APIHeaders()),
		MaxBody(maxBody),
	}
}
