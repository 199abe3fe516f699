package api

import (
	"errors"
	"net/http"

	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/metrics"
	"github.com/calderhq/rosterd/internal/token"
)

// authenticator resolves the bearer credential for handlers and keeps
// the auth counters.
type authenticator struct {
	resolver *auth.Resolver
	metrics  *metrics.Metrics
}

// require resolves the request's bearer token. On failure the returned
// response is ready to send: 401 for the auth taxonomy, generic 500 for
// anything else (a persistence fault, not a bad credential).
func (a *authenticator) require(req *httpx.Request) (*auth.Context, httpx.Response, bool) {
	actx, err := a.resolver.Require(req.Context(), req)
	if err == nil {
		a.metrics.IncAuthSuccess()
		return actx, httpx.Response{}, true
	}

	message, reason := authFailure(err)
	if message == "" {
		return nil, internalError(err, "resolving access token"), false
	}
	a.metrics.IncAuthFailure(reason)
	return nil, httpx.Error(http.StatusUnauthorized, message), false
}

// authFailure maps resolver errors to a caller-facing message and a
// metrics label. Unknown errors map to ("", "") and become a 500.
func authFailure(err error) (message, reason string) {
	switch {
	case errors.Is(err, auth.ErrMissingAuthorization):
		return "Missing authorization", "missing_header"
	case errors.Is(err, token.ErrFormat):
		return "Invalid token format", "bad_format"
	case errors.Is(err, token.ErrSignature):
		return "Invalid token signature", "bad_signature"
	case errors.Is(err, auth.ErrTokenMissingValue):
		return "Token missing inner value", "bad_payload"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "Token revoked", "revoked"
	}
	return "", ""
}
