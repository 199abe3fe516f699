package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/httpx"
)

// internalError logs the fault with full detail and returns the generic
// 500; no internal detail leaks into the response body.
func internalError(err error, context string) httpx.Response {
	slog.Error(context, "error", err)
	return httpx.Error(http.StatusInternalServerError, "Server error")
}

// forbidden converts an RBAC failure into a 403. No-membership and
// insufficient-role stay distinguishable upstream of this conversion.
func forbidden(err error) httpx.Response {
	message := "Insufficient permissions"
	if errors.Is(err, auth.ErrNoMembership) {
		message = "You do not have access to this team"
	}
	return httpx.Error(http.StatusForbidden, message)
}

// parseID reads a numeric path parameter. A non-numeric value is a
// malformed request, not a missing resource.
func parseID(params httpx.Params, name string) (int64, httpx.Response, bool) {
	id, err := strconv.ParseInt(params[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.Error(http.StatusBadRequest, "Invalid "+name), false
	}
	return id, httpx.Response{}, true
}
