package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/calderhq/rosterd/internal/activity"
	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/notify"
	"github.com/calderhq/rosterd/internal/team"
)

// invitesHandler serves invite management for managers.
type invitesHandler struct {
	auth     *authenticator
	teams    *team.Store
	activity *activity.Logger
	mailer   *notify.Mailer
	baseURL  string
	ttl      time.Duration
}

func newInvitesHandler(a *authenticator, teams *team.Store, log *activity.Logger, mailer *notify.Mailer, baseURL string, ttl time.Duration) *invitesHandler {
	return &invitesHandler{
		auth:     a,
		teams:    teams,
		activity: log,
		mailer:   mailer,
		baseURL:  baseURL,
		ttl:      ttl,
	}
}

// List handles GET /teams/:team_id/invites.
func (h *invitesHandler) List(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	if _, err := actx.RequireRole(teamID, auth.RoleManager); err != nil {
		return forbidden(err)
	}

	invites, err := h.teams.ListInvites(req.Context(), teamID)
	if err != nil {
		return internalError(err, "listing invites")
	}
	return httpx.JSON(http.StatusOK, map[string]any{"invites": invites})
}

type createInviteInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Create handles POST /teams/:team_id/invites. A new invite for the
// same (team, email) silently replaces the prior one.
func (h *invitesHandler) Create(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	if _, err := actx.RequireRole(teamID, auth.RoleManager); err != nil {
		return forbidden(err)
	}

	var in createInviteInput
	if err := req.Decode(&in); err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid JSON payload")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return httpx.Error(http.StatusBadRequest, "Email required")
	}
	if in.Role == "" {
		in.Role = string(auth.RolePlayer)
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid role")
	}

	code, err := inviteCode()
	if err != nil {
		return internalError(err, "generating invite code")
	}
	expiresAt := time.Now().UTC().Add(h.ttl)

	invite, err := h.teams.ReplaceInvite(req.Context(), team.CreateInviteInput{
		TeamID:    teamID,
		Email:     email,
		Role:      role,
		Code:      code,
		CreatedBy: actx.ProfileID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return internalError(err, "creating invite")
	}

	h.activity.Log(req.Context(), teamID, actx.ProfileID, "created", "invite", invite.ID,
		map[string]any{"email": email, "role": role})

	teamName := fmt.Sprintf("team %d", teamID)
	if t, err := h.teams.GetTeam(req.Context(), teamID); err == nil && t != nil {
		teamName = t.Name
	}
	link := fmt.Sprintf("%s/accept?code=%s&team_id=%d&email=%s", h.baseURL, code, teamID, email)
	h.mailer.Send(
		fmt.Sprintf("Rosterd invite to join as %s", role),
		fmt.Sprintf("You've been invited to join %s. Use code %s or visit %s", teamName, code, link),
		[]string{email},
	)

	return httpx.JSON(http.StatusOK, map[string]any{
		"status":     "created",
		"code":       code,
		"expires_at": invite.ExpiresAt,
	})
}

// Revoke handles DELETE /teams/:team_id/invites/:invite_id.
func (h *invitesHandler) Revoke(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	inviteID, resp, ok := parseID(params, "invite_id")
	if !ok {
		return resp
	}
	if _, err := actx.RequireRole(teamID, auth.RoleManager); err != nil {
		return forbidden(err)
	}

	if err := h.teams.DeleteInvite(req.Context(), teamID, inviteID); err != nil {
		return internalError(err, "revoking invite")
	}
	h.activity.Log(req.Context(), teamID, actx.ProfileID, "revoked", "invite", inviteID, nil)
	return httpx.JSON(http.StatusOK, map[string]any{"status": "revoked"})
}

// inviteCode produces an 8-character URL-safe single-use code.
func inviteCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
