package api

import (
	"net/http"

	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/team"
)

// teamsHandler serves team listings and member management.
type teamsHandler struct {
	auth  *authenticator
	teams *team.Store
}

func newTeamsHandler(a *authenticator, teams *team.Store) *teamsHandler {
	return &teamsHandler{auth: a, teams: teams}
}

// ListTeams handles GET /teams: the caller's teams with roles plus
// their resolved identity.
func (h *teamsHandler) ListTeams(req *httpx.Request, _ httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}

	teams := make([]map[string]any, 0, len(actx.Teams))
	for _, t := range actx.Teams {
		teams = append(teams, map[string]any{
			"team_id": t.TeamID,
			"name":    t.Name,
			"role":    t.Role,
		})
	}
	return httpx.JSON(http.StatusOK, map[string]any{
		"teams":        teams,
		"profile_id":   actx.ProfileID,
		"email":        actx.Email,
		"display_name": actx.DisplayName,
	})
}

// ListMembers handles GET /teams/:team_id/members.
func (h *teamsHandler) ListMembers(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	role, err := actx.TeamAccess(teamID)
	if err != nil {
		return forbidden(err)
	}

	members, err := h.teams.ListMembers(req.Context(), teamID)
	if err != nil {
		return internalError(err, "listing members")
	}
	return httpx.JSON(http.StatusOK, map[string]any{"members": members, "role": role})
}

type updateMemberInput struct {
	Role string `json:"role"`
}

// UpdateMember handles PATCH /teams/:team_id/members/:member_id. Role
// changes are manager-only; a member never escalates their own role.
func (h *teamsHandler) UpdateMember(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	memberID, resp, ok := parseID(params, "member_id")
	if !ok {
		return resp
	}
	if _, err := actx.RequireRole(teamID, auth.RoleManager); err != nil {
		return forbidden(err)
	}

	var in updateMemberInput
	if err := req.Decode(&in); err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid JSON payload")
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid role")
	}

	updated, err := h.teams.UpdateMemberRole(req.Context(), teamID, memberID, role)
	if err != nil {
		return internalError(err, "updating member role")
	}
	if !updated {
		return httpx.Error(http.StatusNotFound, "Member not found")
	}
	return httpx.JSON(http.StatusOK, map[string]any{"status": "updated"})
}

// DeleteMember handles DELETE /teams/:team_id/members/:member_id.
func (h *teamsHandler) DeleteMember(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	memberID, resp, ok := parseID(params, "member_id")
	if !ok {
		return resp
	}
	if _, err := actx.RequireRole(teamID, auth.RoleManager); err != nil {
		return forbidden(err)
	}

	if err := h.teams.DeleteMember(req.Context(), teamID, memberID); err != nil {
		return internalError(err, "deleting member")
	}
	return httpx.JSON(http.StatusOK, map[string]any{"status": "removed"})
}
