package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/calderhq/rosterd/internal/activity"
	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/notify"
	"github.com/calderhq/rosterd/internal/schedule"
	"github.com/calderhq/rosterd/internal/team"
)

// sessionsHandler serves schedulable sessions. Reads are open to any
// member; writes are manager-only and gated by the lock evaluator.
type sessionsHandler struct {
	auth            *authenticator
	schedule        *schedule.Store
	teams           *team.Store
	activity        *activity.Logger
	mailer          *notify.Mailer
	defaultAutoLock int
}

func newSessionsHandler(a *authenticator, sched *schedule.Store, teams *team.Store, log *activity.Logger, mailer *notify.Mailer, defaultAutoLock int) *sessionsHandler {
	return &sessionsHandler{
		auth:            a,
		schedule:        sched,
		teams:           teams,
		activity:        log,
		mailer:          mailer,
		defaultAutoLock: defaultAutoLock,
	}
}

// sessionView annotates a session with its computed effective lock.
type sessionView struct {
	*schedule.Session
	EffectivelyLocked bool `json:"is_effectively_locked"`
}

// List handles GET /teams/:team_id/sessions.
func (h *sessionsHandler) List(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	if _, err := actx.TeamAccess(teamID); err != nil {
		return forbidden(err)
	}

	sessions, err := h.schedule.ListSessions(req.Context(), teamID)
	if err != nil {
		return internalError(err, "listing sessions")
	}
	now := time.Now()
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{Session: s, EffectivelyLocked: s.EffectiveLocked(now)})
	}
	return httpx.JSON(http.StatusOK, map[string]any{"sessions": views})
}

// Get handles GET /teams/:team_id/sessions/:session_id.
func (h *sessionsHandler) Get(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	sessionID, resp, ok := parseID(params, "session_id")
	if !ok {
		return resp
	}
	if _, err := actx.TeamAccess(teamID); err != nil {
		return forbidden(err)
	}

	sess, err := h.schedule.GetSession(req.Context(), teamID, sessionID)
	if err != nil {
		return internalError(err, "getting session")
	}
	if sess == nil {
		return httpx.Error(http.StatusNotFound, "Session not found")
	}
	return httpx.JSON(http.StatusOK, sessionView{Session: sess, EffectivelyLocked: sess.EffectiveLocked(time.Now())})
}

type sessionInput struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Location        *string `json:"location"`
	StartAt         *string `json:"start_at"`
	EndAt           *string `json:"end_at"`
	IsLocked        *bool   `json:"is_locked"`
	AutoLockMinutes *int    `json:"auto_lock_minutes"`
}

// Create handles POST /teams/:team_id/sessions.
func (h *sessionsHandler) Create(req *httpx.Request, params httpx.Params) httpx.Response {
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

	var in sessionInput
	if err := req.Decode(&in); err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid JSON payload")
	}

	var missing []string
	if in.Title == nil || *in.Title == "" {
		missing = append(missing, "title")
	}
	if in.StartAt == nil || *in.StartAt == "" {
		missing = append(missing, "start_at")
	}
	if in.EndAt == nil || *in.EndAt == "" {
		missing = append(missing, "end_at")
	}
	if len(missing) > 0 {
		return httpx.Error(http.StatusBadRequest, "Missing fields: "+strings.Join(missing, ", "))
	}

	startAt, err := time.Parse(time.RFC3339, *in.StartAt)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid datetime format")
	}
	endAt, err := time.Parse(time.RFC3339, *in.EndAt)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid datetime format")
	}

	autoLock := in.AutoLockMinutes
	if autoLock == nil && h.defaultAutoLock > 0 {
		minutes := h.defaultAutoLock
		autoLock = &minutes
	}

	create := schedule.CreateSessionInput{
		TeamID:          teamID,
		Title:           *in.Title,
		Description:     in.Description,
		Location:        in.Location,
		StartAt:         startAt,
		EndAt:           endAt,
		AutoLockMinutes: autoLock,
		CreatedBy:       actx.ProfileID,
	}
	if in.IsLocked != nil {
		create.IsLocked = *in.IsLocked
	}

	sessionID, err := h.schedule.CreateSession(req.Context(), create)
	if err != nil {
		return internalError(err, "creating session")
	}

	h.activity.Log(req.Context(), teamID, actx.ProfileID, "created", "session", sessionID,
		map[string]any{"title": create.Title})
	h.notifyTeam(req, teamID, "New session scheduled",
		fmt.Sprintf("A session titled %s was scheduled.", create.Title))

	return httpx.JSON(http.StatusCreated, map[string]any{"session_id": sessionID})
}

// Update handles PUT /teams/:team_id/sessions/:session_id. A Locked
// session refuses all further mutation; nothing ever clears the
// explicit flag.
func (h *sessionsHandler) Update(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	sessionID, resp, ok := parseID(params, "session_id")
	if !ok {
		return resp
	}
	if _, err := actx.RequireRole(teamID, auth.RoleManager); err != nil {
		return forbidden(err)
	}

	sess, err := h.schedule.GetSession(req.Context(), teamID, sessionID)
	if err != nil {
		return internalError(err, "getting session")
	}
	if sess == nil {
		return httpx.Error(http.StatusNotFound, "Session not found")
	}
	if sess.EffectiveLocked(time.Now()) {
		h.auth.metrics.IncLockRefusal("locked_session")
		return httpx.Error(http.StatusForbidden, "Session is locked")
	}

	var in sessionInput
	if err := req.Decode(&in); err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid JSON payload")
	}

	update := schedule.UpdateSessionInput{
		Title:           in.Title,
		Description:     in.Description,
		Location:        in.Location,
		IsLocked:        in.IsLocked,
		AutoLockMinutes: in.AutoLockMinutes,
	}
	if in.StartAt != nil {
		startAt, err := time.Parse(time.RFC3339, *in.StartAt)
		if err != nil {
			return httpx.Error(http.StatusBadRequest, "Invalid datetime for start_at")
		}
		update.StartAt = &startAt
	}
	if in.EndAt != nil {
		endAt, err := time.Parse(time.RFC3339, *in.EndAt)
		if err != nil {
			return httpx.Error(http.StatusBadRequest, "Invalid datetime for end_at")
		}
		update.EndAt = &endAt
	}
	if update.Empty() {
		return httpx.JSON(http.StatusOK, map[string]any{"status": "no_changes"})
	}

	updated, err := h.schedule.UpdateSession(req.Context(), teamID, sessionID, update)
	if err != nil {
		return internalError(err, "updating session")
	}
	if !updated {
		return httpx.Error(http.StatusNotFound, "Session not found")
	}
	h.activity.Log(req.Context(), teamID, actx.ProfileID, "updated", "session", sessionID, updatedFields(update))
	return httpx.JSON(http.StatusOK, map[string]any{"status": "updated"})
}

// Delete handles DELETE /teams/:team_id/sessions/:session_id.
func (h *sessionsHandler) Delete(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	sessionID, resp, ok := parseID(params, "session_id")
	if !ok {
		return resp
	}
	if _, err := actx.RequireRole(teamID, auth.RoleManager); err != nil {
		return forbidden(err)
	}

	sess, err := h.schedule.GetSession(req.Context(), teamID, sessionID)
	if err != nil {
		return internalError(err, "getting session")
	}
	if sess == nil {
		return httpx.Error(http.StatusNotFound, "Session not found")
	}
	if sess.EffectiveLocked(time.Now()) {
		h.auth.metrics.IncLockRefusal("locked_session")
		return httpx.Error(http.StatusForbidden, "Session is locked")
	}

	if err := h.schedule.DeleteSession(req.Context(), teamID, sessionID); err != nil {
		return internalError(err, "deleting session")
	}
	h.activity.Log(req.Context(), teamID, actx.ProfileID, "deleted", "session", sessionID,
		map[string]any{"title": sess.Title})
	return httpx.JSON(http.StatusOK, map[string]any{"status": "deleted"})
}

func (h *sessionsHandler) notifyTeam(req *httpx.Request, teamID int64, subject, body string) {
	emails, err := h.teams.MemberEmails(req.Context(), teamID, nil)
	if err != nil {
		slog.Error("listing member emails for notification", "error", err, "team_id", teamID)
		return
	}
	h.mailer.Send(subject, body, emails)
}

func updatedFields(in schedule.UpdateSessionInput) map[string]any {
	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Location != nil {
		fields["location"] = *in.Location
	}
	if in.StartAt != nil {
		fields["start_at"] = in.StartAt.Format(time.RFC3339)
	}
	if in.EndAt != nil {
		fields["end_at"] = in.EndAt.Format(time.RFC3339)
	}
	if in.IsLocked != nil {
		fields["is_locked"] = *in.IsLocked
	}
	if in.AutoLockMinutes != nil {
		fields["auto_lock_minutes"] = *in.AutoLockMinutes
	}
	return fields
}
