package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/notify"
	"github.com/calderhq/rosterd/internal/schedule"
)

// attendanceStore is the session and RSVP surface the handler needs.
// *schedule.Store implements it.
type attendanceStore interface {
	GetSession(ctx context.Context, teamID, sessionID int64) (*schedule.Session, error)
	ListRSVPs(ctx context.Context, teamID, sessionID int64) ([]schedule.RSVP, error)
	UpsertRSVP(ctx context.Context, sessionID, profileID int64, status schedule.RSVPStatus, note string) (bool, error)
	DeleteRSVP(ctx context.Context, sessionID, profileID int64) error
}

// memberDirectory resolves notification recipients. *team.Store
// implements it.
type memberDirectory interface {
	MemberEmails(ctx context.Context, teamID int64, role *auth.Role) ([]string, error)
}

// auditLog records team-scoped mutations. *activity.Logger implements it.
type auditLog interface {
	Log(ctx context.Context, teamID, profileID int64, action, entityType string, entityID int64, payload map[string]any)
}

// rsvpsHandler serves attendance responses on a session. Members write
// their own response; managers may write or remove anyone's.
type rsvpsHandler struct {
	auth     *authenticator
	schedule attendanceStore
	teams    memberDirectory
	activity auditLog
	mailer   *notify.Mailer
}

func newRSVPsHandler(a *authenticator, sched attendanceStore, teams memberDirectory, log auditLog, mailer *notify.Mailer) *rsvpsHandler {
	return &rsvpsHandler{auth: a, schedule: sched, teams: teams, activity: log, mailer: mailer}
}

// List handles GET /teams/:team_id/sessions/:session_id/rsvps.
func (h *rsvpsHandler) List(req *httpx.Request, params httpx.Params) httpx.Response {
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

	rsvps, err := h.schedule.ListRSVPs(req.Context(), teamID, sessionID)
	if err != nil {
		return internalError(err, "listing rsvps")
	}
	return httpx.JSON(http.StatusOK, map[string]any{
		"rsvps":     rsvps,
		"is_locked": sess.EffectiveLocked(time.Now()),
	})
}

type rsvpInput struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// UpsertSelf handles PUT /teams/:team_id/sessions/:session_id/rsvps/self.
func (h *rsvpsHandler) UpsertSelf(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	return h.upsert(req, params, actx, 0)
}

// Upsert handles PUT /teams/:team_id/sessions/:session_id/rsvps/:profile_id.
func (h *rsvpsHandler) Upsert(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	profileID, resp, ok := parseID(params, "profile_id")
	if !ok {
		return resp
	}
	return h.upsert(req, params, actx, profileID)
}

// upsert writes one attendance response. A zero target means the
// caller's own response.
func (h *rsvpsHandler) upsert(req *httpx.Request, params httpx.Params, actx *auth.Context, target int64) httpx.Response {
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	sessionID, resp, ok := parseID(params, "session_id")
	if !ok {
		return resp
	}
	role, err := actx.TeamAccess(teamID)
	if err != nil {
		return forbidden(err)
	}
	if target == 0 {
		target = actx.ProfileID
	}
	if target != actx.ProfileID && role != auth.RoleManager {
		return httpx.Error(http.StatusForbidden, "Managers may update other RSVPs only")
	}

	sess, err := h.schedule.GetSession(req.Context(), teamID, sessionID)
	if err != nil {
		return internalError(err, "getting session")
	}
	if sess == nil {
		return httpx.Error(http.StatusNotFound, "Session not found")
	}
	if resp, open := h.requireWindowOpen(sess); !open {
		return resp
	}

	var in rsvpInput
	if err := req.Decode(&in); err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid JSON payload")
	}
	status, err := schedule.ParseRSVPStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid status")
	}

	created, err := h.schedule.UpsertRSVP(req.Context(), sessionID, target, status, strings.TrimSpace(in.Note))
	if err != nil {
		return internalError(err, "upserting rsvp")
	}
	action := "updated"
	if created {
		action = "created"
	}

	h.activity.Log(req.Context(), teamID, actx.ProfileID, action, "rsvp", sessionID,
		map[string]any{"profile_id": target, "status": string(status)})
	h.notifyManagers(req, teamID, "RSVP "+action,
		fmt.Sprintf("An RSVP for %s was %s: %s.", sess.Title, action, status))

	return httpx.JSON(http.StatusOK, map[string]any{"status": string(status), "action": action})
}

// DeleteSelf handles DELETE /teams/:team_id/sessions/:session_id/rsvps/self.
func (h *rsvpsHandler) DeleteSelf(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	return h.delete(req, params, actx, 0)
}

// Delete handles DELETE /teams/:team_id/sessions/:session_id/rsvps/:profile_id.
func (h *rsvpsHandler) Delete(req *httpx.Request, params httpx.Params) httpx.Response {
	actx, resp, ok := h.auth.require(req)
	if !ok {
		return resp
	}
	profileID, resp, ok := parseID(params, "profile_id")
	if !ok {
		return resp
	}
	return h.delete(req, params, actx, profileID)
}

func (h *rsvpsHandler) delete(req *httpx.Request, params httpx.Params, actx *auth.Context, target int64) httpx.Response {
	teamID, resp, ok := parseID(params, "team_id")
	if !ok {
		return resp
	}
	sessionID, resp, ok := parseID(params, "session_id")
	if !ok {
		return resp
	}
	role, err := actx.TeamAccess(teamID)
	if err != nil {
		return forbidden(err)
	}
	if target == 0 {
		target = actx.ProfileID
	}
	if target != actx.ProfileID && role != auth.RoleManager {
		return httpx.Error(http.StatusForbidden, "Managers may update other RSVPs only")
	}

	sess, err := h.schedule.GetSession(req.Context(), teamID, sessionID)
	if err != nil {
		return internalError(err, "getting session")
	}
	if sess == nil {
		return httpx.Error(http.StatusNotFound, "Session not found")
	}
	if resp, open := h.requireWindowOpen(sess); !open {
		return resp
	}

	if err := h.schedule.DeleteRSVP(req.Context(), sessionID, target); err != nil {
		return internalError(err, "deleting rsvp")
	}
	h.activity.Log(req.Context(), teamID, actx.ProfileID, "deleted", "rsvp", sessionID,
		map[string]any{"profile_id": target})
	return httpx.JSON(http.StatusOK, map[string]any{"status": "deleted"})
}

// requireWindowOpen refuses the mutation once the RSVP window has
// closed, attributing the refusal to the lock or to session start.
func (h *rsvpsHandler) requireWindowOpen(sess *schedule.Session) (httpx.Response, bool) {
	now := time.Now()
	if sess.RSVPWindowOpen(now) {
		return httpx.Response{}, true
	}
	gate := "rsvp_window"
	if sess.EffectiveLocked(now) {
		gate = "locked_session"
	}
	h.auth.metrics.IncLockRefusal(gate)
	return httpx.Error(http.StatusForbidden, "RSVP window closed"), false
}

func (h *rsvpsHandler) notifyManagers(req *httpx.Request, teamID int64, subject, body string) {
	role := auth.RoleManager
	emails, err := h.teams.MemberEmails(req.Context(), teamID, &role)
	if err != nil {
		slog.Error("listing manager emails for notification", "error", err, "team_id", teamID)
		return
	}
	h.mailer.Send(subject, body, emails)
}
