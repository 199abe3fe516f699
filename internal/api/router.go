package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/calderhq/rosterd/internal/activity"
	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/config"
	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/metrics"
	"github.com/calderhq/rosterd/internal/notify"
	"github.com/calderhq/rosterd/internal/profile"
	"github.com/calderhq/rosterd/internal/ratelimit"
	"github.com/calderhq/rosterd/internal/schedule"
	"github.com/calderhq/rosterd/internal/team"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Resolver *auth.Resolver
	Profiles *profile.Store
	Teams    *team.Store
	Schedule *schedule.Store
	Activity *activity.Logger
	Mailer   *notify.Mailer
	Metrics  *metrics.Metrics
}

// NewHandler builds the full HTTP handler: an outer chi mux carrying
// request logging and the operational endpoints, with every API route
// dispatched through the segment router.
func NewHandler(deps Deps) http.Handler {
	authn := &authenticator{resolver: deps.Resolver, metrics: deps.Metrics}

	loginLimiter := ratelimit.New(deps.Config.Auth.LoginRateLimit, deps.Config.Auth.LoginRateWindow)
	authH := newAuthHandler(authn, deps.Profiles, deps.Teams, loginLimiter, deps.Config.Auth.SeasonAccessCode)
	teamsH := newTeamsHandler(authn, deps.Teams)
	invitesH := newInvitesHandler(authn, deps.Teams, deps.Activity, deps.Mailer,
		deps.Config.App.BaseURL, deps.Config.InviteTTL())
	sessionsH := newSessionsHandler(authn, deps.Schedule, deps.Teams, deps.Activity, deps.Mailer,
		deps.Config.Sessions.DefaultAutoLockMinutes)
	rsvpsH := newRSVPsHandler(authn, deps.Schedule, deps.Teams, deps.Activity, deps.Mailer)

	router := httpx.NewRouter()
	router.Handle(http.MethodPost, "/auth/magic-link", authH.MagicLink)

	router.Handle(http.MethodGet, "/teams", teamsH.ListTeams)
	router.Handle(http.MethodGet, "/teams/:team_id/members", teamsH.ListMembers)
	router.Handle(http.MethodPatch, "/teams/:team_id/members/:member_id", teamsH.UpdateMember)
	router.Handle(http.MethodDelete, "/teams/:team_id/members/:member_id", teamsH.DeleteMember)

	router.Handle(http.MethodGet, "/teams/:team_id/invites", invitesH.List)
	router.Handle(http.MethodPost, "/teams/:team_id/invites", invitesH.Create)
	router.Handle(http.MethodDelete, "/teams/:team_id/invites/:invite_id", invitesH.Revoke)

	router.Handle(http.MethodGet, "/teams/:team_id/sessions", sessionsH.List)
	router.Handle(http.MethodPost, "/teams/:team_id/sessions", sessionsH.Create)
	router.Handle(http.MethodGet, "/teams/:team_id/sessions/:session_id", sessionsH.Get)
	router.Handle(http.MethodPut, "/teams/:team_id/sessions/:session_id", sessionsH.Update)
	router.Handle(http.MethodPatch, "/teams/:team_id/sessions/:session_id", sessionsH.Update)
	router.Handle(http.MethodDelete, "/teams/:team_id/sessions/:session_id", sessionsH.Delete)

	router.Handle(http.MethodGet, "/teams/:team_id/sessions/:session_id/rsvps", rsvpsH.List)
	// The literal "self" routes register ahead of the parameterized ones
	// so the ordered matcher resolves them first.
	router.Handle(http.MethodPut, "/teams/:team_id/sessions/:session_id/rsvps/self", rsvpsH.UpsertSelf)
	router.Handle(http.MethodDelete, "/teams/:team_id/sessions/:session_id/rsvps/self", rsvpsH.DeleteSelf)
	router.Handle(http.MethodPut, "/teams/:team_id/sessions/:session_id/rsvps/:profile_id", rsvpsH.Upsert)
	router.Handle(http.MethodDelete, "/teams/:team_id/sessions/:session_id/rsvps/:profile_id", rsvpsH.Delete)

	cors := httpx.NewCORS(httpx.CORSConfig{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   deps.Config.CORS.AllowedMethods,
		AllowedHeaders:   deps.Config.CORS.AllowedHeaders,
		AllowCredentials: deps.Config.CORS.AllowCredentials,
	})
	dispatcher := httpx.NewDispatcher(router, cors, deps.Metrics)

	mux := chi.NewRouter()
	mux.Use(chimw.RealIP)
	mux.Use(requestLogger)

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Get("/metrics", deps.Metrics.Handler())

	mux.NotFound(dispatcher.ServeHTTP)
	mux.MethodNotAllowed(dispatcher.ServeHTTP)

	return mux
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}
