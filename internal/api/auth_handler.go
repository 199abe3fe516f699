package api

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/profile"
	"github.com/calderhq/rosterd/internal/ratelimit"
	"github.com/calderhq/rosterd/internal/team"
	"golang.org/x/crypto/bcrypt"
)

// inviteRedeemer is the invite and membership surface a redemption
// touches. *team.Store implements it.
type inviteRedeemer interface {
	FindInvite(ctx context.Context, email, code string) (*team.InviteMatch, error)
	UpsertMembership(ctx context.Context, teamID, profileID int64, role auth.Role) error
	MarkInviteAccepted(ctx context.Context, inviteID int64, at time.Time) error
	TeamsForProfile(ctx context.Context, profileID int64) ([]auth.TeamRole, error)
}

// profileOnboarder is the profile surface a redemption touches.
// *profile.Store implements it.
type profileOnboarder interface {
	Upsert(ctx context.Context, in profile.UpsertInput) (*profile.Profile, error)
}

// authHandler redeems invites into profiles, memberships, and tokens.
type authHandler struct {
	auth             *authenticator
	profiles         profileOnboarder
	teams            inviteRedeemer
	limiter          *ratelimit.Limiter
	seasonAccessCode string
}

func newAuthHandler(a *authenticator, profiles profileOnboarder, teams inviteRedeemer, limiter *ratelimit.Limiter, seasonAccessCode string) *authHandler {
	return &authHandler{
		auth:             a,
		profiles:         profiles,
		teams:            teams,
		limiter:          limiter,
		seasonAccessCode: seasonAccessCode,
	}
}

type magicLinkInput struct {
	Email      string `json:"email"`
	InviteCode string `json:"invite_code"`
	SeasonCode string `json:"season_code"`
	Profile    struct {
		DisplayName  *string `json:"display_name"`
		Phone        *string `json:"phone"`
		GuardianName *string `json:"guardian_name"`
	} `json:"profile"`
}

// MagicLink handles POST /auth/magic-link: invite redemption, profile
// onboarding, and token issuance. Replaying an already-accepted invite
// succeeds again without duplicating the membership.
func (h *authHandler) MagicLink(req *httpx.Request, _ httpx.Params) httpx.Response {
	key := clientKey(req.RemoteAddr)
	if !h.limiter.Allow(key) {
		resp := httpx.Error(http.StatusTooManyRequests, "Too many login attempts")
		seconds := int(h.limiter.RetryAfter(key) / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		resp.Headers = http.Header{"Retry-After": []string{strconv.Itoa(seconds)}}
		return resp
	}

	var in magicLinkInput
	if err := req.Decode(&in); err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid JSON payload")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	code := strings.TrimSpace(in.InviteCode)
	if email == "" || code == "" {
		return httpx.Error(http.StatusBadRequest, "Email and invite code are required")
	}
	if !h.seasonCodeValid(in.SeasonCode) {
		return httpx.Error(http.StatusForbidden, "Season access code is invalid")
	}

	ctx := req.Context()
	invite, err := h.teams.FindInvite(ctx, email, code)
	if err != nil {
		return internalError(err, "finding invite")
	}
	if invite == nil {
		return httpx.Error(http.StatusNotFound, "Invite not found")
	}
	if invite.ExpiresAt != nil && invite.ExpiresAt.Before(time.Now()) {
		return httpx.Error(http.StatusGone, "Invite expired")
	}
	role, err := auth.ParseRole(string(invite.Role))
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "Invalid role on invite")
	}

	prof, err := h.profiles.Upsert(ctx, profile.UpsertInput{
		Email:        email,
		DisplayName:  in.Profile.DisplayName,
		Phone:        in.Profile.Phone,
		GuardianName: in.Profile.GuardianName,
	})
	if err != nil {
		return internalError(err, "onboarding profile")
	}
	if err := h.teams.UpsertMembership(ctx, invite.TeamID, prof.ID, role); err != nil {
		return internalError(err, "onboarding membership")
	}
	if err := h.teams.MarkInviteAccepted(ctx, invite.ID, time.Now().UTC()); err != nil {
		return internalError(err, "accepting invite")
	}

	bearer, err := h.auth.resolver.Issue(ctx, prof.ID)
	if err != nil {
		return internalError(err, "issuing access token")
	}

	teams, err := h.teams.TeamsForProfile(ctx, prof.ID)
	if err != nil {
		return internalError(err, "loading memberships")
	}
	memberships := make(map[int64]auth.Role, len(teams))
	for _, t := range teams {
		memberships[t.TeamID] = t.Role
	}

	return httpx.JSON(http.StatusOK, map[string]any{
		"profile":     prof,
		"teams":       teams,
		"memberships": memberships,
		"token":       bearer,
	})
}

// seasonCodeValid checks the optional season gate. A configured value
// starting with "$2" is treated as a bcrypt hash; anything else is
// compared in constant time.
func (h *authHandler) seasonCodeValid(provided string) bool {
	if h.seasonAccessCode == "" {
		return true
	}
	if strings.HasPrefix(h.seasonAccessCode, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(h.seasonAccessCode), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(h.seasonAccessCode), []byte(provided)) == 1
}

// clientKey reduces a remote address to its host so every port a client
// dials shares one throttle bucket.
func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
