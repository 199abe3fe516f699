package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/token"
)

var (
	// ErrMissingAuthorization means the Authorization header is absent
	// or not a bearer credential.
	ErrMissingAuthorization = errors.New("missing authorization")

	// ErrTokenMissingValue means a validly-signed payload without the
	// inner secret.
	ErrTokenMissingValue = errors.New("token missing inner value")

	// ErrTokenRevoked means the inner secret has no row in the token
	// store: revoked or never issued.
	ErrTokenRevoked = errors.New("token revoked")
)

// TokenRecord is an access-token row joined with its owning profile.
type TokenRecord struct {
	ID          int64
	ProfileID   int64
	Secret      string
	IssuedAt    time.Time
	LastUsedAt  *time.Time
	Email       string
	DisplayName *string
}

// TokenStore persists access-token rows. Row deletion is revocation;
// the resolver treats "row not found" as revoked.
type TokenStore interface {
	Insert(ctx context.Context, profileID int64, secret string, issuedAt time.Time) error
	Lookup(ctx context.Context, secret string) (*TokenRecord, error)
	Touch(ctx context.Context, secret string, usedAt time.Time) error
}

// MembershipSource lists the teams a profile belongs to.
type MembershipSource interface {
	TeamsForProfile(ctx context.Context, profileID int64) ([]TeamRole, error)
}

// Resolver maps bearer tokens to authenticated identities.
type Resolver struct {
	codec       *token.Codec
	tokens      TokenStore
	memberships MembershipSource
}

// NewResolver wires the codec to its persistence collaborators.
func NewResolver(codec *token.Codec, tokens TokenStore, memberships MembershipSource) *Resolver {
	return &Resolver{codec: codec, tokens: tokens, memberships: memberships}
}

// Issue generates a random secret, persists it for the profile, and
// returns the signed bearer string wrapping {secret, issued_at}.
func (r *Resolver) Issue(ctx context.Context, profileID int64) (string, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	now := time.Now().UTC()
	if err := r.tokens.Insert(ctx, profileID, secret, now); err != nil {
		return "", fmt.Errorf("persisting access token: %w", err)
	}

	bearer, err := r.codec.Sign(map[string]any{
		"token":     secret,
		"issued_at": now.Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	return bearer, nil
}

// Resolve verifies the bearer token, checks the inner secret against the
// store, touches last_used_at, and builds the caller's Context.
func (r *Resolver) Resolve(ctx context.Context, bearer string) (*Context, error) {
	payload, err := r.codec.Verify(bearer)
	if err != nil {
		return nil, err
	}
	secret, _ := payload["token"].(string)
	if secret == "" {
		return nil, ErrTokenMissingValue
	}

	record, err := r.tokens.Lookup(ctx, secret)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrTokenRevoked
	}
	if err := r.tokens.Touch(ctx, secret, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("touching access token: %w", err)
	}

	teams, err := r.memberships.TeamsForProfile(ctx, record.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("loading memberships: %w", err)
	}
	memberships := make(map[int64]Role, len(teams))
	for _, t := range teams {
		memberships[t.TeamID] = t.Role
	}

	displayName := ""
	if record.DisplayName != nil {
		displayName = *record.DisplayName
	}
	return &Context{
		ProfileID:   record.ProfileID,
		Email:       record.Email,
		DisplayName: displayName,
		Teams:       teams,
		Memberships: memberships,
	}, nil
}

// Require extracts the bearer credential from the request and resolves
// it. Every failure maps to a 401 at the handler boundary.
func (r *Resolver) Require(ctx context.Context, req *httpx.Request) (*Context, error) {
	bearer, ok := BearerToken(req)
	if !ok {
		return nil, ErrMissingAuthorization
	}
	return r.Resolve(ctx, bearer)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(req *httpx.Request) (string, bool) {
	header := req.Header("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
