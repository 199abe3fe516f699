package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/token"
)

// fakeTokenStore keeps token rows in memory.
type fakeTokenStore struct {
	records map[string]*TokenRecord
	touched map[string]time.Time
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		records: make(map[string]*TokenRecord),
		touched: make(map[string]time.Time),
	}
}

func (s *fakeTokenStore) Insert(_ context.Context, profileID int64, secret string, issuedAt time.Time) error {
	s.records[secret] = &TokenRecord{
		ProfileID: profileID,
		Secret:    secret,
		IssuedAt:  issuedAt,
		Email:     "player@example.com",
	}
	return nil
}

func (s *fakeTokenStore) Lookup(_ context.Context, secret string) (*TokenRecord, error) {
	return s.records[secret], nil
}

func (s *fakeTokenStore) Touch(_ context.Context, secret string, usedAt time.Time) error {
	s.touched[secret] = usedAt
	return nil
}

type fakeMemberships struct {
	teams []TeamRole
	err   error
}

func (m *fakeMemberships) TeamsForProfile(_ context.Context, _ int64) ([]TeamRole, error) {
	return m.teams, m.err
}

func newTestResolver(store *fakeTokenStore, memberships *fakeMemberships) *Resolver {
	return NewResolver(token.NewCodec("test-secret"), store, memberships)
}

func requestWithAuth(header string) *httpx.Request {
	raw := httptest.NewRequest(http.MethodGet, "/teams", nil)
	if header != "" {
		raw.Header.Set("Authorization", header)
	}
	return httpx.NewRequest(raw)
}

func TestIssueAndResolve(t *testing.T) {
	store := newFakeTokenStore()
	memberships := &fakeMemberships{teams: []TeamRole{
		{TeamID: 1, Name: "Titans", Role: RoleManager},
		{TeamID: 2, Name: "Spartans", Role: RolePlayer},
	}}
	r := newTestResolver(store, memberships)

	bearer, err := r.Issue(context.Background(), 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected one persisted secret, got %d", len(store.records))
	}

	actx, err := r.Resolve(context.Background(), bearer)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if actx.ProfileID != 42 {
		t.Errorf("profile = %d", actx.ProfileID)
	}
	if actx.Email != "player@example.com" {
		t.Errorf("email = %q", actx.Email)
	}
	if actx.Memberships[1] != RoleManager || actx.Memberships[2] != RolePlayer {
		t.Errorf("memberships = %v", actx.Memberships)
	}
	if len(store.touched) != 1 {
		t.Errorf("resolve should touch last_used_at")
	}
}

func TestResolveRevoked(t *testing.T) {
	store := newFakeTokenStore()
	r := newTestResolver(store, &fakeMemberships{})

	bearer, err := r.Issue(context.Background(), 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Deleting the row is revocation.
	store.records = map[string]*TokenRecord{}

	_, err = r.Resolve(context.Background(), bearer)
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
}

func TestResolveMissingInnerValue(t *testing.T) {
	r := newTestResolver(newFakeTokenStore(), &fakeMemberships{})

	bearer, err := token.NewCodec("test-secret").Sign(map[string]any{"issued_at": "2026-01-01T00:00:00Z"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = r.Resolve(context.Background(), bearer)
	if !errors.Is(err, ErrTokenMissingValue) {
		t.Fatalf("err = %v, want ErrTokenMissingValue", err)
	}
}

func TestResolveBadToken(t *testing.T) {
	r := newTestResolver(newFakeTokenStore(), &fakeMemberships{})

	if _, err := r.Resolve(context.Background(), "no-dot-here"); !errors.Is(err, token.ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}

	other, err := token.NewCodec("wrong-secret").Sign(map[string]any{"token": "x"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := r.Resolve(context.Background(), other); !errors.Is(err, token.ErrSignature) {
		t.Fatalf("err = %v, want ErrSignature", err)
	}
}

func TestRequire(t *testing.T) {
	store := newFakeTokenStore()
	r := newTestResolver(store, &fakeMemberships{})

	bearer, err := r.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"no header", "", ErrMissingAuthorization},
		{"wrong scheme", "Basic abc", ErrMissingAuthorization},
		{"empty credential", "Bearer ", ErrMissingAuthorization},
		{"valid", "Bearer " + bearer, nil},
		{"case-insensitive scheme", "bearer " + bearer, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Require(context.Background(), requestWithAuth(tt.header))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestContextRBAC(t *testing.T) {
	actx := &Context{
		ProfileID: 9,
		Memberships: map[int64]Role{
			1: RoleManager,
			2: RolePlayer,
		},
	}

	if _, err := actx.TeamAccess(3); !errors.Is(err, ErrNoMembership) {
		t.Errorf("TeamAccess(3) err = %v, want ErrNoMembership", err)
	}
	if role, err := actx.TeamAccess(2); err != nil || role != RolePlayer {
		t.Errorf("TeamAccess(2) = %v, %v", role, err)
	}

	if _, err := actx.RequireRole(1, RoleManager); err != nil {
		t.Errorf("manager on team 1 should pass: %v", err)
	}
	if _, err := actx.RequireRole(2, RoleManager); !errors.Is(err, ErrInsufficientRole) {
		t.Errorf("player needing manager err = %v, want ErrInsufficientRole", err)
	}
	if _, err := actx.RequireRole(3, RoleManager); !errors.Is(err, ErrNoMembership) {
		t.Errorf("non-member err = %v, want ErrNoMembership", err)
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"manager", "coach", "player"} {
		if _, err := ParseRole(valid); err != nil {
			t.Errorf("ParseRole(%q) = %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "Manager", "admin", "owner"} {
		if _, err := ParseRole(invalid); err == nil {
			t.Errorf("ParseRole(%q) should fail", invalid)
		}
	}
}
