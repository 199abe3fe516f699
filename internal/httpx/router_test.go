package httpx

import (
	"net/http"
	"testing"
)

func noopHandler(_ *Request, _ Params) Response {
	return JSON(http.StatusOK, map[string]any{"ok": true})
}

func namedHandler(name string) Handler {
	return func(_ *Request, _ Params) Response {
		return JSON(http.StatusOK, name)
	}
}

func TestRouterMatch(t *testing.T) {
	r := NewRouter()
	r.Handle(http.MethodGet, "/teams", noopHandler)
	r.Handle(http.MethodGet, "/teams/:team_id/sessions/:session_id", noopHandler)
	r.Handle(http.MethodPost, "/teams/:team_id/sessions", noopHandler)

	tests := []struct {
		name       string
		method     string
		path       string
		wantMatch  bool
		wantParams Params
	}{
		{"literal", http.MethodGet, "/teams", true, Params{}},
		{"trailing slash", http.MethodGet, "/teams/", true, Params{}},
		{"two params", http.MethodGet, "/teams/7/sessions/42", true, Params{"team_id": "7", "session_id": "42"}},
		{"wrong method", http.MethodDelete, "/teams", false, nil},
		{"too few segments", http.MethodGet, "/teams/7/sessions", false, nil},
		{"too many segments", http.MethodGet, "/teams/7/sessions/42/extra", false, nil},
		{"literal mismatch", http.MethodGet, "/clubs/7/sessions/42", false, nil},
		{"post param route", http.MethodPost, "/teams/9/sessions", true, Params{"team_id": "9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, params, ok := r.Match(tt.method, tt.path)
			if ok != tt.wantMatch {
				t.Fatalf("Match(%s %s) = %v, want %v", tt.method, tt.path, ok, tt.wantMatch)
			}
			if !tt.wantMatch {
				return
			}
			if len(params) != len(tt.wantParams) {
				t.Fatalf("params = %v, want %v", params, tt.wantParams)
			}
			for k, v := range tt.wantParams {
				if params[k] != v {
					t.Errorf("params[%q] = %q, want %q", k, params[k], v)
				}
			}
		})
	}
}

func TestRouterMethodCaseInsensitive(t *testing.T) {
	r := NewRouter()
	r.Handle("get", "/teams", noopHandler)

	if _, _, ok := r.Match("GET", "/teams"); !ok {
		t.Fatal("lower-case registration should match upper-case lookup")
	}
	if _, _, ok := r.Match("get", "/teams"); !ok {
		t.Fatal("lower-case lookup should match")
	}
}

func TestRouterDuplicateRegistrationIsNoop(t *testing.T) {
	r := NewRouter()
	r.Handle(http.MethodGet, "/teams", namedHandler("first"))
	r.Handle(http.MethodGet, "/teams", namedHandler("second"))

	h, _, ok := r.Match(http.MethodGet, "/teams")
	if !ok {
		t.Fatal("route should match")
	}
	if resp := h(nil, nil); resp.Body != "first" {
		t.Fatalf("duplicate registration replaced handler: got %v", resp.Body)
	}
}

func TestRouterFirstRegisteredWins(t *testing.T) {
	r := NewRouter()
	r.Handle(http.MethodPut, "/rsvps/self", namedHandler("self"))
	r.Handle(http.MethodPut, "/rsvps/:profile_id", namedHandler("by-id"))

	h, params, ok := r.Match(http.MethodPut, "/rsvps/self")
	if !ok {
		t.Fatal("route should match")
	}
	if resp := h(nil, nil); resp.Body != "self" {
		t.Fatalf("literal route should win over parameter route: got %v", resp.Body)
	}
	if len(params) != 0 {
		t.Fatalf("literal match should bind no params, got %v", params)
	}

	h, params, ok = r.Match(http.MethodPut, "/rsvps/31")
	if !ok {
		t.Fatal("parameter route should match")
	}
	if resp := h(nil, nil); resp.Body != "by-id" {
		t.Fatalf("expected parameter route, got %v", resp.Body)
	}
	if params["profile_id"] != "31" {
		t.Fatalf("params = %v", params)
	}
}

func TestMatchRoutePattern(t *testing.T) {
	r := NewRouter()
	r.Handle(http.MethodGet, "/teams/:team_id/members", noopHandler)

	_, _, pattern, ok := r.MatchRoute(http.MethodGet, "/teams/5/members")
	if !ok {
		t.Fatal("route should match")
	}
	if pattern != "/teams/:team_id/members" {
		t.Fatalf("pattern = %q", pattern)
	}
}
