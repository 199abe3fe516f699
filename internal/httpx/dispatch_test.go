package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordingObserver struct {
	method  string
	pattern string
	status  int
}

func (o *recordingObserver) ObserveRequest(method, pattern string, status int, _ float64) {
	o.method, o.pattern, o.status = method, pattern, status
}

func newTestDispatcher(obs Observer) *Dispatcher {
	r := NewRouter()
	r.Handle(http.MethodGet, "/teams/:team_id", func(_ *Request, params Params) Response {
		return JSON(http.StatusOK, map[string]any{"team_id": params["team_id"]})
	})
	r.Handle(http.MethodGet, "/boom", func(_ *Request, _ Params) Response {
		panic("kaboom")
	})
	cors := NewCORS(CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{"GET"},
	})
	return NewDispatcher(r, cors, obs)
}

func TestDispatcherRoutesAndObserves(t *testing.T) {
	obs := &recordingObserver{}
	d := newTestDispatcher(obs)

	req := httptest.NewRequest(http.MethodGet, "/teams/12", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["team_id"] != "12" {
		t.Errorf("team_id = %q", body["team_id"])
	}
	if obs.pattern != "/teams/:team_id" || obs.status != http.StatusOK {
		t.Errorf("observed (%q, %d)", obs.pattern, obs.status)
	}
}

func TestDispatcherUnmatched(t *testing.T) {
	obs := &recordingObserver{}
	d := newTestDispatcher(obs)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if obs.pattern != "unmatched" {
		t.Errorf("observed pattern %q", obs.pattern)
	}
}

func TestDispatcherPreflight(t *testing.T) {
	d := newTestDispatcher(nil)

	req := httptest.NewRequest(http.MethodOptions, "/teams/12", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET" {
		t.Errorf("Allow-Methods = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/teams/12", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("denied preflight status = %d", rec.Code)
	}
}

func TestDispatcherMergesCORSOnSuccess(t *testing.T) {
	d := newTestDispatcher(nil)

	req := httptest.NewRequest(http.MethodGet, "/teams/12", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestDispatcherRecoversPanic(t *testing.T) {
	obs := &recordingObserver{}
	d := newTestDispatcher(obs)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Server error" {
		t.Errorf("error = %v, internals must not leak", body["error"])
	}
	if obs.status != http.StatusInternalServerError {
		t.Errorf("observed status = %d", obs.status)
	}
}
