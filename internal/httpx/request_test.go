package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRequestNormalizesMethod(t *testing.T) {
	raw := httptest.NewRequest("get", "/teams?limit=5", nil)
	req := NewRequest(raw)

	if req.Method != "GET" {
		t.Fatalf("method = %q", req.Method)
	}
	if req.Path != "/teams" {
		t.Fatalf("path = %q", req.Path)
	}
	if req.Query.Get("limit") != "5" {
		t.Fatalf("query = %v", req.Query)
	}
}

func TestRequestDecode(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		raw := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c"}`))
		var in struct {
			Email string `json:"email"`
		}
		if err := NewRequest(raw).Decode(&in); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if in.Email != "a@b.c" {
			t.Fatalf("email = %q", in.Email)
		}
	})

	t.Run("empty body decodes to zero value", func(t *testing.T) {
		raw := httptest.NewRequest(http.MethodPost, "/", nil)
		var in struct {
			Email string `json:"email"`
		}
		if err := NewRequest(raw).Decode(&in); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if in.Email != "" {
			t.Fatalf("email = %q", in.Email)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		raw := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
		err := NewRequest(raw).Decode(&struct{}{})
		if !errors.Is(err, ErrMalformedBody) {
			t.Fatalf("err = %v, want ErrMalformedBody", err)
		}
	})

	t.Run("decode twice uses cached bytes", func(t *testing.T) {
		raw := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"n":1}`))
		req := NewRequest(raw)
		var a, b struct {
			N int `json:"n"`
		}
		if err := req.Decode(&a); err != nil {
			t.Fatalf("first decode: %v", err)
		}
		if err := req.Decode(&b); err != nil {
			t.Fatalf("second decode: %v", err)
		}
		if b.N != 1 {
			t.Fatalf("second decode got %d", b.N)
		}
	})
}

func TestErrorResponseShape(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(http.StatusNotFound, "Not found").Write(rec)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Not found" {
		t.Errorf("error = %v", body["error"])
	}
	ts, _ := body["timestamp"].(string)
	if ts == "" || !strings.HasSuffix(ts, "Z") {
		t.Errorf("timestamp = %q, want UTC RFC3339", ts)
	}
}

func TestResponseWriteHeaders(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		JSON(http.StatusOK, map[string]any{"ok": true}).Write(rec)

		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
			t.Errorf("Cache-Control = %q", cc)
		}
		if xo := rec.Header().Get("X-Content-Type-Options"); xo != "nosniff" {
			t.Errorf("X-Content-Type-Options = %q", xo)
		}
	})

	t.Run("string body is plain text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		JSON(http.StatusOK, "pong").Write(rec)

		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("Content-Type = %q", ct)
		}
		if rec.Body.String() != "pong" {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("handler headers are kept", func(t *testing.T) {
		rec := httptest.NewRecorder()
		resp := JSON(http.StatusOK, nil)
		resp.Headers = http.Header{}
		resp.Headers.Set("Cache-Control", "max-age=60")
		resp.Write(rec)

		if cc := rec.Header().Get("Cache-Control"); cc != "max-age=60" {
			t.Errorf("Cache-Control = %q", cc)
		}
	})
}
