package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// ErrMalformedBody indicates a request body that is not valid JSON.
var ErrMalformedBody = errors.New("invalid JSON payload")

// Request normalizes one inbound HTTP exchange: upper-cased method, path,
// canonical headers, query parameters, and a lazily-read body.
type Request struct {
	Method     string
	Path       string
	Query      url.Values
	RemoteAddr string

	header http.Header
	body   io.Reader
	ctx    context.Context

	raw     []byte
	rawRead bool
}

// NewRequest wraps a raw *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{
		Method:     strings.ToUpper(r.Method),
		Path:       r.URL.Path,
		Query:      r.URL.Query(),
		RemoteAddr: r.RemoteAddr,
		header:     r.Header,
		body:       r.Body,
		ctx:        r.Context(),
	}
}

// Context returns the request's context.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Header returns the header value for the given key using canonical casing.
func (r *Request) Header(key string) string {
	if r.header == nil {
		return ""
	}
	return r.header.Get(key)
}

// readBody reads the request body at most once and caches the bytes.
func (r *Request) readBody() []byte {
	if !r.rawRead {
		r.rawRead = true
		if r.body != nil {
			r.raw, _ = io.ReadAll(io.LimitReader(r.body, maxBodySize))
		}
	}
	return r.raw
}

// Decode parses the JSON body into v. An absent body decodes to the zero
// value of v; malformed JSON reports ErrMalformedBody. The body bytes are
// read once and cached, so Decode may be called more than once.
func (r *Request) Decode(v any) error {
	raw := r.readBody()
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}

// Response carries a status code, an optional JSON-serializable body
// (mapping, sequence, struct, or string), and optional extra headers.
type Response struct {
	Status  int
	Body    any
	Headers http.Header
}

// JSON builds a response with a JSON body.
func JSON(status int, body any) Response {
	return Response{Status: status, Body: body}
}

// Error builds the standard error response body.
func Error(status int, message string) Response {
	return Response{
		Status: status,
		Body: map[string]any{
			"error":     message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// Write serializes the response onto w. Content-Type follows the body's
// shape; Cache-Control and X-Content-Type-Options are always set unless
// the handler already provided them.
func (resp Response) Write(w http.ResponseWriter) {
	h := w.Header()
	for key, values := range resp.Headers {
		for _, v := range values {
			h.Add(key, v)
		}
	}

	var payload []byte
	switch body := resp.Body.(type) {
	case nil:
	case string:
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "text/plain; charset=utf-8")
		}
		payload = []byte(body)
	default:
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "application/json")
		}
		payload, _ = json.Marshal(body)
	}

	if h.Get("Cache-Control") == "" {
		h.Set("Cache-Control", "no-store")
	}
	if h.Get("X-Content-Type-Options") == "" {
		h.Set("X-Content-Type-Options", "nosniff")
	}

	w.WriteHeader(resp.Status)
	_, _ = w.Write(payload)
}
