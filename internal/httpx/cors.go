package httpx

import (
	"net/http"
	"strings"
)

// CORSConfig is the static allow-list configuration for cross-origin
// requests.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// CORS computes response headers for cross-origin requests and preflight
// checks from a static allow-list.
type CORS struct {
	allowAll    bool
	origins     map[string]struct{}
	methods     string
	headers     string
	credentials bool
}

// NewCORS builds a negotiator from the given configuration.
func NewCORS(cfg CORSConfig) *CORS {
	c := &CORS{
		origins:     make(map[string]struct{}, len(cfg.AllowedOrigins)),
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			c.allowAll = true
			continue
		}
		c.origins[o] = struct{}{}
	}
	return c
}

// Headers returns the CORS headers for a request from the given origin,
// or nil when the origin is absent or disallowed. Credentialed responses
// never use the wildcard, so with credentials enabled the literal origin
// is echoed together with Vary: Origin.
func (c *CORS) Headers(origin string) http.Header {
	if origin == "" {
		return nil
	}

	h := http.Header{}
	switch {
	case c.allowAll && !c.credentials:
		h.Set("Access-Control-Allow-Origin", "*")
	case c.allowAll && c.credentials:
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	default:
		if _, ok := c.origins[origin]; !ok {
			return nil
		}
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	}
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	return h
}

// Preflight answers an OPTIONS check from the given origin: the usual
// CORS headers plus allowed methods and headers, or a 403 when the
// origin is disallowed.
func (c *CORS) Preflight(origin string) Response {
	h := c.Headers(origin)
	if h == nil {
		return Error(http.StatusForbidden, "Origin not allowed")
	}
	if c.methods != "" {
		h.Set("Access-Control-Allow-Methods", c.methods)
	}
	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	}
	return Response{Status: http.StatusNoContent, Headers: h}
}

// Merge adds the CORS headers for origin onto the response when the
// response is not an error (status < 400). Vary values are unioned
// rather than overwritten.
func (c *CORS) Merge(resp Response, origin string) Response {
	if resp.Status >= http.StatusBadRequest {
		return resp
	}
	extra := c.Headers(origin)
	if extra == nil {
		return resp
	}
	if resp.Headers == nil {
		resp.Headers = http.Header{}
	}
	for key, values := range extra {
		if http.CanonicalHeaderKey(key) == "Vary" {
			for _, v := range values {
				if !varyContains(resp.Headers, v) {
					resp.Headers.Add("Vary", v)
				}
			}
			continue
		}
		for _, v := range values {
			resp.Headers.Set(key, v)
		}
	}
	return resp
}

func varyContains(h http.Header, value string) bool {
	for _, existing := range h.Values("Vary") {
		for _, part := range strings.Split(existing, ",") {
			if strings.EqualFold(strings.TrimSpace(part), value) {
				return true
			}
		}
	}
	return false
}
