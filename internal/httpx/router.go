package httpx

import "strings"

// Params holds path parameters extracted during route matching.
type Params map[string]string

// Handler processes a matched request. Expected failures come back as
// structured error responses, never as panics.
type Handler func(req *Request, params Params) Response

type route struct {
	method   string
	pattern  string
	segments []string
	handler  Handler
}

// Router maps (method, path) pairs to handlers using a segment-based
// pattern language: a segment starting with ':' matches any single
// non-empty path segment and binds it by name, every other segment must
// match literally, and segment counts must be identical. The first
// registered route that matches wins.
type Router struct {
	routes []route
}

// NewRouter returns an empty router. Routes are registered once at
// startup; the router is read-only afterwards.
func NewRouter() *Router {
	return &Router{}
}

// Handle registers a handler for the given method and pattern.
// Re-registering the same (method, pattern) pair is a no-op.
func (r *Router) Handle(method, pattern string, h Handler) {
	method = strings.ToUpper(method)
	for _, rt := range r.routes {
		if rt.method == method && rt.pattern == pattern {
			return
		}
	}
	r.routes = append(r.routes, route{
		method:   method,
		pattern:  pattern,
		segments: splitSegments(pattern),
		handler:  h,
	})
}

// Match finds the first registered route for the method and path. The
// boolean reports whether any route matched; a miss is distinguishable
// from an application-level 404 produced by a handler.
func (r *Router) Match(method, path string) (Handler, Params, bool) {
	h, params, _, ok := r.MatchRoute(method, path)
	return h, params, ok
}

// MatchRoute is Match plus the pattern of the winning route, for
// per-route observability labels.
func (r *Router) MatchRoute(method, path string) (Handler, Params, string, bool) {
	method = strings.ToUpper(method)
	pathSegments := splitSegments(path)
	for _, rt := range r.routes {
		if rt.method != method {
			continue
		}
		if params, ok := matchSegments(rt.segments, pathSegments); ok {
			return rt.handler, params, rt.pattern, true
		}
	}
	return nil, nil, "", false
}

// splitSegments splits a path on '/' and drops empty segments, which
// also strips any trailing slash.
func splitSegments(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

func matchSegments(pattern, path []string) (Params, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}
	params := Params{}
	for i, p := range pattern {
		switch {
		case strings.HasPrefix(p, ":"):
			params[p[1:]] = path[i]
		case p != path[i]:
			return nil, false
		}
	}
	return params, true
}
