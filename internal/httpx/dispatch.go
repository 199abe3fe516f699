package httpx

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// Observer receives one measurement per dispatched request.
type Observer interface {
	ObserveRequest(method, pattern string, status int, seconds float64)
}

// Dispatcher is the boundary between the transport and the handlers: it
// routes the request, answers CORS preflights, merges CORS headers onto
// non-error responses, and converts anything escaping a handler into a
// generic 500 so no fault reaches the transport un-translated.
type Dispatcher struct {
	router   *Router
	cors     *CORS
	observer Observer
}

// NewDispatcher builds a dispatcher over a fully-registered router.
// observer may be nil.
func NewDispatcher(router *Router, cors *CORS, observer Observer) *Dispatcher {
	return &Dispatcher{router: router, cors: cors, observer: observer}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := NewRequest(r)
	origin := req.Header("Origin")

	var resp Response
	pattern := "unmatched"

	switch {
	case req.Method == http.MethodOptions && origin != "":
		pattern = "preflight"
		resp = d.cors.Preflight(origin)
	default:
		handler, params, matched, ok := d.router.MatchRoute(req.Method, req.Path)
		if !ok {
			resp = Error(http.StatusNotFound, "Not found")
			break
		}
		pattern = matched
		resp = d.invoke(handler, req, params)
		resp = d.cors.Merge(resp, origin)
	}

	resp.Write(w)

	if d.observer != nil {
		d.observer.ObserveRequest(req.Method, pattern, resp.Status, time.Since(start).Seconds())
	}
}

// invoke runs the handler, recovering exactly once. Expected failures
// are already structured responses by the time they get here; anything
// that panics is logged with full detail and surfaced only as a generic
// message.
func (d *Dispatcher) invoke(h Handler, req *Request, params Params) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("unhandled fault",
				"panic", rec,
				"method", req.Method,
				"path", req.Path,
				"stack", string(debug.Stack()),
			)
			resp = Error(http.StatusInternalServerError, "Server error")
		}
	}()
	return h(req, params)
}
