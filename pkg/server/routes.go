package server

import (
	"strings"
	"sync"
)

// Handler processes a request and returns a response.
// Returning nil is treated as an empty 200 response.
type Handler func(*Request) *Response

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Params holds path parameter values bound during route matching.
type Params map[string]string

// route is a single (method, pattern, handler) registration.
type route struct {
	method   string
	pattern  string
	segments []string
	handler  Handler
}

// routeTable is an ordered collection of routes.
// Registration order is preserved and the first matching route wins.
// Duplicate (method, pattern) pairs are permitted; the earliest registered
// wins at match time.
type routeTable struct {
	mu     sync.RWMutex
	routes []route
}

func newRouteTable() *routeTable {
	return &routeTable{}
}

// add appends a route. Pattern syntax is not validated beyond segment
// parsing: literal segments match exactly, ":name" segments bind the path
// segment under "name", and a trailing "*name" segment absorbs all
// remaining path segments (including none) as a single value.
func (rt *routeTable) add(method, pattern string, h Handler) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.routes = append(rt.routes, route{
		method:   method,
		pattern:  pattern,
		segments: splitPath(pattern),
		handler:  h,
	})
}

// match scans routes in registration order, filtering by method, and
// returns the first route whose pattern matches the path together with the
// bound parameters. A false result means no route matched.
func (rt *routeTable) match(method, path string) (Handler, Params, bool) {
	segments := splitPath(path)

	rt.mu.RLock()
	defer rt.mu.RUnlock()

	for _, r := range rt.routes {
		if r.method != method {
			continue
		}
		if params, ok := matchSegments(r.segments, segments); ok {
			return r.handler, params, true
		}
	}
	return nil, nil, false
}

// splitPath splits a path into segments. A single leading slash is not a
// segment; a trailing slash yields a final empty segment, so "/a" and "/a/"
// have distinct segment counts. The empty path is one empty segment.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	return strings.Split(path, "/")
}

// matchSegments compares pattern segments against path segments.
// Pattern and path must agree on segment count unless the pattern ends in a
// wildcard, which absorbs the remainder.
func matchSegments(pattern, path []string) (Params, bool) {
	var params Params

	for i, seg := range pattern {
		wildcard := strings.HasPrefix(seg, "*") && i == len(pattern)-1
		if wildcard {
			if params == nil {
				params = make(Params)
			}
			params[seg[1:]] = strings.Join(path[i:], "/")
			return params, true
		}

		if i >= len(path) {
			return nil, false
		}

		if strings.HasPrefix(seg, ":") {
			if params == nil {
				params = make(Params)
			}
			params[seg[1:]] = path[i]
			continue
		}

		if seg != path[i] {
			return nil, false
		}
	}

	if len(path) != len(pattern) {
		return nil, false
	}
	return params, true
}
