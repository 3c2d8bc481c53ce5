package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Request is the transport-independent view of an HTTP request handed to
// route handlers.
type Request struct {
	// Method is the HTTP method (GET, POST, ...).
	Method string

	// Path is the URL path, without the query string.
	Path string

	// Header holds the request headers. Keys are case-insensitive; when the
	// transport delivered duplicate header names the last value wins.
	Header http.Header

	// Body is the raw request body. May be empty.
	Body []byte

	// Params holds path parameters bound by route matching.
	Params Params

	// RemoteAddr is the network address of the peer.
	RemoteAddr string

	ctx context.Context
}

// newRequest translates a transport-native request into a Request.
// Headers are copied by iterating the transport entries in their given
// order, so on duplicate names the last value wins. The body is copied
// exactly as given; a zero-length body is preserved.
func newRequest(r *http.Request) (*Request, error) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("server: read request body: %w", err)
		}
		body = b
	}

	header := make(http.Header, len(r.Header))
	for key, values := range r.Header {
		for _, v := range values {
			header.Set(key, v)
		}
	}

	return &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Header:     header,
		Body:       body,
		RemoteAddr: r.RemoteAddr,
		ctx:        r.Context(),
	}, nil
}

// Param returns the value bound to the named path parameter, or "" if the
// route pattern did not bind it.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// HasBody reports whether the request carried a non-empty body.
// The raw byte count is preserved in Body for callers that need the
// distinction between an absent and a zero-length body.
func (r *Request) HasBody() bool {
	return len(r.Body) > 0
}

// Context returns the request context. It falls back to the background
// context for requests constructed outside a live transport.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of the request with its context
// replaced. Used by middleware that injects trace or cancellation context.
func (r *Request) WithContext(ctx context.Context) *Request {
	clone := *r
	clone.ctx = ctx
	return &clone
}
