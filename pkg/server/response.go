package server

import (
	"encoding/json"
	"net/http"
)

// Content types set by the convenience constructors.
const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// Response is the transport-independent view of an HTTP response returned
// by route handlers. The status code is passed through to the wire verbatim
// and is not validated against the HTTP status registry.
type Response struct {
	// Status is the HTTP status code. Zero means 200.
	Status int

	// Header holds the response headers, copied verbatim to the wire.
	Header http.Header

	// Body is the response body. Empty means a zero-length wire body with
	// no forced Content-Type.
	Body []byte
}

// NewResponse creates a response with the given status and no body.
func NewResponse(status int) *Response {
	return &Response{
		Status: status,
		Header: make(http.Header),
	}
}

// Text creates a response with a plain-text body.
// Content-Type is set to "text/plain; charset=utf-8".
func Text(status int, text string) *Response {
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", contentTypeText)
	resp.Body = []byte(text)
	return resp
}

// JSON creates a response with a JSON-encoded body.
// Content-Type is set to "application/json; charset=utf-8".
// If v cannot be encoded, a plain-text 500 response is returned instead.
func JSON(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Text(http.StatusInternalServerError, "json encode: "+err.Error())
	}
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", contentTypeJSON)
	resp.Body = body
	return resp
}

// NoContent creates an empty 204 response.
func NoContent() *Response {
	return NewResponse(http.StatusNoContent)
}

// WithHeader sets a header and returns the response for chaining.
func (resp *Response) WithHeader(key, value string) *Response {
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set(key, value)
	return resp
}

// write copies the response onto the transport writer. Headers are copied
// verbatim; if no body was supplied the wire body is empty and no
// Content-Type is forced.
func (resp *Response) write(w http.ResponseWriter) error {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if len(resp.Body) == 0 {
		return nil
	}
	_, err := w.Write(resp.Body)
	return err
}
